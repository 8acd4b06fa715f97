// Package listview は永続化されたレコードのコレクションに対して
// フィルタ → ソート → ページングを行うビューモデルを提供する。
// Todoと日記の両方の一覧画面がこのパッケージを共有する。
package listview

import (
	"cmp"
	"slices"
	"strings"
)

// PageSize は1ページに表示するレコード数。
const PageSize = 10

// Record はコレクションに格納されるレコードのインターフェース。
// Keyは削除・更新に用いる安定した識別子で、表示位置とは無関係に一意でなければならない。
type Record[K cmp.Ordered] interface {
	// Key はレコードの安定した識別子を返す。
	Key() K
	// SearchFields は検索対象となるテキストフィールドを返す。
	SearchFields() []string
}

// Order は名前付きの並び順を表す。
// Compareは比較結果を負・0・正で返す。同順位はKey昇順で決定的に解決される。
type Order[R any] struct {
	Name    string
	Compare func(a, b R) int
}

// Predicate は検索語以外の追加フィルタ条件。
type Predicate[R any] func(R) bool

// ViewState は永続化されない画面状態（検索語・並び順・ページ番号）。
type ViewState struct {
	Search string
	Sort   string
	Page   int
}

// Page は導出された表示ページ。
type Page[R any] struct {
	Items       []R
	CurrentPage int
	PageCount   int
	// Filtered は検索・フィルタ適用後の件数。ページ数はこの件数から算出する。
	Filtered int
	// Total はコレクション全体の件数。
	Total int
}

// PageCount はレコード件数からページ数を算出する。
func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// Matches はレコードが検索語に一致するかを判定する。
// 検索語が空の場合は常に一致する。大文字小文字は区別しない。
func Matches[K cmp.Ordered, R Record[K]](r R, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range r.SearchFields() {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// Derive はコレクション全体と画面状態から表示ページを導出する。
// 入力のrecordsは変更しない。
//
//  1. 検索語とpredicateでフィルタ
//  2. orderで安定ソート（同順位はKey昇順）
//  3. [page*PageSize, page*PageSize+PageSize) を切り出す
//
// ページ番号は [0, PageCount-1] に丸められる。
func Derive[K cmp.Ordered, R Record[K]](records []R, state ViewState, order Order[R], pred Predicate[R]) Page[R] {
	filtered := make([]R, 0, len(records))
	for _, r := range records {
		if !Matches[K](r, state.Search) {
			continue
		}
		if pred != nil && !pred(r) {
			continue
		}
		filtered = append(filtered, r)
	}

	slices.SortStableFunc(filtered, func(a, b R) int {
		if order.Compare != nil {
			if c := order.Compare(a, b); c != 0 {
				return c
			}
		}
		return cmp.Compare(a.Key(), b.Key())
	})

	pageCount := PageCount(len(filtered))
	page := clampPage(state.Page, pageCount)

	start := page * PageSize
	end := min(start+PageSize, len(filtered))

	return Page[R]{
		Items:       filtered[start:end:end],
		CurrentPage: page,
		PageCount:   pageCount,
		Filtered:    len(filtered),
		Total:       len(records),
	}
}

// clampPage はページ番号を [0, pageCount-1] に丸める。ページがない場合は0。
func clampPage(page, pageCount int) int {
	if pageCount == 0 || page < 0 {
		return 0
	}
	if page > pageCount-1 {
		return pageCount - 1
	}
	return page
}
