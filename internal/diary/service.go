// Package diary は日記のビジネスロジックを提供する。
package diary

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/model"
)

// CollectionName は日記コレクションの永続化キー。
const CollectionName = "diaryEntries"

// 並び順の名前
const (
	SortDesc = "desc"
	SortAsc  = "asc"
)

// 日付の比較はYYYY-MM-DD形式の文字列比較で行う。同日の場合はKey（作成順のUUIDv7）で決まる。
var orders = []listview.Order[model.DiaryEntry]{
	{Name: SortDesc, Compare: func(a, b model.DiaryEntry) int { return cmp.Compare(b.Date, a.Date) }},
	{Name: SortAsc, Compare: func(a, b model.DiaryEntry) int { return cmp.Compare(a.Date, b.Date) }},
}

// AddInput は日記追加時の入力。
type AddInput struct {
	Date    string
	Mood    string
	Content string
}

// Service は日記のビューモデルを管理するサービス。
type Service struct {
	vm    *listview.ViewModel[string, model.DiaryEntry]
	now   func() time.Time
	newID func() (uuid.UUID, error)

	mu sync.Mutex
	// dateFilter は完全一致で絞り込む日付。空の場合は絞り込まない。
	dateFilter string
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store listview.Store[model.DiaryEntry], observer listview.Observer) *Service {
	c := listview.NewCollection[string, model.DiaryEntry](CollectionName, store, observer)
	return &Service{
		vm:    listview.NewViewModel(c, orders...),
		now:   time.Now,
		newID: uuid.NewV7,
	}
}

// Load は永続化された日記を読み込む。
func (s *Service) Load(ctx context.Context) error {
	return s.vm.Load(ctx)
}

// Add は入力を検証して日記を追加する。日付と内容は必須。
func (s *Service) Add(ctx context.Context, in AddInput) (*model.DiaryEntry, error) {
	date := strings.TrimSpace(in.Date)
	content := strings.TrimSpace(in.Content)
	if date == "" {
		return nil, model.NewValidationError("date", "日付は必須です")
	}
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return nil, model.NewValidationError("date", "日付はYYYY-MM-DD形式で指定してください")
	}
	if content == "" {
		return nil, model.NewValidationError("content", "内容は必須です")
	}

	id, err := s.newID()
	if err != nil {
		return nil, err
	}

	entry := model.DiaryEntry{
		ID:        id.String(),
		Date:      date,
		Mood:      strings.TrimSpace(in.Mood),
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.vm.Add(ctx, entry); err != nil {
		return nil, s.persistenceError(err, "add", entry.ID)
	}
	return &entry, nil
}

// Delete は指定IDの日記を削除する。
// 該当する日記がない場合は何もせずfalseを返す。
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	changed, err := s.vm.Delete(ctx, id)
	if err != nil {
		return false, s.persistenceError(err, "delete", id)
	}
	return changed, nil
}

// SetSearch は気分・内容・日付に対するキーワードを設定する。
func (s *Service) SetSearch(text string) {
	s.vm.SetSearch(text)
}

// SetDateFilter は日付の完全一致フィルタを設定する。空文字で解除する。
func (s *Service) SetDateFilter(date string) error {
	date = strings.TrimSpace(date)
	if date != "" {
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			return model.NewValidationError("date", "日付はYYYY-MM-DD形式で指定してください")
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if date == s.dateFilter {
		return nil
	}
	s.dateFilter = date
	if date == "" {
		s.vm.SetFilter(nil)
		return nil
	}
	s.vm.SetFilter(func(e model.DiaryEntry) bool { return e.Date == date })
	return nil
}

// DateFilter は現在の日付フィルタを返す。
func (s *Service) DateFilter() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dateFilter
}

// SetSort は表示上の並び順を設定する。
func (s *Service) SetSort(name string) error {
	if err := s.vm.SetSort(name); err != nil {
		return model.NewInvalidSortError(name, s.vm.Orders())
	}
	return nil
}

// SetPage は表示ページを設定する。
func (s *Service) SetPage(index int) {
	s.vm.SetPage(index)
}

// View は現在の表示ページを返す。
func (s *Service) View() listview.Page[model.DiaryEntry] {
	return s.vm.View()
}

// State は現在の画面状態を返す。
func (s *Service) State() listview.ViewState {
	return s.vm.State()
}

// Sorts は選択可能な並び順を返す。
func (s *Service) Sorts() []string {
	return s.vm.Orders()
}

func (s *Service) persistenceError(err error, op, id string) error {
	if !errors.Is(err, listview.ErrPersistence) {
		return err
	}
	slog.Warn("日記の保存に失敗しました",
		slog.String("op", op),
		slog.String("id", id),
		slog.String("error", err.Error()),
	)
	return model.NewPersistenceError(CollectionName)
}
