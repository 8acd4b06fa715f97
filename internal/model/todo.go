package model

// Todo はTodoリストの1件を表す。
// JSONのフィールド名は永続化済みデータとの互換のため固定する。
type Todo struct {
	ID       int64  `json:"id"` // 作成時刻（Unixミリ秒）。単調増加
	Title    string `json:"title"`
	Content  string `json:"content"`
	Priority int    `json:"priority"` // 1〜5
	Done     bool   `json:"done"`
	Date     string `json:"date"` // 作成日（YYYY-MM-DD）
}

// Key はレコードの安定した識別子を返す。
func (t Todo) Key() int64 { return t.ID }

// SearchFields は検索対象のフィールド（タイトルと内容）を返す。
func (t Todo) SearchFields() []string { return []string{t.Title, t.Content} }

// Todoの優先度の範囲
const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = MinPriority
)
