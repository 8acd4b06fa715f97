package model

import "time"

// DiaryEntry は日記の1件を表す。
// 日付はユーザーが指定し、同じ日付の日記が複数存在してもよい。
type DiaryEntry struct {
	ID        string    `json:"id"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Mood      string    `json:"mood"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Key はレコードの安定した識別子を返す。
func (e DiaryEntry) Key() string { return e.ID }

// SearchFields は検索対象のフィールドを返す。
func (e DiaryEntry) SearchFields() []string { return []string{e.Date, e.Mood, e.Content} }

// DateLayout は日付フィールドの書式。
const DateLayout = time.DateOnly
