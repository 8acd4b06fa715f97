package model

import "time"

// Article はニュースソースから取得した記事を表す。
// 同じリンクの記事は1件として扱う。
type Article struct {
	Link        string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	ImageURL    string    `json:"urlToImage,omitempty"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"publishedAt"`
}

// Key はレコードの安定した識別子（リンク）を返す。
func (a Article) Key() string { return a.Link }

// SearchFields は検索対象のフィールドを返す。
func (a Article) SearchFields() []string { return []string{a.Title, a.Description, a.Source} }

// Headlines はニュース画面の配置に合わせて分割した記事。
type Headlines struct {
	Main      *Article  `json:"main"`
	Secondary []Article `json:"secondary"`
	Recent    []Article `json:"recent"`
	UpdatedAt time.Time `json:"updated_at"`
}
