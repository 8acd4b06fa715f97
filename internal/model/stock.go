package model

// Stock はポートフォリオ内の1銘柄を表す。
type Stock struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Key はレコードの安定した識別子を返す。
func (s Stock) Key() string { return s.ID }

// SearchFields は検索対象のフィールドを返す。
func (s Stock) SearchFields() []string { return []string{s.Name} }

// Allocation はポートフォリオの構成比を表す。チャート描画用のデータ。
type Allocation struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
	Shares []float64 `json:"shares"` // 合計に対する割合（%）
	Total  float64   `json:"total"`
}
