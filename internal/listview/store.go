package listview

import (
	"context"
	"encoding/json"
	"fmt"
)

// BlobStore はコレクション名をキーとするキーバリューストア。
// repository.CollectionRepositoryの部分集合として定義する。
type BlobStore interface {
	Get(ctx context.Context, name string) ([]byte, bool, error)
	Set(ctx context.Context, name string, body []byte) error
}

// JSONStore はレコード列をJSON配列としてBlobStoreに保存するStore実装。
// スキーマのバージョニングは行わず、フィールド単位でそのまま直列化する。
type JSONStore[R any] struct {
	blobs BlobStore
	name  string
}

// NewJSONStore はJSONStoreを生成する。
func NewJSONStore[R any](blobs BlobStore, name string) *JSONStore[R] {
	return &JSONStore[R]{blobs: blobs, name: name}
}

// Load は保存済みのJSON配列を復元する。
func (s *JSONStore[R]) Load(ctx context.Context) ([]R, bool, error) {
	body, ok, err := s.blobs.Get(ctx, s.name)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	var records []R
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, false, fmt.Errorf("%sのデコードに失敗しました: %w", s.name, err)
	}
	return records, true, nil
}

// Save はレコード列をJSON配列として保存する。空の場合も "[]" を書き込む。
func (s *JSONStore[R]) Save(ctx context.Context, records []R) error {
	if records == nil {
		records = []R{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("%sのエンコードに失敗しました: %w", s.name, err)
	}
	return s.blobs.Set(ctx, s.name, body)
}
