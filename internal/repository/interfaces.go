// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
)

// ErrQuotaExceeded は保存容量の上限を超える書き込みが拒否されたことを示す。
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// CollectionRepository はコレクション単位のキーバリュー永続化インターフェース。
// 値はJSONテキストで、書き込みは常にコレクション全体を置き換える。
type CollectionRepository interface {
	// Get は指定名のコレクションを取得する。未保存の場合はfalseを返す（エラーではない）。
	Get(ctx context.Context, name string) ([]byte, bool, error)

	// Set は指定名のコレクション全体を保存する。
	Set(ctx context.Context, name string, body []byte) error
}
