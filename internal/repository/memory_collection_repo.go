package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryCollectionRepo はプロセス内メモリを使用したコレクションリポジトリ。
// DATABASE_URL未設定時とテストで使用する。
// maxBytesが正の場合、全コレクションの合計サイズがこれを超える書き込みを拒否する。
type MemoryCollectionRepo struct {
	maxBytes int

	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryCollectionRepo はMemoryCollectionRepoを生成する。maxBytesが0以下の場合は無制限。
func NewMemoryCollectionRepo(maxBytes int) *MemoryCollectionRepo {
	return &MemoryCollectionRepo{
		maxBytes: maxBytes,
		blobs:    make(map[string][]byte),
	}
}

// Get は指定名のコレクションを取得する。未保存の場合はfalseを返す。
func (r *MemoryCollectionRepo) Get(_ context.Context, name string) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	body, ok := r.blobs[name]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(body), true, nil
}

// Set は指定名のコレクション全体を保存する。
// 容量上限を超える場合はErrQuotaExceededを返し、既存の値は変更しない。
func (r *MemoryCollectionRepo) Set(ctx context.Context, name string, body []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.maxBytes > 0 {
		size := r.sizeLocked() - len(r.blobs[name]) + len(body)
		if size > r.maxBytes {
			return fmt.Errorf("%w: collection %q would use %d of %d bytes", ErrQuotaExceeded, name, size, r.maxBytes)
		}
	}
	r.blobs[name] = slices.Clone(body)
	return nil
}

// Size は保存済みの全コレクションの合計バイト数を返す。
func (r *MemoryCollectionRepo) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sizeLocked()
}

func (r *MemoryCollectionRepo) sizeLocked() int {
	total := 0
	for _, b := range r.blobs {
		total += len(b)
	}
	return total
}
