package listview

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrPersistence は永続化先への書き込みが拒否されたことを示す。
// メモリ上の状態は直前の整合した状態のまま維持される。
var ErrPersistence = errors.New("コレクションの保存に失敗しました")

// Store は永続化コラボレータのインターフェース。
// コレクション全体を1単位として読み書きし、部分書き込みは行わない。
type Store[R any] interface {
	// Load は保存済みのコレクションを返す。未保存の場合はfalseを返す（エラーではない）。
	Load(ctx context.Context) ([]R, bool, error)
	// Save はコレクション全体を保存する。
	Save(ctx context.Context, records []R) error
}

// Observer はコレクションの変更を観測するフック。メトリクス収集に使用する。
type Observer interface {
	ObserveMutation(collection, op string)
	ObservePersistenceFailure(collection string)
}

type noopObserver struct{}

func (noopObserver) ObserveMutation(string, string)   {}
func (noopObserver) ObservePersistenceFailure(string) {}

// Collection はメモリ上の正本となるレコード列と、その永続化先を保持する。
// 保存順は挿入順（新しいものが先頭）で、並び替えは表示側でのみ行う。
// 全ての操作はミューテックスで直列化され、メモリ更新と保存が完了してから次の操作が実行される。
type Collection[K cmp.Ordered, R Record[K]] struct {
	name     string
	store    Store[R]
	observer Observer

	mu      sync.Mutex
	records []R
}

// NewCollection はCollectionを生成する。observerがnilの場合は観測を行わない。
func NewCollection[K cmp.Ordered, R Record[K]](name string, store Store[R], observer Observer) *Collection[K, R] {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Collection[K, R]{
		name:     name,
		store:    store,
		observer: observer,
	}
}

// Name はコレクション名を返す。
func (c *Collection[K, R]) Name() string {
	return c.name
}

// Load は永続化先からコレクション全体を読み込む。
// 未保存の場合は空のコレクションとして扱う。
func (c *Collection[K, R]) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	records, ok, err := c.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("%sの読み込みに失敗しました: %w", c.name, err)
	}
	if !ok {
		records = nil
	}
	c.records = slices.Clone(records)
	return nil
}

// Records はコレクションのスナップショットを返す。
func (c *Collection[K, R]) Records() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.records)
}

// Len はレコード件数を返す。
func (c *Collection[K, R]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// Get はKeyに一致するレコードを返す。
func (c *Collection[K, R]) Get(key K) (R, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(key); i >= 0 {
		return c.records[i], true
	}
	var zero R
	return zero, false
}

// Add はレコードを先頭に追加し、コレクション全体を保存する。
func (c *Collection[K, R]) Add(ctx context.Context, r R) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := make([]R, 0, len(c.records)+1)
	next = append(next, r)
	next = append(next, c.records...)
	return c.commit(ctx, "add", next)
}

// Update はKeyに一致するレコード1件にfnを適用し、コレクション全体を保存する。
// 一致するレコードがない場合は何もせずfalseを返す。
func (c *Collection[K, R]) Update(ctx context.Context, key K, fn func(*R)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return false, nil
	}
	next := slices.Clone(c.records)
	fn(&next[i])
	if err := c.commit(ctx, "update", next); err != nil {
		return false, err
	}
	return true, nil
}

// Delete はKeyに一致するレコード1件を削除し、コレクション全体を保存する。
// 表示中のページ上の位置ではなく、安定したKeyで削除対象を決定する。
// 一致するレコードがない場合は何もせずfalseを返す。
func (c *Collection[K, R]) Delete(ctx context.Context, key K) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(key)
	if i < 0 {
		return false, nil
	}
	next := slices.Delete(slices.Clone(c.records), i, i+1)
	if err := c.commit(ctx, "delete", next); err != nil {
		return false, err
	}
	return true, nil
}

// Replace はコレクション全体をrecordsで置き換えて保存する。
// 外部ソースから取得した内容で一括更新する場合に使用する。
func (c *Collection[K, R]) Replace(ctx context.Context, records []R) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commit(ctx, "replace", slices.Clone(records))
}

// commit はnextを保存し、成功した場合のみメモリ上の状態を置き換える。
// 呼び出し側でc.muを保持していること。
func (c *Collection[K, R]) commit(ctx context.Context, op string, next []R) error {
	if err := c.store.Save(ctx, next); err != nil {
		c.observer.ObservePersistenceFailure(c.name)
		return fmt.Errorf("%w (%s): %w", ErrPersistence, c.name, err)
	}
	c.records = next
	c.observer.ObserveMutation(c.name, op)
	return nil
}

func (c *Collection[K, R]) indexOf(key K) int {
	return slices.IndexFunc(c.records, func(r R) bool {
		return r.Key() == key
	})
}
