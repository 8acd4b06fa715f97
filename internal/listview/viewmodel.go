package listview

import (
	"cmp"
	"errors"
	"sync"
)

// ErrUnknownOrder は未定義の並び順が指定されたことを示す。
var ErrUnknownOrder = errors.New("未定義の並び順です")

// ViewModel はCollectionに画面状態を組み合わせ、表示ページを導出する。
// 画面状態は永続化されず、再読み込みで既定値に戻る。
type ViewModel[K cmp.Ordered, R Record[K]] struct {
	*Collection[K, R]

	orders []Order[R]

	mu     sync.Mutex
	state  ViewState
	filter Predicate[R]
}

// NewViewModel はViewModelを生成する。ordersの先頭が既定の並び順になる。
func NewViewModel[K cmp.Ordered, R Record[K]](c *Collection[K, R], orders ...Order[R]) *ViewModel[K, R] {
	vm := &ViewModel[K, R]{
		Collection: c,
		orders:     orders,
	}
	if len(orders) > 0 {
		vm.state.Sort = orders[0].Name
	}
	return vm
}

// Orders は選択可能な並び順の名前を返す。
func (vm *ViewModel[K, R]) Orders() []string {
	names := make([]string, len(vm.orders))
	for i, o := range vm.orders {
		names[i] = o.Name
	}
	return names
}

// State は現在の画面状態を返す。
func (vm *ViewModel[K, R]) State() ViewState {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.state
}

// SetSearch は検索語を置き換え、先頭ページに戻す。コレクションは変更しない。
func (vm *ViewModel[K, R]) SetSearch(text string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Search = text
	vm.state.Page = 0
}

// SetFilter は検索語とは別の追加フィルタを設定し、先頭ページに戻す。nilで解除する。
func (vm *ViewModel[K, R]) SetFilter(pred Predicate[R]) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.filter = pred
	vm.state.Page = 0
}

// SetSort は表示上の並び順を変更する。保存順と永続化内容は変更しない。
func (vm *ViewModel[K, R]) SetSort(name string) error {
	if _, ok := vm.order(name); !ok {
		return ErrUnknownOrder
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.state.Sort = name
	return nil
}

// SetPage はページ番号を設定する。フィルタ後のページ数の範囲に丸められ、
// 表示対象が空の場合は何もしない。
func (vm *ViewModel[K, R]) SetPage(index int) {
	records := vm.Records()

	vm.mu.Lock()
	defer vm.mu.Unlock()

	order, _ := vm.order(vm.state.Sort)
	page := Derive[K](records, ViewState{Search: vm.state.Search, Sort: vm.state.Sort}, order, vm.filter)
	if page.PageCount == 0 {
		return
	}
	vm.state.Page = clampPage(index, page.PageCount)
}

// View は現在のコレクションと画面状態から表示ページを導出する。
// 削除などでページ数が減った場合は、保持しているページ番号も丸め直す。
func (vm *ViewModel[K, R]) View() Page[R] {
	records := vm.Records()

	vm.mu.Lock()
	defer vm.mu.Unlock()

	order, _ := vm.order(vm.state.Sort)
	page := Derive[K](records, vm.state, order, vm.filter)
	vm.state.Page = page.CurrentPage
	return page
}

func (vm *ViewModel[K, R]) order(name string) (Order[R], bool) {
	for _, o := range vm.orders {
		if o.Name == name {
			return o, true
		}
	}
	return Order[R]{}, false
}
