// Package todo はTodoリストのビジネスロジックを提供する。
package todo

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/model"
)

// CollectionName はTodoコレクションの永続化キー。
const CollectionName = "todoItems"

// 並び順の名前
const (
	SortNewest   = "newest"
	SortOldest   = "oldest"
	SortPriority = "priority"
)

var orders = []listview.Order[model.Todo]{
	{Name: SortNewest, Compare: func(a, b model.Todo) int { return cmp.Compare(b.ID, a.ID) }},
	{Name: SortOldest, Compare: func(a, b model.Todo) int { return cmp.Compare(a.ID, b.ID) }},
	{Name: SortPriority, Compare: func(a, b model.Todo) int { return cmp.Compare(b.Priority, a.Priority) }},
}

// AddInput はTodo追加時の入力。
type AddInput struct {
	Title    string
	Content  string
	Priority int
}

// Service はTodoリストのビューモデルを管理するサービス。
type Service struct {
	vm  *listview.ViewModel[int64, model.Todo]
	now func() time.Time

	idMu   sync.Mutex
	lastID int64
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(store listview.Store[model.Todo], observer listview.Observer) *Service {
	c := listview.NewCollection[int64, model.Todo](CollectionName, store, observer)
	return &Service{
		vm:  listview.NewViewModel(c, orders...),
		now: time.Now,
	}
}

// Load は永続化されたTodoを読み込む。未保存の場合は空のリストになる。
func (s *Service) Load(ctx context.Context) error {
	if err := s.vm.Load(ctx); err != nil {
		return err
	}

	s.idMu.Lock()
	defer s.idMu.Unlock()
	for _, t := range s.vm.Records() {
		s.lastID = max(s.lastID, t.ID)
	}
	return nil
}

// Add は入力を検証してTodoを追加する。
// IDは作成時刻のUnixミリ秒で、同一ミリ秒内でも単調増加する。
func (s *Service) Add(ctx context.Context, in AddInput) (*model.Todo, error) {
	title := strings.TrimSpace(in.Title)
	content := strings.TrimSpace(in.Content)
	if title == "" {
		return nil, model.NewValidationError("title", "タイトルは必須です")
	}
	if content == "" {
		return nil, model.NewValidationError("content", "内容は必須です")
	}

	priority := in.Priority
	if priority == 0 {
		priority = model.DefaultPriority
	}
	if priority < model.MinPriority || priority > model.MaxPriority {
		return nil, model.NewValidationError("priority", "優先度は1から5の範囲で指定してください")
	}

	now := s.now().UTC()
	todo := model.Todo{
		ID:       s.nextID(now),
		Title:    title,
		Content:  content,
		Priority: priority,
		Date:     now.Format(model.DateLayout),
	}

	if err := s.vm.Add(ctx, todo); err != nil {
		return nil, s.persistenceError(err, "add", "id", todo.ID)
	}
	return &todo, nil
}

// Toggle は指定IDのTodoの完了状態を反転する。
// 該当するTodoがない場合は何もせずfalseを返す。
func (s *Service) Toggle(ctx context.Context, id int64) (bool, error) {
	changed, err := s.vm.Update(ctx, id, func(t *model.Todo) { t.Done = !t.Done })
	if err != nil {
		return false, s.persistenceError(err, "toggle", "id", id)
	}
	return changed, nil
}

// Delete は指定IDのTodoを削除する。
// 該当するTodoがない場合は何もせずfalseを返す。
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	changed, err := s.vm.Delete(ctx, id)
	if err != nil {
		return false, s.persistenceError(err, "delete", "id", id)
	}
	return changed, nil
}

// SetSearch は検索語を設定する。
func (s *Service) SetSearch(text string) {
	s.vm.SetSearch(text)
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
func (s *Service) View() listview.Page[model.Todo] {
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

func (s *Service) nextID(now time.Time) int64 {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// persistenceError は保存失敗をAPIErrorに変換する。保存以外のエラーはそのまま返す。
func (s *Service) persistenceError(err error, op string, args ...any) error {
	if !errors.Is(err, listview.ErrPersistence) {
		return err
	}
	slog.Warn("Todoの保存に失敗しました",
		append([]any{slog.String("op", op), slog.String("error", err.Error())}, args...)...,
	)
	return model.NewPersistenceError(CollectionName)
}
