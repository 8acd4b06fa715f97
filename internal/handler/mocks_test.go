package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/deskpad/internal/calc"
	"github.com/hitoshi/deskpad/internal/diary"
	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/middleware"
	"github.com/hitoshi/deskpad/internal/model"
	"github.com/hitoshi/deskpad/internal/news"
	"github.com/hitoshi/deskpad/internal/portfolio"
	"github.com/hitoshi/deskpad/internal/todo"
)

// --- モック定義 ---

// mockTodoService はTodoServiceInterfaceのテスト用モック。
type mockTodoService struct {
	addFn     func(ctx context.Context, in todo.AddInput) (*model.Todo, error)
	toggleFn  func(ctx context.Context, id int64) (bool, error)
	deleteFn  func(ctx context.Context, id int64) (bool, error)
	setSortFn func(name string) error
	calls     []string
	state     listview.ViewState
	page      listview.Page[model.Todo]
}

func (m *mockTodoService) Add(ctx context.Context, in todo.AddInput) (*model.Todo, error) {
	if m.addFn != nil {
		return m.addFn(ctx, in)
	}
	return &model.Todo{ID: 1, Title: in.Title}, nil
}

func (m *mockTodoService) Toggle(ctx context.Context, id int64) (bool, error) {
	if m.toggleFn != nil {
		return m.toggleFn(ctx, id)
	}
	return true, nil
}

func (m *mockTodoService) Delete(ctx context.Context, id int64) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockTodoService) SetSearch(text string) {
	m.calls = append(m.calls, "search:"+text)
	m.state.Search = text
	m.state.Page = 0
}

func (m *mockTodoService) SetSort(name string) error {
	m.calls = append(m.calls, "sort:"+name)
	if m.setSortFn != nil {
		return m.setSortFn(name)
	}
	m.state.Sort = name
	return nil
}

func (m *mockTodoService) SetPage(index int) {
	m.calls = append(m.calls, "page")
	m.state.Page = index
}

func (m *mockTodoService) View() listview.Page[model.Todo] {
	p := m.page
	p.CurrentPage = m.state.Page
	return p
}

func (m *mockTodoService) State() listview.ViewState { return m.state }
func (m *mockTodoService) Sorts() []string           { return []string{todo.SortNewest, todo.SortOldest, todo.SortPriority} }

// mockDiaryService はDiaryServiceInterfaceのテスト用モック。
type mockDiaryService struct {
	addFn        func(ctx context.Context, in diary.AddInput) (*model.DiaryEntry, error)
	deleteFn     func(ctx context.Context, id string) (bool, error)
	setDateFn    func(date string) error
	date         string
	state        listview.ViewState
	page         listview.Page[model.DiaryEntry]
	deletedIDArg string
}

func (m *mockDiaryService) Add(ctx context.Context, in diary.AddInput) (*model.DiaryEntry, error) {
	if m.addFn != nil {
		return m.addFn(ctx, in)
	}
	return &model.DiaryEntry{ID: "entry-1", Date: in.Date, Mood: in.Mood, Content: in.Content}, nil
}

func (m *mockDiaryService) Delete(ctx context.Context, id string) (bool, error) {
	m.deletedIDArg = id
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockDiaryService) SetSearch(text string) { m.state.Search = text }

func (m *mockDiaryService) SetDateFilter(date string) error {
	if m.setDateFn != nil {
		if err := m.setDateFn(date); err != nil {
			return err
		}
	}
	m.date = date
	return nil
}

func (m *mockDiaryService) DateFilter() string { return m.date }

func (m *mockDiaryService) SetSort(name string) error {
	m.state.Sort = name
	return nil
}

func (m *mockDiaryService) SetPage(index int)                     { m.state.Page = index }
func (m *mockDiaryService) View() listview.Page[model.DiaryEntry] { return m.page }
func (m *mockDiaryService) State() listview.ViewState             { return m.state }
func (m *mockDiaryService) Sorts() []string                       { return []string{diary.SortDesc, diary.SortAsc} }

// mockCalculator はCalculatorInterfaceのテスト用モック。
type mockCalculator struct {
	evaluateFn func(input string) (calc.Entry, error)
	history    []calc.Entry
	cleared    bool
}

func (m *mockCalculator) Evaluate(input string) (calc.Entry, error) {
	if m.evaluateFn != nil {
		return m.evaluateFn(input)
	}
	return calc.Entry{Input: input}, nil
}

func (m *mockCalculator) History() []calc.Entry { return m.history }
func (m *mockCalculator) Clear()                { m.cleared = true }

// mockPortfolioService はPortfolioServiceInterfaceのテスト用モック。
type mockPortfolioService struct {
	addFn      func(ctx context.Context, in portfolio.AddInput) (*model.Stock, error)
	deleteFn   func(ctx context.Context, id string) (bool, error)
	stocks     []model.Stock
	allocation model.Allocation
}

func (m *mockPortfolioService) Add(ctx context.Context, in portfolio.AddInput) (*model.Stock, error) {
	if m.addFn != nil {
		return m.addFn(ctx, in)
	}
	return &model.Stock{ID: "stock-1", Name: in.Name, Value: in.Value}, nil
}

func (m *mockPortfolioService) Delete(ctx context.Context, id string) (bool, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return true, nil
}

func (m *mockPortfolioService) List() []model.Stock          { return m.stocks }
func (m *mockPortfolioService) Allocation() model.Allocation { return m.allocation }

// mockNewsService はNewsServiceInterfaceのテスト用モック。
type mockNewsService struct {
	refreshFn  func(ctx context.Context) (news.RefreshResult, error)
	headlines  model.Headlines
	searchArg  string
	sources    []news.Source
	refreshCnt int
}

func (m *mockNewsService) Refresh(ctx context.Context) (news.RefreshResult, error) {
	m.refreshCnt++
	if m.refreshFn != nil {
		return m.refreshFn(ctx)
	}
	return news.RefreshResult{}, nil
}

func (m *mockNewsService) Headlines(search string) model.Headlines {
	m.searchArg = search
	return m.headlines
}

func (m *mockNewsService) Sources() []news.Source { return m.sources }

// mockHealthChecker はHealthCheckerのテスト用モック。
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(ctx context.Context) error { return m.err }

// --- テストヘルパー ---

type testDeps struct {
	todo      *mockTodoService
	diary     *mockDiaryService
	calc      *mockCalculator
	portfolio *mockPortfolioService
	news      *mockNewsService
	deps      *RouterDeps
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	var buf bytes.Buffer
	td := &testDeps{
		todo:      &mockTodoService{state: listview.ViewState{Sort: todo.SortNewest}},
		diary:     &mockDiaryService{state: listview.ViewState{Sort: diary.SortDesc}},
		calc:      &mockCalculator{},
		portfolio: &mockPortfolioService{},
		news:      &mockNewsService{},
	}
	td.deps = &RouterDeps{
		Logger:           slog.New(slog.NewJSONHandler(&buf, nil)),
		RateLimiter:      rl,
		TodoService:      td.todo,
		DiaryService:     td.diary,
		Calculator:       td.calc,
		PortfolioService: td.portfolio,
		NewsService:      td.news,
	}
	return td
}

func (td *testDeps) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	NewRouter(td.deps).ServeHTTP(w, req)
	return w
}
