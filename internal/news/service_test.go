package news

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/deskpad/internal/model"
)

// --- モック定義 ---

// mockStore はlistview.Storeのテスト用モック。
type mockStore struct {
	mu      sync.Mutex
	records []model.Article
	saved   bool
	saveErr error
}

func (m *mockStore) Load(ctx context.Context) ([]model.Article, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records, m.saved, nil
}

func (m *mockStore) Save(ctx context.Context, records []model.Article) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = records
	m.saved = true
	return nil
}

// mockFetcher はSourceFetcherのテスト用モック。
type mockFetcher struct {
	fetchFn func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
	return m.fetchFn(ctx, src)
}

// mockObserver はObserverのテスト用モック。
type mockObserver struct {
	mu       sync.Mutex
	results  []string
	articles int
}

func (m *mockObserver) ObserveFetch(result string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
}

func (m *mockObserver) ObserveArticles(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles = n
}

var baseTime = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func article(link string, ageMinutes int) model.Article {
	return model.Article{
		Link:        link,
		Title:       "title " + link,
		Description: "description " + link,
		Source:      "Example",
		PublishedAt: baseTime.Add(-time.Duration(ageMinutes) * time.Minute),
	}
}

func newTestService(store *mockStore, fetcher SourceFetcher, urls []string, observer Observer) *Service {
	var buf bytes.Buffer
	s := NewService(store, nil, fetcher, urls, observer, newTestLogger(&buf), 2)
	s.now = func() time.Time { return baseTime }
	return s
}

// TestMerge は記事が新しい順に並び、リンクで重複排除され、上限件数に切り詰められることをテストする。
func TestMerge(t *testing.T) {
	existing := []model.Article{article("a", 30), article("b", 10)}
	updated := article("a", 5)
	updated.Title = "updated"
	fetched := []model.Article{updated, article("c", 20)}

	got := Merge(existing, fetched)
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wantOrder := []string{"a", "b", "c"}
	for i, link := range wantOrder {
		if got[i].Link != link {
			t.Errorf("got[%d].Link = %q, want %q", i, got[i].Link, link)
		}
	}
	if got[0].Title != "updated" {
		t.Errorf("duplicate link kept %q, want fetched version", got[0].Title)
	}
}

// TestMerge_Cap は保存件数がMaxArticlesを超えないことをテストする。
func TestMerge_Cap(t *testing.T) {
	var fetched []model.Article
	for i := range MaxArticles + 10 {
		fetched = append(fetched, article(fmt.Sprintf("https://example.com/%d", i), i))
	}
	got := Merge(nil, fetched)
	if len(got) != MaxArticles {
		t.Fatalf("len = %d, want %d", len(got), MaxArticles)
	}
	if got[0].Link != "https://example.com/0" || got[MaxArticles-1].Link != fmt.Sprintf("https://example.com/%d", MaxArticles-1) {
		t.Errorf("kept wrong articles: first=%s last=%s", got[0].Link, got[MaxArticles-1].Link)
	}
}

// TestService_Refresh は全ソースを取得し、記事を統合して保存することをテストする。
func TestService_Refresh(t *testing.T) {
	store := &mockStore{}
	obs := &mockObserver{}
	fetcher := &mockFetcher{fetchFn: func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
		src.ApplySuccess(baseTime, 15*time.Minute)
		return []model.Article{article(src.URL+"/1", 1), article(src.URL+"/2", 2)}, FetchResultOK, nil
	}}
	s := newTestService(store, fetcher, []string{"https://a.example", "https://b.example"}, obs)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	result, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.Attempted != 2 || result.Succeeded != 2 || result.Failed != 0 || result.Articles != 4 {
		t.Errorf("result = %+v", result)
	}
	if len(store.records) != 4 {
		t.Errorf("persisted %d articles, want 4", len(store.records))
	}
	if obs.articles != 4 || len(obs.results) != 2 {
		t.Errorf("observer = %+v", obs)
	}

	// 次回取得時刻前のソースは取得しない
	result, err = s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("second Refresh returned error: %v", err)
	}
	if result.Attempted != 0 || result.Articles != 4 {
		t.Errorf("second result = %+v, want nothing attempted", result)
	}
}

// TestService_RefreshConcurrencyLimit は同時取得数がmaxConcurrencyを超えないことをテストする。
func TestService_RefreshConcurrencyLimit(t *testing.T) {
	var current, peak atomic.Int32
	fetcher := &mockFetcher{fetchFn: func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		current.Add(-1)
		return []model.Article{article(src.URL, 1)}, FetchResultOK, nil
	}}
	urls := []string{"https://1.example", "https://2.example", "https://3.example", "https://4.example", "https://5.example"}
	s := newTestService(&mockStore{}, fetcher, urls, nil)

	if _, err := s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if peak.Load() > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", peak.Load())
	}
}

// TestService_RefreshPartialFailure は一部のソースが失敗しても残りの記事が保存されることをテストする。
func TestService_RefreshPartialFailure(t *testing.T) {
	store := &mockStore{}
	fetcher := &mockFetcher{fetchFn: func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
		if src.URL == "https://bad.example" {
			src.ApplyBackoff(baseTime, "503")
			return nil, FetchResultBackoff, model.NewFetchFailedError("503")
		}
		return []model.Article{article("https://good.example/1", 1)}, FetchResultOK, nil
	}}
	s := newTestService(store, fetcher, []string{"https://good.example", "https://bad.example"}, nil)

	result, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 1 || result.Articles != 1 {
		t.Errorf("result = %+v", result)
	}

	sources := s.Sources()
	if sources[1].ConsecutiveErrors != 1 {
		t.Errorf("bad source errors = %d, want 1", sources[1].ConsecutiveErrors)
	}
}

// TestService_RefreshUnavailable は記事が1件もない状態で全ソースが失敗した場合にNEWS_UNAVAILABLEを返すことをテストする。
func TestService_RefreshUnavailable(t *testing.T) {
	fetcher := &mockFetcher{fetchFn: func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
		return nil, FetchResultBackoff, model.NewFetchFailedError("timeout")
	}}
	s := newTestService(&mockStore{}, fetcher, []string{"https://a.example"}, nil)

	_, err := s.Refresh(context.Background())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeNewsUnavailable {
		t.Fatalf("error = %v, want NEWS_UNAVAILABLE", err)
	}
}

// TestService_RefreshKeepsStoredArticles は全ソースが失敗しても保存済みの記事が残ることをテストする。
func TestService_RefreshKeepsStoredArticles(t *testing.T) {
	store := &mockStore{records: []model.Article{article("https://old.example/1", 60)}, saved: true}
	fetcher := &mockFetcher{fetchFn: func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
		return nil, FetchResultBackoff, model.NewFetchFailedError("timeout")
	}}
	s := newTestService(store, fetcher, []string{"https://a.example"}, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	result, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.Articles != 1 {
		t.Errorf("articles = %d, want 1", result.Articles)
	}
	if h := s.Headlines(""); h.Main == nil || h.Main.Link != "https://old.example/1" {
		t.Errorf("Headlines().Main = %+v, want stored article", h.Main)
	}
}

// TestService_RefreshNotModified は304のソースが成功として数えられることをテストする。
func TestService_RefreshNotModified(t *testing.T) {
	store := &mockStore{records: []model.Article{article("https://a.example/1", 60)}, saved: true}
	fetcher := &mockFetcher{fetchFn: func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
		return nil, FetchResultNotModified, ErrNotModified
	}}
	s := newTestService(store, fetcher, []string{"https://a.example"}, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	result, err := s.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh returned error: %v", err)
	}
	if result.Succeeded != 1 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
}

// TestService_RefreshPersistenceFailure は保存失敗時にPERSISTENCE_FAILEDを返し、表示中の記事が変わらないことをテストする。
func TestService_RefreshPersistenceFailure(t *testing.T) {
	store := &mockStore{records: []model.Article{article("https://old.example/1", 60)}, saved: true}
	fetcher := &mockFetcher{fetchFn: func(ctx context.Context, src *Source) ([]model.Article, FetchResult, error) {
		return []model.Article{article("https://new.example/1", 1)}, FetchResultOK, nil
	}}
	s := newTestService(store, fetcher, []string{"https://a.example"}, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	store.saveErr = errors.New("quota exceeded")

	_, err := s.Refresh(context.Background())
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodePersistenceFailed {
		t.Fatalf("error = %v, want PERSISTENCE_FAILED", err)
	}
	if h := s.Headlines(""); h.Main == nil || h.Main.Link != "https://old.example/1" {
		t.Errorf("Headlines().Main = %+v, want previous article", h.Main)
	}
}

// TestService_Headlines は記事がメイン1件、サブ3件、最近6件に配置されることをテストする。
func TestService_Headlines(t *testing.T) {
	var records []model.Article
	for i := range 12 {
		records = append(records, article(fmt.Sprintf("https://example.com/%d", i), i))
	}
	store := &mockStore{records: records, saved: true}
	s := newTestService(store, &mockFetcher{}, nil, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	h := s.Headlines("")
	if h.Main == nil || h.Main.Link != "https://example.com/0" {
		t.Fatalf("Main = %+v", h.Main)
	}
	if len(h.Secondary) != 3 || h.Secondary[0].Link != "https://example.com/1" {
		t.Errorf("Secondary = %+v", h.Secondary)
	}
	if len(h.Recent) != 6 || h.Recent[0].Link != "https://example.com/4" || h.Recent[5].Link != "https://example.com/9" {
		t.Errorf("Recent = %+v", h.Recent)
	}
}

// TestService_HeadlinesFewArticles は記事が少ない場合に空のスライスが返されることをテストする。
func TestService_HeadlinesFewArticles(t *testing.T) {
	s := newTestService(&mockStore{}, &mockFetcher{}, nil, nil)
	h := s.Headlines("")
	if h.Main != nil || h.Secondary == nil || len(h.Secondary) != 0 || h.Recent == nil || len(h.Recent) != 0 {
		t.Errorf("empty headlines = %+v", h)
	}

	store := &mockStore{records: []model.Article{article("a", 1), article("b", 2)}, saved: true}
	s = newTestService(store, &mockFetcher{}, nil, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	h = s.Headlines("")
	if h.Main == nil || len(h.Secondary) != 1 || len(h.Recent) != 0 {
		t.Errorf("headlines = %+v", h)
	}
}

// TestService_HeadlinesSearch は検索語で絞り込んでから配置されることをテストする。
func TestService_HeadlinesSearch(t *testing.T) {
	a := article("https://example.com/go", 1)
	a.Title = "Go 1.26 released"
	b := article("https://example.com/rust", 2)
	b.Title = "Rust news"
	store := &mockStore{records: []model.Article{a, b}, saved: true}
	s := newTestService(store, &mockFetcher{}, nil, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	h := s.Headlines("go 1.26")
	if h.Main == nil || h.Main.Link != a.Link || len(h.Secondary) != 0 {
		t.Errorf("headlines = %+v", h)
	}
}

// TestService_PruneOlderThan は保持期間を過ぎた記事だけが削除されることをテストする。
func TestService_PruneOlderThan(t *testing.T) {
	store := &mockStore{records: []model.Article{article("new", 10), article("old", 60*24*40)}, saved: true}
	s := newTestService(store, &mockFetcher{}, nil, nil)
	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	removed, err := s.PruneOlderThan(context.Background(), baseTime.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("PruneOlderThan returned error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if len(store.records) != 1 || store.records[0].Link != "new" {
		t.Errorf("persisted = %+v, want only new", store.records)
	}

	removed, err = s.PruneOlderThan(context.Background(), baseTime.AddDate(0, 0, -30))
	if err != nil || removed != 0 {
		t.Errorf("second PruneOlderThan = (%d, %v), want (0, nil)", removed, err)
	}
}
