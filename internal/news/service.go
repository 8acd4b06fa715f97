// Package news はニュースソースの取得と見出しの構成を行う。
// RSS/Atomフィードから記事を取得し、新しい順に重複を除いて保存する。
package news

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/model"
)

// CollectionName は記事コレクションの永続化キー。
const CollectionName = "newsArticles"

// MaxArticles は保存する記事の最大件数。
const MaxArticles = 50

// 見出しの配置
const (
	secondaryCount = 3
	recentCount    = 6
)

// SourceFetcher は1つのソースを取得するインターフェース。
type SourceFetcher interface {
	Fetch(ctx context.Context, src *Source) ([]model.Article, FetchResult, error)
}

// Observer は取得結果を観測するフック。
type Observer interface {
	ObserveFetch(result string, duration time.Duration)
	ObserveArticles(n int)
}

type noopObserver struct{}

func (noopObserver) ObserveFetch(string, time.Duration) {}
func (noopObserver) ObserveArticles(int)                {}

// RefreshResult は1回の更新サイクルの結果。
type RefreshResult struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Articles  int `json:"articles"`
}

// Service はニュースソースの更新と見出しの提供を行う。
type Service struct {
	articles       *listview.Collection[string, model.Article]
	fetcher        SourceFetcher
	observer       Observer
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time

	// refreshMu は更新サイクルを直列化する。ソースの状態はこのロック下でのみ変更する。
	refreshMu sync.Mutex
	sources   []*Source
	updatedAt time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値4を使用する。
func NewService(
	store listview.Store[model.Article],
	collectionObserver listview.Observer,
	fetcher SourceFetcher,
	sourceURLs []string,
	observer Observer,
	logger *slog.Logger,
	maxConcurrency int,
) *Service {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if observer == nil {
		observer = noopObserver{}
	}
	sources := make([]*Source, 0, len(sourceURLs))
	for _, u := range sourceURLs {
		sources = append(sources, NewSource(u))
	}
	return &Service{
		articles:       listview.NewCollection[string, model.Article](CollectionName, store, collectionObserver),
		fetcher:        fetcher,
		observer:       observer,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
		sources:        sources,
	}
}

// Load は保存済みの記事を読み込む。
func (s *Service) Load(ctx context.Context) error {
	return s.articles.Load(ctx)
}

// Refresh は取得対象のソースを並列に取得し、記事を統合して保存する。
// 全ソースの取得に失敗し、保存済みの記事もない場合はNEWS_UNAVAILABLEを返す。
func (s *Service) Refresh(ctx context.Context) (RefreshResult, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	now := s.now()
	var due []*Source
	for _, src := range s.sources {
		if src.Due(now) {
			due = append(due, src)
		}
	}

	result := RefreshResult{Attempted: len(due)}
	if len(due) == 0 {
		result.Articles = s.articles.Len()
		return result, nil
	}

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		fetched []model.Article
	)
	for _, src := range due {
		wg.Add(1)
		sem <- struct{}{}

		go func(src *Source) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			articles, res, err := s.fetcher.Fetch(ctx, src)
			outcome := res.String()
			if err != nil && !errors.Is(err, ErrNotModified) {
				outcome = "error"
			}
			s.observer.ObserveFetch(outcome, time.Since(start))

			mu.Lock()
			defer mu.Unlock()
			if err != nil && !errors.Is(err, ErrNotModified) {
				result.Failed++
				return
			}
			result.Succeeded++
			fetched = append(fetched, articles...)
		}(src)
	}
	wg.Wait()

	merged := Merge(s.articles.Records(), fetched)
	result.Articles = len(merged)

	if len(fetched) > 0 {
		if err := s.articles.Replace(ctx, merged); err != nil {
			if errors.Is(err, listview.ErrPersistence) {
				s.logger.Warn("ニュース記事の保存に失敗しました", slog.String("error", err.Error()))
				return result, model.NewPersistenceError(CollectionName)
			}
			return result, err
		}
		s.updatedAt = now
	}
	s.observer.ObserveArticles(result.Articles)

	s.logger.Info("ニュースの更新が完了しました",
		slog.Int("attempted", result.Attempted),
		slog.Int("succeeded", result.Succeeded),
		slog.Int("failed", result.Failed),
		slog.Int("articles", result.Articles),
	)

	if result.Succeeded == 0 && result.Articles == 0 {
		return result, model.NewNewsUnavailableError()
	}
	return result, nil
}

// Merge は既存の記事と新しく取得した記事を統合する。
// リンクが重複する場合は新しく取得した方を残し、公開日時の新しい順に最大MaxArticles件を返す。
func Merge(existing, fetched []model.Article) []model.Article {
	byLink := make(map[string]model.Article, len(existing)+len(fetched))
	for _, a := range existing {
		byLink[a.Link] = a
	}
	for _, a := range fetched {
		byLink[a.Link] = a
	}

	merged := make([]model.Article, 0, len(byLink))
	for _, a := range byLink {
		merged = append(merged, a)
	}
	slices.SortFunc(merged, func(a, b model.Article) int {
		if c := b.PublishedAt.Compare(a.PublishedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Link, b.Link)
	})
	if len(merged) > MaxArticles {
		merged = merged[:MaxArticles]
	}
	return merged
}

// PruneOlderThan は公開日時がcutoffより古い記事を削除し、削除した件数を返す。
// 削除対象がない場合は保存しない。
func (s *Service) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	records := s.articles.Records()
	kept := slices.DeleteFunc(slices.Clone(records), func(a model.Article) bool {
		return a.PublishedAt.Before(cutoff)
	})
	removed := len(records) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	if err := s.articles.Replace(ctx, kept); err != nil {
		if errors.Is(err, listview.ErrPersistence) {
			return 0, model.NewPersistenceError(CollectionName)
		}
		return 0, err
	}
	s.observer.ObserveArticles(len(kept))
	return removed, nil
}

// Headlines は保存済みの記事をニュース画面の配置（メイン1件、サブ3件、最近6件）に分割する。
// searchが空でない場合はタイトル・概要・ソース名で絞り込んでから配置する。
func (s *Service) Headlines(search string) model.Headlines {
	articles := s.articles.Records()
	if search != "" {
		articles = slices.DeleteFunc(articles, func(a model.Article) bool {
			return !listview.Matches[string](a, search)
		})
	}

	s.refreshMu.Lock()
	updatedAt := s.updatedAt
	s.refreshMu.Unlock()

	h := model.Headlines{
		Secondary: []model.Article{},
		Recent:    []model.Article{},
		UpdatedAt: updatedAt,
	}
	if len(articles) == 0 {
		return h
	}
	first := articles[0]
	h.Main = &first
	h.Secondary = append(h.Secondary, articles[1:min(1+secondaryCount, len(articles))]...)
	if len(articles) > 1+secondaryCount {
		h.Recent = append(h.Recent, articles[1+secondaryCount:min(1+secondaryCount+recentCount, len(articles))]...)
	}
	return h
}

// Sources は各ソースの取得状態のスナップショットを返す。
func (s *Service) Sources() []Source {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	out := make([]Source, len(s.sources))
	for i, src := range s.sources {
		out[i] = *src
	}
	return out
}
