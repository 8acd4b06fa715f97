package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/deskpad/internal/calc"
	"github.com/hitoshi/deskpad/internal/config"
	"github.com/hitoshi/deskpad/internal/database"
	"github.com/hitoshi/deskpad/internal/diary"
	"github.com/hitoshi/deskpad/internal/handler"
	"github.com/hitoshi/deskpad/internal/listview"
	"github.com/hitoshi/deskpad/internal/metrics"
	"github.com/hitoshi/deskpad/internal/model"
	"github.com/hitoshi/deskpad/internal/news"
	"github.com/hitoshi/deskpad/internal/portfolio"
	"github.com/hitoshi/deskpad/internal/repository"
	"github.com/hitoshi/deskpad/internal/security"
	"github.com/hitoshi/deskpad/internal/todo"
)

// pingTimeout は起動時のDB疎通確認のタイムアウト。
const pingTimeout = 5 * time.Second

// storage はコレクションの永続化先。DATABASE_URL未設定時はインメモリで、dbはnil。
type storage struct {
	blobs listview.BlobStore
	db    *sql.DB
}

// openStorage は設定に応じて永続化先を開く。
// PostgreSQLの場合は接続確認とマイグレーションの適用まで行う。
func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("DATABASE_URL is not set, using in-memory store",
			slog.Int("max_bytes", cfg.StoreMaxBytes),
		)
		return &storage{blobs: repository.NewMemoryCollectionRepo(cfg.StoreMaxBytes)}, nil
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Ping(ctx, db, pingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("database connection established",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	return &storage{blobs: repository.NewPostgresCollectionRepo(db), db: db}, nil
}

// healthChecker はヘルスチェック対象を返す。インメモリの場合はnil。
func (s *storage) healthChecker() handler.HealthChecker {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// services は各画面のサービスをまとめたもの。
type services struct {
	todo      *todo.Service
	diary     *diary.Service
	calc      *calc.Calculator
	portfolio *portfolio.Service
	news      *news.Service
}

// newServices は全サービスを生成し、永続化済みのコレクションを読み込む。
func newServices(ctx context.Context, cfg *config.Config, blobs listview.BlobStore, collector *metrics.Collector, logger *slog.Logger) (*services, error) {
	fetcher := news.NewFetcher(
		security.NewGuard(),
		security.NewSummarySanitizer(),
		logger,
		cfg.NewsFetchTimeout,
		cfg.NewsFetchMaxSize,
		cfg.NewsRefreshInterval,
	)

	svc := &services{
		todo: todo.NewService(
			listview.NewJSONStore[model.Todo](blobs, todo.CollectionName), collector),
		diary: diary.NewService(
			listview.NewJSONStore[model.DiaryEntry](blobs, diary.CollectionName), collector),
		calc: calc.NewCalculator(collector),
		portfolio: portfolio.NewService(
			listview.NewJSONStore[model.Stock](blobs, portfolio.CollectionName), collector),
		news: news.NewService(
			listview.NewJSONStore[model.Article](blobs, news.CollectionName), collector,
			fetcher, cfg.NewsFeedURLs, collector, logger, cfg.NewsMaxConcurrent),
	}

	loaders := []struct {
		name string
		load func(context.Context) error
	}{
		{todo.CollectionName, svc.todo.Load},
		{diary.CollectionName, svc.diary.Load},
		{portfolio.CollectionName, svc.portfolio.Load},
		{news.CollectionName, svc.news.Load},
	}
	for _, l := range loaders {
		if err := l.load(ctx); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", l.name, err)
		}
	}
	return svc, nil
}
