package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/hitoshi/deskpad/internal/config"
	"github.com/hitoshi/deskpad/internal/database"
	"github.com/hitoshi/deskpad/internal/handler"
	"github.com/hitoshi/deskpad/internal/logger"
	"github.com/hitoshi/deskpad/internal/metrics"
	"github.com/hitoshi/deskpad/internal/middleware"
	"github.com/hitoshi/deskpad/internal/worker/cleanup"
	"github.com/hitoshi/deskpad/internal/worker/refresh"
)

const (
	// shutdownTimeout はグレースフルシャットダウンの待機上限。
	shutdownTimeout = 30 * time.Second
	// cleanupInterval は記事クリーンアップの実行間隔。
	cleanupInterval = 24 * time.Hour
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んでログレベルを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, *slog.Logger, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	l := logger.SetupDefault(w)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ログレベルの反映
	logger.SetLevel(cfg.LogLevel)

	return cfg, l, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMで終了する。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, l, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	l.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("postgres", cfg.DatabaseURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandWorker:
		return runWorker(ctx, cfg, l)
	case CommandMigrate:
		return runMigrate(cfg, l)
	default:
		return runServe(ctx, cfg, l, nil)
	}
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、ニュース更新ジョブをバックグラウンドで動かしながらHTTPサーバーを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
// readyが指定された場合は待ち受け開始後にリスナーのアドレスを送る。
func runServe(ctx context.Context, cfg *config.Config, l *slog.Logger, ready chan<- net.Addr) error {
	// 1. 永続化先
	store, err := openStorage(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer store.Close()

	// 2. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 3. ドメインサービス
	svc, err := newServices(ctx, cfg, store.blobs, collector, l)
	if err != nil {
		return err
	}

	// 4. ルーター
	rateLimiter := middleware.NewRateLimiter(rateLimiterConfig(cfg))
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:             l,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        rateLimiter,
		StatusObserver:     collector,
		HealthChecker:      store.healthChecker(),
		MetricsHandler:     metrics.Handler(reg),
		TodoService:        svc.todo,
		DiaryService:       svc.diary,
		Calculator:         svc.calc,
		PortfolioService:   svc.portfolio,
		NewsService:        svc.news,
	})

	// 5. バックグラウンドジョブ
	jobsCtx, cancelJobs := context.WithCancel(ctx)
	defer cancelJobs()
	jobsDone := startJobs(jobsCtx, cfg, svc, l)

	// 6. HTTPサーバー
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", server.Addr, err)
	}
	if ready != nil {
		ready <- ln.Addr()
	}

	serveErr := make(chan error, 1)
	go func() {
		l.Info("API server starting", slog.String("addr", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
	}
	l.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	cancelJobs()
	<-jobsDone

	l.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。HTTPサーバーを持たず、ニュース更新と記事クリーンアップのみを実行する。
// ctxがキャンセルされるまでブロックする。
func runWorker(ctx context.Context, cfg *config.Config, l *slog.Logger) error {
	store, err := openStorage(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer store.Close()

	collector := metrics.NewCollector(prometheus.NewRegistry())
	svc, err := newServices(ctx, cfg, store.blobs, collector, l)
	if err != nil {
		return err
	}

	l.Info("worker starting",
		slog.Duration("refresh_interval", cfg.NewsRefreshInterval),
		slog.Int("max_concurrent", cfg.NewsMaxConcurrent),
		slog.Int("sources", len(cfg.NewsFeedURLs)),
	)

	<-startJobs(ctx, cfg, svc, l)

	l.Info("worker stopped gracefully")
	return nil
}

// startJobs はニュース更新スケジューラと記事クリーンアップジョブを起動する。
// 返されるチャネルは全ジョブの終了時にcloseされる。
func startJobs(ctx context.Context, cfg *config.Config, svc *services, l *slog.Logger) <-chan struct{} {
	scheduler := refresh.NewScheduler(svc.news, l)
	cleanupJob := cleanup.NewCleanupJob(svc.news, l)
	cleanupJob.RetentionDays = cfg.NewsRetentionDays

	done := make(chan struct{})
	go func() {
		defer close(done)

		cleanupDone := make(chan struct{})
		go func() {
			defer close(cleanupDone)
			// 起動直後に1回実行。エラーはRun内でログに記録済み
			_ = cleanupJob.Run(ctx)
			cleanupJob.Start(ctx, cleanupInterval)
		}()

		scheduler.Start(ctx, cfg.NewsRefreshInterval)
		<-cleanupDone
	}()
	return done
}

// runMigrate はデータベースマイグレーションを実行する。
// インメモリストアの場合は何もしない。
func runMigrate(cfg *config.Config, l *slog.Logger) error {
	if cfg.DatabaseURL == "" {
		l.Info("DATABASE_URL is not set, nothing to migrate")
		return nil
	}

	l.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)
	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	l.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	return checkHealth(fmt.Sprintf("http://localhost:%s/health", port))
}

func checkHealth(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// rateLimiterConfig は設定値（req/min）をレート制限設定（req/sec）に変換する。
// バーストは1分間の上限と同じとする。
func rateLimiterConfig(cfg *config.Config) middleware.RateLimiterConfig {
	rl := middleware.DefaultRateLimiterConfig()
	rl.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60)
	rl.GeneralBurst = cfg.RateLimitGeneral
	rl.NewsRefreshRate = rate.Limit(float64(cfg.RateLimitNewsRefresh) / 60)
	rl.NewsRefreshBurst = cfg.RateLimitNewsRefresh
	return rl
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
