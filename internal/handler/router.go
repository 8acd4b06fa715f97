package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hitoshi/deskpad/internal/middleware"
	"github.com/hitoshi/deskpad/internal/model"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger             *slog.Logger
	CORSAllowedOrigins []string
	RateLimiter        *middleware.RateLimiter
	StatusObserver     middleware.StatusObserver

	// ヘルスチェック・メトリクス（nil可）
	HealthChecker  HealthChecker
	MetricsHandler http.Handler

	// 各画面のサービス
	TodoService      TodoServiceInterface
	DiaryService     DiaryServiceInterface
	Calculator       CalculatorInterface
	PortfolioService PortfolioServiceInterface
	NewsService      NewsServiceInterface
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の対象外とする。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger, deps.StatusObserver))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIErrorResponse(w, http.StatusNotFound, model.NewNotFoundError())
	})

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	todoHandler := NewTodoHandler(deps.TodoService)
	diaryHandler := NewDiaryHandler(deps.DiaryService)
	calcHandler := NewCalcHandler(deps.Calculator)
	portfolioHandler := NewPortfolioHandler(deps.PortfolioService)
	newsHandler := NewNewsHandler(deps.NewsService)

	r.Route("/api", func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// Todoリスト
		r.Route("/todos", func(r chi.Router) {
			r.Get("/", todoHandler.List)
			r.Post("/", todoHandler.Add)
			r.Post("/{id}/toggle", todoHandler.Toggle)
			r.Delete("/{id}", todoHandler.Delete)
		})

		// 日記
		r.Route("/diary", func(r chi.Router) {
			r.Get("/", diaryHandler.List)
			r.Post("/", diaryHandler.Add)
			r.Delete("/{id}", diaryHandler.Delete)
		})

		// 電卓
		r.Route("/calc", func(r chi.Router) {
			r.Post("/", calcHandler.Evaluate)
			r.Get("/history", calcHandler.History)
			r.Delete("/history", calcHandler.ClearHistory)
		})

		// ポートフォリオ
		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/", portfolioHandler.List)
			r.Post("/", portfolioHandler.Add)
			r.Delete("/{id}", portfolioHandler.Delete)
		})

		// ニュース（手動更新は専用レート制限を追加）
		r.Route("/news", func(r chi.Router) {
			r.Get("/", newsHandler.Headlines)
			r.Get("/sources", newsHandler.Sources)
			r.With(deps.RateLimiter.NewsRefreshMiddleware()).Post("/refresh", newsHandler.Refresh)
		})
	})

	return r
}
