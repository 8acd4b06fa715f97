package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker はストレージの疎通確認のインターフェース。*sql.DBが実装する。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// healthCheckTimeout はヘルスチェック時のDB疎通確認のタイムアウト。
const healthCheckTimeout = 2 * time.Second

type healthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// NewHealthHandler はヘルスチェックハンドラーを返す。
// checkerがnilの場合（インメモリストア）は常にokを返す。
// GET /health
func NewHealthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Storage: "memory"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := checker.PingContext(ctx); err != nil {
			slog.Warn("health check failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Storage: "postgres"})
			return
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Storage: "postgres"})
	}
}
