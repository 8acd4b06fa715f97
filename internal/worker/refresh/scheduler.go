// Package refresh はニュースソースのバックグラウンド更新を提供する。
package refresh

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/deskpad/internal/news"
)

// Refresher はニュース更新サイクルの実行インターフェース。
type Refresher interface {
	Refresh(ctx context.Context) (news.RefreshResult, error)
}

// Scheduler は一定間隔でニュース更新サイクルを実行する。
// 並列数の制御はRefresher側で行う。
type Scheduler struct {
	refresher Refresher
	logger    *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(refresher Refresher, logger *slog.Logger) *Scheduler {
	return &Scheduler{refresher: refresher, logger: logger}
}

// Start はintervalごとのティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("ニュース更新スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("ニュース更新スケジューラを停止しました")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce は更新サイクルを1回実行する。失敗はログに記録し、次のサイクルで再試行する。
func (s *Scheduler) RunOnce(ctx context.Context) {
	start := time.Now()
	result, err := s.refresher.Refresh(ctx)
	if err != nil {
		s.logger.Error("ニュース更新サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("failed", result.Failed),
		)
		return
	}
	s.logger.Info("ニュース更新サイクルが完了しました",
		slog.Int("attempted", result.Attempted),
		slog.Int("articles", result.Articles),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
}
