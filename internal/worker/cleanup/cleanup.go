// Package cleanup はニュース記事の自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した記事を日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Pruner は公開日時がcutoffより古い記事を削除するインターフェース。
// news.Serviceが実装する。
type Pruner interface {
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// CleanupJob は保持期間を超過した記事の自動削除ジョブ。
// 冪等であり、削除対象がない場合でもエラーにならない。
type CleanupJob struct {
	pruner        Pruner
	logger        *slog.Logger
	now           func() time.Time
	RetentionDays int // 記事の保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
func NewCleanupJob(pruner Pruner, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		pruner:        pruner,
		logger:        logger,
		now:           time.Now,
		RetentionDays: 30,
	}
}

// Run は公開日時がRetentionDays日前より古い記事を削除する。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().AddDate(0, 0, -j.RetentionDays)

	deleted, err := j.pruner.PruneOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("記事クリーンアップジョブの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("記事クリーンアップの実行に失敗: %w", err)
	}

	j.logger.Info("記事クリーンアップジョブが完了しました",
		slog.Int("deleted_count", deleted),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start はintervalごとにRunを実行する。コンテキストがキャンセルされるまで継続する。
func (j *CleanupJob) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// エラーはRun内でログに記録済み
			_ = j.Run(ctx)
		}
	}
}
