// Package cleanup は孤立エントリの自動削除ジョブを提供する。
// フィードの削除などでどのフィードからも参照されなくなったエントリを
// 定期バッチで削除する。既読状態はCASCADE削除で自動的に処理される。
package cleanup

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/feedhub/internal/metrics"
	"github.com/hitoshi/feedhub/internal/repository"
)

// OrphanDeleter は孤立エントリ削除のインターフェース。
// repository.FeedRepositoryの部分集合として定義する。
type OrphanDeleter interface {
	DeleteOrphanEntries(ctx context.Context) (int64, error)
}

// Job は孤立エントリの自動削除ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type Job struct {
	deleter   OrphanDeleter
	collector metrics.MetricsCollector
	logger    *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(deleter OrphanDeleter, collector metrics.MetricsCollector, logger *slog.Logger) *Job {
	return &Job{
		deleter:   deleter,
		collector: collector,
		logger:    logger,
	}
}

// Run は孤立エントリを1回削除する。削除対象がない場合もエラーにならない。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	deleted, err := j.deleter.DeleteOrphanEntries(ctx)
	if err != nil {
		j.logger.Error("孤立エントリのクリーンアップに失敗しました",
			slog.String("error", err.Error()),
		)
		return err
	}

	j.collector.RecordOrphansDeleted(deleted)

	j.logger.Info("孤立エントリのクリーンアップが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は指定間隔のティッカーでジョブを定期実行する。
// コンテキストがキャンセルされるまで実行を継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	j.logger.Info("クリーンアップジョブを開始しました",
		slog.Duration("interval", interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("クリーンアップジョブを停止しました")
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Error("クリーンアップジョブの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

var _ OrphanDeleter = (repository.FeedRepository)(nil)
