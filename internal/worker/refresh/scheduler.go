// Package refresh は購読中フィードのバックグラウンド再取り込みを提供する。
package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/feedhub/internal/metrics"
	"github.com/hitoshi/feedhub/internal/model"
	"github.com/hitoshi/feedhub/internal/repository"
)

// FeedRefresherService はフィード再取り込みの実行インターフェース。
type FeedRefresherService interface {
	// RefreshFeed は指定フィードを再取り込みし、正規コンテンツ層を更新する。
	RefreshFeed(ctx context.Context, feed *model.Feed) error
}

// Scheduler はフィード再取り込みのスケジューリングと並列制御を行う。
// 一定間隔のティッカーで購読中フィードを取得し、
// semaphoreパターンで最大並列数を制御しながら再取り込みを実行する。
type Scheduler struct {
	feedRepo       repository.FeedRepository
	refresher      FeedRefresherService
	collector      metrics.MetricsCollector
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
func NewScheduler(
	feedRepo repository.FeedRepository,
	refresher FeedRefresherService,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Scheduler{
		feedRepo:       feedRepo,
		refresher:      refresher,
		collector:      collector,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("リフレッシュスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("リフレッシュサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("リフレッシュスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("リフレッシュサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は購読中フィードを1回取得し、並列で再取り込みを実行する。
// 個々のフィードの失敗はログに記録して続行する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	feeds, err := s.feedRepo.ListSubscribed(ctx)
	if err != nil {
		return err
	}
	s.collector.RecordRefreshCycle()

	if len(feeds) == 0 {
		s.logger.Info("再取り込み対象のフィードはありません")
		return nil
	}

	s.logger.Info("リフレッシュサイクルを開始します",
		slog.Int("feed_count", len(feeds)),
	)

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for _, feed := range feeds {
		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(f *model.Feed) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			if err := s.refresher.RefreshFeed(ctx, f); err != nil {
				s.logger.Error("フィードの再取り込みに失敗しました",
					slog.String("feed_id", f.ID),
					slog.String("feed_link", f.Link),
					slog.String("error", err.Error()),
				)
			}
		}(feed)
	}

	wg.Wait()

	duration := time.Since(start)
	s.logger.Info("リフレッシュサイクルが完了しました",
		slog.Int("feed_count", len(feeds)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
