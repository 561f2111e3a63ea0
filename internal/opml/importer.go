package opml

import (
	"context"
	"io"
	"log/slog"

	"github.com/hitoshi/feedhub/internal/ingest"
)

// ImportResult はOPMLインポートの結果を表す。
// フィード単位の失敗はインポート全体を止めず、失敗リストに集約される。
type ImportResult struct {
	Subscribed int
	Failed     []ImportFailure
}

// ImportFailure はインポートに失敗したフィードの情報。
type ImportFailure struct {
	URL    string
	Reason string
}

// Importer はOPMLファイルの購読一括インポートを行う。
type Importer struct {
	ingest *ingest.Service
	logger *slog.Logger
}

// NewImporter はImporterの新しいインスタンスを生成する。
func NewImporter(ingestService *ingest.Service, logger *slog.Logger) *Importer {
	return &Importer{
		ingest: ingestService,
		logger: logger,
	}
}

// Import はOPMLドキュメントの全フィードを順に購読する。
// 個々のフィードの失敗（フェッチ不可・形式不明など）は記録して続行し、
// コンテキストのキャンセルのみが全体を中断する。
func (i *Importer) Import(ctx context.Context, profileID string, r io.Reader) (*ImportResult, error) {
	feeds, err := Parse(r)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, err := i.ingest.Subscribe(ctx, profileID, feed.URL); err != nil {
			i.logger.Warn("OPMLフィードの購読に失敗しました",
				slog.String("url", feed.URL),
				slog.String("error", err.Error()),
			)
			result.Failed = append(result.Failed, ImportFailure{
				URL:    feed.URL,
				Reason: err.Error(),
			})
			continue
		}
		result.Subscribed++
	}

	i.logger.Info("OPMLインポートが完了しました",
		slog.String("profile_id", profileID),
		slog.Int("subscribed", result.Subscribed),
		slog.Int("failed", len(result.Failed)),
	)
	return result, nil
}
