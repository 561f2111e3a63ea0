// Package ingest はフィード取り込みのドメインロジックを提供する。
//
// 取り込みは prepare → fetch/parse → extract → postprocess → persist の
// パイプラインで進み、postprocessを通過するまでストレージへの書き込みは
// 一切行わない。途中の失敗は部分的な書き込みを残さない。
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/feedhub/internal/document"
	"github.com/hitoshi/feedhub/internal/fetcher"
	"github.com/hitoshi/feedhub/internal/model"
	"github.com/hitoshi/feedhub/internal/repository"
	"github.com/hitoshi/feedhub/internal/scraper"
)

// SubscriptionResult は購読操作の結果を表す。
type SubscriptionResult struct {
	ProfileFeedID string
	FeedID        string
	FeedLink      string
	FeedTitle     string
	Created       bool // 新規購読ならtrue（再購読はfalse）
	EntryCount    int  // この取り込みで処理したエントリ数
	UnreadCount   int  // プロファイル視点の未読数（再購読では既読分が引かれる）
}

// Service はフィード取り込みのサービス層。
type Service struct {
	fetcher         fetcher.Service
	parser          *document.Parser
	registry        *scraper.Registry
	feedRepo        repository.FeedRepository
	profileFeedRepo repository.ProfileFeedRepository
	profileRepo     repository.ProfileRepository
	logger          *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	f fetcher.Service,
	parser *document.Parser,
	registry *scraper.Registry,
	feedRepo repository.FeedRepository,
	profileFeedRepo repository.ProfileFeedRepository,
	profileRepo repository.ProfileRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		fetcher:         f,
		parser:          parser,
		registry:        registry,
		feedRepo:        feedRepo,
		profileFeedRepo: profileFeedRepo,
		profileRepo:     profileRepo,
		logger:          logger,
	}
}

// Subscribe はURLのフィードを取り込み、プロファイルの購読として登録する。
//
// 各ステージの前にコンテキストのキャンセルを確認する。postprocessを
// 通過するまで書き込みは発生しないため、キャンセル・失敗した購読が
// 部分的なレコードを残すことはない。
// 同じフィードへの再購読は冪等で、既存の購読がそのまま返る。
func (s *Service) Subscribe(ctx context.Context, profileID, feedURL string) (*SubscriptionResult, error) {
	host, err := hostOf(feedURL)
	if err != nil {
		return nil, model.NewInvalidURLError(err.Error())
	}
	scr := s.registry.Resolve(host)

	processed, err := s.runPipeline(ctx, scr, feedURL, true)
	if err != nil {
		return nil, err
	}

	// persist: 依存順（feed → entries → 関連 → 購読）に書き込む
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := s.profileRepo.Ensure(ctx, &model.Profile{ID: profileID}); err != nil {
		return nil, storageError(err)
	}

	feedID, entryCount, err := s.persistCanonical(ctx, processed)
	if err != nil {
		return nil, err
	}

	profileFeedID, created, err := s.profileFeedRepo.Upsert(ctx, &model.ProfileFeed{
		ID:        uuid.NewString(),
		ProfileID: profileID,
		FeedID:    feedID,
	})
	if err != nil {
		return nil, storageError(err)
	}

	// 未読数は取り込んだエントリ数ではなくプロファイル視点で数える。
	// 再購読では既読済みエントリが残っているため、購読ビューを引き直す。
	unreadCount := entryCount
	view, err := s.profileFeedRepo.FindSubscribedByID(ctx, profileFeedID, profileID)
	if err != nil {
		return nil, storageError(err)
	}
	if view != nil {
		unreadCount = view.UnreadCount
	}

	s.logger.Info("購読を登録しました",
		slog.String("profile_id", profileID),
		slog.String("feed_id", feedID),
		slog.Bool("created", created),
		slog.Int("entry_count", entryCount),
		slog.Int("unread_count", unreadCount),
	)

	return &SubscriptionResult{
		ProfileFeedID: profileFeedID,
		FeedID:        feedID,
		FeedLink:      processed.Link.String(),
		FeedTitle:     processed.Title,
		Created:       created,
		EntryCount:    entryCount,
		UnreadCount:   unreadCount,
	}, nil
}

// List はプロファイルの購読一覧をフィード情報と未読数付きで返す。
func (s *Service) List(ctx context.Context, profileID string) ([]model.SubscribedFeed, error) {
	subscribed, err := s.profileFeedRepo.ListByProfile(ctx, profileID)
	if err != nil {
		return nil, storageError(err)
	}
	return subscribed, nil
}

// Unsubscribe は購読を解除する。配下の既読状態はCASCADE削除されるが、
// 正規コンテンツ層（フィード・エントリ）には影響しない。
// 他プロファイルの購読は存在しないものとして扱う。
func (s *Service) Unsubscribe(ctx context.Context, profileID, profileFeedID string) error {
	deleted, err := s.profileFeedRepo.DeleteByIDAndProfile(ctx, profileFeedID, profileID)
	if err != nil {
		return storageError(err)
	}
	if !deleted {
		return model.NewSubscriptionNotFoundError(profileFeedID)
	}

	s.logger.Info("購読を解除しました",
		slog.String("profile_id", profileID),
		slog.String("profile_feed_id", profileFeedID),
	)
	return nil
}

// RefreshFeed は既存フィードを再取り込みする。リフレッシュワーカー用。
// 正規コンテンツ層のみを更新し、購読・既読状態には触れない。
// UPSERTベースのため既知エントリとの重複は吸収され、更新は上書きされる。
func (s *Service) RefreshFeed(ctx context.Context, feed *model.Feed) error {
	host, err := hostOf(feed.Link)
	if err != nil {
		return model.NewInvalidURLError(err.Error())
	}
	scr := s.registry.Resolve(host)

	// リフレッシュでは自動検出は行わない（登録時に解決済みのURLを使う）
	processed, err := s.runPipeline(ctx, scr, feed.Link, false)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	_, entryCount, err := s.persistCanonical(ctx, processed)
	if err != nil {
		return err
	}

	s.logger.Info("フィードを再取り込みしました",
		slog.String("feed_id", feed.ID),
		slog.String("feed_link", feed.Link),
		slog.Int("entry_count", entryCount),
	)
	return nil
}

// runPipeline は prepare → fetch → parse → extract → postprocess を実行する。
// allowDiscoveryがtrueの場合、HTMLドキュメントに対して1回だけ
// フィード自動検出を行い、検出したURLで再試行する（再帰はしない）。
func (s *Service) runPipeline(ctx context.Context, scr scraper.Scraper, feedURL string, allowDiscovery bool) (*model.ProcessedFeed, error) {
	// prepare
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	req, err := scr.Prepare(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	// fetch + parse
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := s.fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	doc, err := s.parser.Parse(resp)
	if err != nil {
		return nil, err
	}

	// HTMLページの場合はheadからフィードを自動検出して1回だけ辿る
	if doc.Kind == document.KindHTML {
		if !allowDiscovery {
			return nil, model.NewUnsupportedDocumentError()
		}
		discovered := discoverFeedURL(doc, feedURL)
		if discovered == "" {
			return nil, model.NewUnsupportedDocumentError()
		}

		s.logger.Info("HTMLからフィードを検出しました",
			slog.String("page_url", feedURL),
			slog.String("feed_url", discovered),
		)

		host, err := hostOf(discovered)
		if err != nil {
			return nil, model.NewInvalidURLError(err.Error())
		}
		return s.runPipeline(ctx, s.registry.Resolve(host), discovered, false)
	}

	// extract
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	extracted, err := scr.Extract(feedURL, doc)
	if err != nil {
		return nil, err
	}

	// postprocess
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return scr.Postprocess(feedURL, extracted)
}

// persistCanonical は検証済みレコードを正規コンテンツ層にUPSERTする。
// feed → entries → feed_entries の依存順で書き込み、正規のフィードIDと
// 取り込んだエントリ数を返す。
func (s *Service) persistCanonical(ctx context.Context, processed *model.ProcessedFeed) (string, int, error) {
	feed := &model.Feed{
		ID:    uuid.NewString(),
		Link:  processed.Link.String(),
		Title: processed.Title,
	}
	if processed.SiteURL != nil {
		feed.SiteURL = processed.SiteURL.String()
	}

	feedID, err := s.feedRepo.UpsertFeed(ctx, feed)
	if err != nil {
		return "", 0, storageError(err)
	}

	for _, pe := range processed.Entries {
		entry := &model.Entry{
			ID:          uuid.NewString(),
			Link:        pe.Link.String(),
			Title:       pe.Title,
			PublishedAt: pe.PublishedAt,
			Description: pe.Description,
			Author:      pe.Author,
		}
		if pe.Thumbnail != nil {
			entry.ThumbnailURL = pe.Thumbnail.String()
		}

		entryID, err := s.feedRepo.UpsertEntry(ctx, entry)
		if err != nil {
			return "", 0, storageError(err)
		}

		if _, err := s.feedRepo.UpsertFeedEntry(ctx, &model.FeedEntry{
			ID:      uuid.NewString(),
			FeedID:  feedID,
			EntryID: entryID,
		}); err != nil {
			return "", 0, storageError(err)
		}
	}

	return feedID, len(processed.Entries), nil
}

// hostOf はURLからホスト名を取り出す。
func hostOf(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("http/httpsの絶対URLではありません: %s", rawURL)
	}
	return parsed.Hostname(), nil
}

// storageError はストレージ層のエラーをAPIエラーに分類する。
// UPSERT経路で吸収されなかった一意制約違反はCONFLICT、
// それ以外（接続断など）はSTORAGE_UNAVAILABLEとして報告する。
func storageError(err error) error {
	if repository.IsUniqueViolation(err) {
		return model.NewConflictError(err.Error())
	}
	return model.NewStorageUnavailableError(err.Error())
}
