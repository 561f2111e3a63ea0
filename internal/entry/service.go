// Package entry はエントリ閲覧と既読状態管理のドメインロジックを提供する。
package entry

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/hitoshi/feedhub/internal/model"
	"github.com/hitoshi/feedhub/internal/repository"
)

// defaultListLimit は一覧取得のデフォルト件数。
const defaultListLimit = 100

// maxListLimit は一覧取得の最大件数。
const maxListLimit = 500

// Service はエントリ閲覧と既読状態管理のサービス層。
type Service struct {
	profileFeedRepo repository.ProfileFeedRepository
	entryStateRepo  repository.EntryStateRepository
	logger          *slog.Logger
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	profileFeedRepo repository.ProfileFeedRepository,
	entryStateRepo repository.EntryStateRepository,
	logger *slog.Logger,
) *Service {
	return &Service{
		profileFeedRepo: profileFeedRepo,
		entryStateRepo:  entryStateRepo,
		logger:          logger,
	}
}

// ListByProfileFeed は購読フィードのエントリ一覧を既読状態付きで返す。
//
// 状態行はエントリが初めてプロファイルに提示されるこのタイミングで
// 遅延作成される。作成前に取り込まれたエントリも未読として返るため、
// 状態行の作成失敗は一覧の取得自体を妨げない。
func (s *Service) ListByProfileFeed(ctx context.Context, profileID, profileFeedID string, limit int) ([]model.EntryWithState, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	pf, err := s.profileFeedRepo.FindByIDAndProfile(ctx, profileFeedID, profileID)
	if err != nil {
		return nil, model.NewStorageUnavailableError(err.Error())
	}
	if pf == nil {
		return nil, model.NewSubscriptionNotFoundError(profileFeedID)
	}

	// 既読状態行の遅延作成
	if err := s.ensureStates(ctx, profileFeedID); err != nil {
		s.logger.Warn("既読状態行の作成に失敗しました",
			slog.String("profile_feed_id", profileFeedID),
			slog.String("error", err.Error()),
		)
	}

	entries, err := s.entryStateRepo.ListEntriesWithState(ctx, profileFeedID, limit)
	if err != nil {
		return nil, model.NewStorageUnavailableError(err.Error())
	}
	return entries, nil
}

// MarkRead はエントリの既読状態を更新する。冪等で、同じ状態への
// 再更新も成功する。feed_entryが指定プロファイルのどの購読にも
// 属さない場合はENTRY_NOT_FOUNDを返す。
func (s *Service) MarkRead(ctx context.Context, profileID, feedEntryID string, hasRead bool) error {
	updated, err := s.entryStateRepo.UpsertReadState(ctx, uuid.NewString(), profileID, feedEntryID, hasRead)
	if err != nil {
		return model.NewStorageUnavailableError(err.Error())
	}
	if !updated {
		return model.NewEntryNotFoundError(feedEntryID)
	}
	return nil
}

// ensureStates は状態行が無いfeed_entryに対して未読の状態行を一括作成する。
func (s *Service) ensureStates(ctx context.Context, profileFeedID string) error {
	missing, err := s.entryStateRepo.ListMissingStateFeedEntryIDs(ctx, profileFeedID)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}

	states := make([]*model.ProfileFeedEntry, 0, len(missing))
	for _, feedEntryID := range missing {
		states = append(states, &model.ProfileFeedEntry{
			ID:            uuid.NewString(),
			ProfileFeedID: profileFeedID,
			FeedEntryID:   feedEntryID,
			HasRead:       false,
		})
	}
	return s.entryStateRepo.CreateStates(ctx, states)
}
