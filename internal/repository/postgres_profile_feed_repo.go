package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedhub/internal/model"
)

// PostgresProfileFeedRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresProfileFeedRepo struct {
	db *sql.DB
}

// NewPostgresProfileFeedRepo はPostgresProfileFeedRepoを生成する。
func NewPostgresProfileFeedRepo(db *sql.DB) *PostgresProfileFeedRepo {
	return &PostgresProfileFeedRepo{db: db}
}

// Upsert は購読を(profile_id, feed_id)の一意制約でUPSERTする。
// 再購読は冪等で、既存の購読を変更しない（DO NOTHING）。
func (r *PostgresProfileFeedRepo) Upsert(ctx context.Context, profileFeed *model.ProfileFeed) (string, bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO profile_feeds (id, profile_id, feed_id, custom_title)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (profile_id, feed_id) DO NOTHING
		 RETURNING id`,
		profileFeed.ID, profileFeed.ProfileID, profileFeed.FeedID, nullString(profileFeed.CustomTitle),
	).Scan(&id)

	if err == nil {
		return id, true, nil
	}
	if err != sql.ErrNoRows {
		return "", false, fmt.Errorf("購読のUPSERTに失敗しました: %w", err)
	}

	// 既存の購読がある場合はそのIDを引き直す
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM profile_feeds WHERE profile_id = $1 AND feed_id = $2`,
		profileFeed.ProfileID, profileFeed.FeedID,
	).Scan(&id)
	if err != nil {
		return "", false, fmt.Errorf("既存購読の取得に失敗しました: %w", err)
	}
	return id, false, nil
}

// FindByIDAndProfile は購読IDとプロファイルIDで購読を取得する。
// 見つからない場合はnilを返す。
func (r *PostgresProfileFeedRepo) FindByIDAndProfile(ctx context.Context, id, profileID string) (*model.ProfileFeed, error) {
	pf := &model.ProfileFeed{}
	var customTitle sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, profile_id, feed_id, custom_title, created_at, updated_at
		 FROM profile_feeds WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	).Scan(&pf.ID, &pf.ProfileID, &pf.FeedID, &customTitle, &pf.CreatedAt, &pf.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読の取得に失敗しました: %w", err)
	}

	pf.CustomTitle = nullStringValue(customTitle)
	return pf, nil
}

// FindSubscribedByID は単一の購読をフィード情報と未読数付きのビューとして取得する。
// 未読数の集計はListByProfileと同じ規則（状態行未作成のエントリも未読）に従う。
func (r *PostgresProfileFeedRepo) FindSubscribedByID(ctx context.Context, id, profileID string) (*model.SubscribedFeed, error) {
	var sf model.SubscribedFeed
	var customTitle, feedSiteURL sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT pf.id, pf.profile_id, pf.feed_id, pf.custom_title, pf.created_at, pf.updated_at,
		        f.link, f.title, f.url,
		        COUNT(fe.id) FILTER (WHERE pfe.has_read IS NOT TRUE) AS unread_count
		 FROM profile_feeds pf
		 INNER JOIN feeds f ON f.id = pf.feed_id
		 LEFT JOIN feed_entries fe ON fe.feed_id = pf.feed_id
		 LEFT JOIN profile_feed_entries pfe
		        ON pfe.profile_feed_id = pf.id AND pfe.feed_entry_id = fe.id
		 WHERE pf.id = $1 AND pf.profile_id = $2
		 GROUP BY pf.id, f.id`,
		id, profileID,
	).Scan(
		&sf.ID, &sf.ProfileID, &sf.FeedID, &customTitle, &sf.CreatedAt, &sf.UpdatedAt,
		&sf.FeedLink, &sf.FeedTitle, &feedSiteURL,
		&sf.UnreadCount,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("購読ビューの取得に失敗しました: %w", err)
	}

	sf.CustomTitle = nullStringValue(customTitle)
	sf.FeedSiteURL = nullStringValue(feedSiteURL)
	return &sf, nil
}

// ListByProfile はプロファイルの購読一覧をフィード情報と未読数付きで返す。
// 状態行が未作成のエントリも未読として数えるため、has_read = FALSEではなく
// has_read IS NOT TRUE で集計する。
func (r *PostgresProfileFeedRepo) ListByProfile(ctx context.Context, profileID string) ([]model.SubscribedFeed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT pf.id, pf.profile_id, pf.feed_id, pf.custom_title, pf.created_at, pf.updated_at,
		        f.link, f.title, f.url,
		        COUNT(fe.id) FILTER (WHERE pfe.has_read IS NOT TRUE) AS unread_count
		 FROM profile_feeds pf
		 INNER JOIN feeds f ON f.id = pf.feed_id
		 LEFT JOIN feed_entries fe ON fe.feed_id = pf.feed_id
		 LEFT JOIN profile_feed_entries pfe
		        ON pfe.profile_feed_id = pf.id AND pfe.feed_entry_id = fe.id
		 WHERE pf.profile_id = $1
		 GROUP BY pf.id, f.id
		 ORDER BY pf.created_at ASC`,
		profileID,
	)
	if err != nil {
		return nil, fmt.Errorf("購読一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var subscribed []model.SubscribedFeed
	for rows.Next() {
		var sf model.SubscribedFeed
		var customTitle, feedSiteURL sql.NullString

		if err := rows.Scan(
			&sf.ID, &sf.ProfileID, &sf.FeedID, &customTitle, &sf.CreatedAt, &sf.UpdatedAt,
			&sf.FeedLink, &sf.FeedTitle, &feedSiteURL,
			&sf.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("購読一覧の読み取りに失敗しました: %w", err)
		}

		sf.CustomTitle = nullStringValue(customTitle)
		sf.FeedSiteURL = nullStringValue(feedSiteURL)
		subscribed = append(subscribed, sf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読一覧の走査に失敗しました: %w", err)
	}
	return subscribed, nil
}

// DeleteByIDAndProfile は購読を削除する。配下の既読状態はCASCADE削除される。
func (r *PostgresProfileFeedRepo) DeleteByIDAndProfile(ctx context.Context, id, profileID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM profile_feeds WHERE id = $1 AND profile_id = $2`,
		id, profileID,
	)
	if err != nil {
		return false, fmt.Errorf("購読の削除に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("購読の削除件数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ ProfileFeedRepository = (*PostgresProfileFeedRepo)(nil)
