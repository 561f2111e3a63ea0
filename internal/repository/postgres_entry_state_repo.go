package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedhub/internal/model"
)

// PostgresEntryStateRepo はPostgreSQLを使用した既読状態リポジトリ。
type PostgresEntryStateRepo struct {
	db *sql.DB
}

// NewPostgresEntryStateRepo はPostgresEntryStateRepoを生成する。
func NewPostgresEntryStateRepo(db *sql.DB) *PostgresEntryStateRepo {
	return &PostgresEntryStateRepo{db: db}
}

// ListEntriesWithState は購読フィードのエントリ一覧を既読状態付きで返す。
// 状態行が未作成のエントリはCOALESCEで未読として返る。
func (r *PostgresEntryStateRepo) ListEntriesWithState(ctx context.Context, profileFeedID string, limit int) ([]model.EntryWithState, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT e.id, e.link, e.title, e.published_at, e.description, e.author,
		        e.thumbnail_url, e.created_at, e.updated_at,
		        fe.id AS feed_entry_id,
		        COALESCE(pfe.has_read, FALSE) AS has_read
		 FROM profile_feeds pf
		 INNER JOIN feed_entries fe ON fe.feed_id = pf.feed_id
		 INNER JOIN entries e ON e.id = fe.entry_id
		 LEFT JOIN profile_feed_entries pfe
		        ON pfe.profile_feed_id = pf.id AND pfe.feed_entry_id = fe.id
		 WHERE pf.id = $1
		 ORDER BY e.published_at DESC NULLS LAST, e.created_at DESC
		 LIMIT $2`,
		profileFeedID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("エントリ一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var entries []model.EntryWithState
	for rows.Next() {
		var ews model.EntryWithState
		var publishedAt sql.NullTime
		var thumbnailURL sql.NullString

		if err := rows.Scan(
			&ews.Entry.ID, &ews.Entry.Link, &ews.Entry.Title, &publishedAt,
			&ews.Entry.Description, &ews.Entry.Author, &thumbnailURL,
			&ews.Entry.CreatedAt, &ews.Entry.UpdatedAt,
			&ews.FeedEntryID, &ews.HasRead,
		); err != nil {
			return nil, fmt.Errorf("エントリ一覧の読み取りに失敗しました: %w", err)
		}

		if publishedAt.Valid {
			t := publishedAt.Time
			ews.Entry.PublishedAt = &t
		}
		ews.Entry.ThumbnailURL = nullStringValue(thumbnailURL)
		entries = append(entries, ews)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("エントリ一覧の走査に失敗しました: %w", err)
	}
	return entries, nil
}

// ListMissingStateFeedEntryIDs は状態行がまだ存在しないfeed_entryのIDを返す。
func (r *PostgresEntryStateRepo) ListMissingStateFeedEntryIDs(ctx context.Context, profileFeedID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT fe.id
		 FROM profile_feeds pf
		 INNER JOIN feed_entries fe ON fe.feed_id = pf.feed_id
		 WHERE pf.id = $1
		   AND NOT EXISTS (
		       SELECT 1 FROM profile_feed_entries pfe
		       WHERE pfe.profile_feed_id = pf.id AND pfe.feed_entry_id = fe.id
		   )`,
		profileFeedID,
	)
	if err != nil {
		return nil, fmt.Errorf("未作成状態行の検索に失敗しました: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("未作成状態行の読み取りに失敗しました: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("未作成状態行の走査に失敗しました: %w", err)
	}
	return ids, nil
}

// CreateStates は既読状態行を一括作成する。
// 並行リクエストが同じ行を作成していた場合はDO NOTHINGで読み飛ばす。
func (r *PostgresEntryStateRepo) CreateStates(ctx context.Context, states []*model.ProfileFeedEntry) error {
	if len(states) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("状態行作成トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO profile_feed_entries (id, profile_feed_id, feed_entry_id, has_read)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (profile_feed_id, feed_entry_id) DO NOTHING`,
	)
	if err != nil {
		return fmt.Errorf("状態行作成ステートメントの準備に失敗しました: %w", err)
	}
	defer stmt.Close()

	for _, state := range states {
		if _, err := stmt.ExecContext(ctx, state.ID, state.ProfileFeedID, state.FeedEntryID, state.HasRead); err != nil {
			return fmt.Errorf("状態行の作成に失敗しました: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("状態行作成トランザクションのコミットに失敗しました: %w", err)
	}
	return nil
}

// UpsertReadState は既読状態をUPSERTする。
// feed_entryから購読への解決を1文で行い、指定プロファイルの購読に
// 属さないfeed_entryには行が生まれない（false返却）。
func (r *PostgresEntryStateRepo) UpsertReadState(ctx context.Context, id, profileID, feedEntryID string, hasRead bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO profile_feed_entries (id, profile_feed_id, feed_entry_id, has_read)
		 SELECT $1, pf.id, fe.id, $4
		 FROM feed_entries fe
		 INNER JOIN profile_feeds pf ON pf.feed_id = fe.feed_id AND pf.profile_id = $3
		 WHERE fe.id = $2
		 ON CONFLICT (profile_feed_id, feed_entry_id) DO UPDATE SET
		    has_read = EXCLUDED.has_read,
		    updated_at = now()`,
		id, feedEntryID, profileID, hasRead,
	)
	if err != nil {
		return false, fmt.Errorf("既読状態のUPSERTに失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("既読状態の更新件数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// compile-time interface check
var _ EntryStateRepository = (*PostgresEntryStateRepo)(nil)
