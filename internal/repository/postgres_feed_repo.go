package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/feedhub/internal/model"
)

// PostgresFeedRepo はPostgreSQLを使用した正規コンテンツ層リポジトリ。
type PostgresFeedRepo struct {
	db *sql.DB
}

// NewPostgresFeedRepo はPostgresFeedRepoを生成する。
func NewPostgresFeedRepo(db *sql.DB) *PostgresFeedRepo {
	return &PostgresFeedRepo{db: db}
}

// UpsertFeed はフィードをlinkの一意制約でUPSERTする。
// 衝突時に上書きするのは可変フィールドのtitleのみ。
// サイトURLは初回取り込みの値を保持する。
func (r *PostgresFeedRepo) UpsertFeed(ctx context.Context, feed *model.Feed) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO feeds (id, link, title, url)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (link) DO UPDATE SET
		    title = EXCLUDED.title,
		    updated_at = now()
		 RETURNING id`,
		feed.ID, feed.Link, feed.Title, nullString(feed.SiteURL),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("フィードのUPSERTに失敗しました: %w", err)
	}
	return id, nil
}

// UpsertEntry はエントリをlinkの一意制約でUPSERTする。
// 衝突時は可変フィールドをすべて上書きする。
func (r *PostgresFeedRepo) UpsertEntry(ctx context.Context, entry *model.Entry) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO entries (id, link, title, published_at, description, author, thumbnail_url)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (link) DO UPDATE SET
		    title = EXCLUDED.title,
		    published_at = EXCLUDED.published_at,
		    description = EXCLUDED.description,
		    author = EXCLUDED.author,
		    thumbnail_url = EXCLUDED.thumbnail_url,
		    updated_at = now()
		 RETURNING id`,
		entry.ID, entry.Link, entry.Title, entry.PublishedAt,
		entry.Description, entry.Author, nullString(entry.ThumbnailURL),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("エントリのUPSERTに失敗しました: %w", err)
	}
	return id, nil
}

// UpsertFeedEntry はフィードとエントリの関連をUPSERTする。
// 関連は不変のためDO NOTHINGとし、衝突時は既存行のIDを引き直す。
func (r *PostgresFeedRepo) UpsertFeedEntry(ctx context.Context, feedEntry *model.FeedEntry) (string, error) {
	var id string
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO feed_entries (id, feed_id, entry_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (feed_id, entry_id) DO NOTHING
		 RETURNING id`,
		feedEntry.ID, feedEntry.FeedID, feedEntry.EntryID,
	).Scan(&id)

	if err == sql.ErrNoRows {
		// DO NOTHINGで吸収された場合はRETURNINGが空になるため既存行を引く
		err = r.db.QueryRowContext(ctx,
			`SELECT id FROM feed_entries WHERE feed_id = $1 AND entry_id = $2`,
			feedEntry.FeedID, feedEntry.EntryID,
		).Scan(&id)
	}
	if err != nil {
		return "", fmt.Errorf("フィード・エントリ関連のUPSERTに失敗しました: %w", err)
	}
	return id, nil
}

// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByID(ctx context.Context, id string) (*model.Feed, error) {
	return r.findOne(ctx, `SELECT id, link, title, url, created_at, updated_at FROM feeds WHERE id = $1`, id)
}

// FindByLink はフィードURLでフィードを検索する。見つからない場合はnilを返す。
func (r *PostgresFeedRepo) FindByLink(ctx context.Context, link string) (*model.Feed, error) {
	return r.findOne(ctx, `SELECT id, link, title, url, created_at, updated_at FROM feeds WHERE link = $1`, link)
}

// findOne は単一フィードを取得する共通処理。
func (r *PostgresFeedRepo) findOne(ctx context.Context, query string, arg any) (*model.Feed, error) {
	feed := &model.Feed{}
	var siteURL sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&feed.ID, &feed.Link, &feed.Title, &siteURL, &feed.CreatedAt, &feed.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フィードの取得に失敗しました: %w", err)
	}

	feed.SiteURL = nullStringValue(siteURL)
	return feed, nil
}

// ListSubscribed は購読者が1人以上いるフィードを返す。
func (r *PostgresFeedRepo) ListSubscribed(ctx context.Context) ([]*model.Feed, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT f.id, f.link, f.title, f.url, f.created_at, f.updated_at
		 FROM feeds f
		 INNER JOIN profile_feeds pf ON pf.feed_id = f.id
		 ORDER BY f.created_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("購読中フィードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var feeds []*model.Feed
	for rows.Next() {
		feed := &model.Feed{}
		var siteURL sql.NullString
		if err := rows.Scan(&feed.ID, &feed.Link, &feed.Title, &siteURL, &feed.CreatedAt, &feed.UpdatedAt); err != nil {
			return nil, fmt.Errorf("購読中フィードの読み取りに失敗しました: %w", err)
		}
		feed.SiteURL = nullStringValue(siteURL)
		feeds = append(feeds, feed)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("購読中フィードの走査に失敗しました: %w", err)
	}
	return feeds, nil
}

// DeleteOrphanEntries はどのフィードからも参照されなくなったエントリを削除する。
func (r *PostgresFeedRepo) DeleteOrphanEntries(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM entries e
		 WHERE NOT EXISTS (SELECT 1 FROM feed_entries fe WHERE fe.entry_id = e.id)`,
	)
	if err != nil {
		return 0, fmt.Errorf("孤立エントリの削除に失敗しました: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("孤立エントリの削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ FeedRepository = (*PostgresFeedRepo)(nil)
