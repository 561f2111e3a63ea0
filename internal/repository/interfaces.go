// Package repository はデータ永続化のインターフェースを定義する。
//
// 正規コンテンツ層（feeds / entries / feed_entries）の書き込みはすべて
// 一意制約ベースのUPSERTで行い、並行する取り込み同士の重複排除を
// アプリケーション側のロックではなくデータベースに委ねる。
package repository

import (
	"context"

	"github.com/hitoshi/feedhub/internal/model"
)

// FeedRepository は正規コンテンツ層（フィード・エントリ・関連）の永続化インターフェース。
type FeedRepository interface {
	// UpsertFeed はフィードをlinkの一意制約でUPSERTする。
	// 既存行と衝突した場合は可変フィールド（title）のみを上書きし、
	// 正規のフィードIDを返す。
	UpsertFeed(ctx context.Context, feed *model.Feed) (string, error)

	// UpsertEntry はエントリをlinkの一意制約でUPSERTする。
	// 既存行と衝突した場合は可変フィールドを上書きし、正規のエントリIDを返す。
	UpsertEntry(ctx context.Context, entry *model.Entry) (string, error)

	// UpsertFeedEntry はフィードとエントリの関連を(feed_id, entry_id)の
	// 一意制約でUPSERTする。関連は不変のため衝突時は何も更新しない
	// （DO NOTHING）。正規の関連IDを返す。
	UpsertFeedEntry(ctx context.Context, feedEntry *model.FeedEntry) (string, error)

	// FindByID は指定IDのフィードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Feed, error)

	// FindByLink はフィードURLでフィードを検索する。見つからない場合はnilを返す。
	FindByLink(ctx context.Context, link string) (*model.Feed, error)

	// ListSubscribed は購読者が1人以上いるフィードを返す。
	// リフレッシュワーカーの巡回対象を決めるために使用される。
	ListSubscribed(ctx context.Context) ([]*model.Feed, error)

	// DeleteOrphanEntries はどのフィードからも参照されなくなった
	// エントリを削除し、削除件数を返す。クリーンアップワーカー用。
	DeleteOrphanEntries(ctx context.Context) (int64, error)
}

// ProfileFeedRepository は購読関係の永続化インターフェース。
type ProfileFeedRepository interface {
	// Upsert は購読を(profile_id, feed_id)の一意制約でUPSERTする。
	// 衝突時は何も更新せず既存の購読IDを返す（再購読は冪等）。
	// createdは新規に作成されたかどうかを示す。
	Upsert(ctx context.Context, profileFeed *model.ProfileFeed) (id string, created bool, err error)

	// FindByIDAndProfile は購読IDとプロファイルIDで購読を取得する。
	// 他プロファイルの購読は見えない。見つからない場合はnilを返す。
	FindByIDAndProfile(ctx context.Context, id, profileID string) (*model.ProfileFeed, error)

	// FindSubscribedByID は単一の購読をフィード情報と未読数付きのビューとして
	// 取得する。購読登録のレスポンス生成に使用される。見つからない場合はnilを返す。
	FindSubscribedByID(ctx context.Context, id, profileID string) (*model.SubscribedFeed, error)

	// ListByProfile はプロファイルの購読一覧をフィード情報と未読数付きで返す。
	ListByProfile(ctx context.Context, profileID string) ([]model.SubscribedFeed, error)

	// DeleteByIDAndProfile は購読を削除する。配下の既読状態はCASCADE削除される。
	// 削除できた場合はtrueを返す（存在しない・他プロファイルの購読はfalse）。
	DeleteByIDAndProfile(ctx context.Context, id, profileID string) (bool, error)
}

// EntryStateRepository はプロファイルごとの既読状態の永続化インターフェース。
type EntryStateRepository interface {
	// ListEntriesWithState は購読フィードのエントリ一覧を既読状態付きで返す。
	// 状態行が未作成のエントリは未読として返る。published_at降順（NULLは末尾）。
	ListEntriesWithState(ctx context.Context, profileFeedID string, limit int) ([]model.EntryWithState, error)

	// ListMissingStateFeedEntryIDs は状態行がまだ存在しない
	// feed_entryのIDを返す。状態行の遅延作成に使用される。
	ListMissingStateFeedEntryIDs(ctx context.Context, profileFeedID string) ([]string, error)

	// CreateStates は既読状態行を一括作成する。
	// 並行作成と衝突した行は読み飛ばす（DO NOTHING）。
	CreateStates(ctx context.Context, states []*model.ProfileFeedEntry) error

	// UpsertReadState は既読状態をUPSERTする。状態行が無ければ作成する。
	// feed_entryが指定プロファイルの購読に属さない場合はfalseを返す。
	UpsertReadState(ctx context.Context, id, profileID, feedEntryID string, hasRead bool) (bool, error)
}

// ProfileRepository はプロファイルの永続化インターフェース。
// 認証は外部コラボレータの責務のため、参照整合性のための行を保証するだけでよい。
type ProfileRepository interface {
	// Ensure はプロファイル行が存在することを保証する。既存の場合は何もしない。
	Ensure(ctx context.Context, profile *model.Profile) error
}
