// Package model はドメインモデルを定義する。
package model

import "time"

// Feed は正規化されたフィードを表す。
// linkで全体を通して一意に識別され、どのプロファイルにも所有されない。
type Feed struct {
	ID        string
	Link      string
	Title     string
	SiteURL   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FeedEntry はエントリがフィードに属していることを表す不変の関連レコード。
// (feed_id, entry_id)で一意。作成後に更新されることはない。
type FeedEntry struct {
	ID        string
	FeedID    string
	EntryID   string
	CreatedAt time.Time
}

// ProfileFeed はプロファイルとフィードの購読関係を表す。
// (profile_id, feed_id)で一意。購読解除時に配下のProfileFeedEntryごと削除される。
type ProfileFeed struct {
	ID          string
	ProfileID   string
	FeedID      string
	CustomTitle string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubscribedFeed は購読一覧用にフィード情報と未読数を結合したビュー。
type SubscribedFeed struct {
	ProfileFeed
	FeedLink    string
	FeedTitle   string
	FeedSiteURL string
	UnreadCount int
}

// Profile は購読の所有者を表す。
// 認証・セッション管理は外部コラボレータの責務であり、
// ここでは参照整合性のための最小限の属性のみを持つ。
type Profile struct {
	ID          string
	DisplayName string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
