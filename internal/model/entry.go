// Package model はドメインモデルを定義する。
package model

import "time"

// Entry は正規化されたエントリ（記事）を表す。
// Feedと同様にlinkで全体を通して一意に識別され、
// どのフィードから参照されたかとは独立に作成・更新される。
type Entry struct {
	ID           string
	Link         string
	Title        string
	PublishedAt  *time.Time
	Description  string // サニタイズ済み
	Author       string
	ThumbnailURL string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ProfileFeedEntry はプロファイルごとの既読状態を表すオーバーレイレコード。
// (profile_feed_id, feed_entry_id)で一意。
// 購読フィードのエントリが初めてユーザーに提示されたときに遅延作成される。
type ProfileFeedEntry struct {
	ID            string
	ProfileFeedID string
	FeedEntryID   string
	HasRead       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EntryWithState はエントリとプロファイルごとの既読状態を結合したビュー。
// profile_feed_entriesとLEFT JOINして取得される。
type EntryWithState struct {
	Entry
	FeedEntryID string
	HasRead     bool
}
