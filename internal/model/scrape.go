// Package model はドメインモデルを定義する。
package model

import (
	"net/url"
	"time"
)

// ExtractedFeed はスクレイパーのextract段階が生成する文字列型の中間レコード。
// ルールテーブルの式をドキュメントに適用した結果をそのまま保持し、
// 型変換・検証はpostprocess段階で行う。
type ExtractedFeed struct {
	Link    string
	Title   string
	SiteURL string
	Entries []ExtractedEntry
}

// ExtractedEntry はエントリ単位の文字列型中間レコード。
type ExtractedEntry struct {
	Link        string
	Title       string
	Published   string
	Description string
	Author      string
	Thumbnail   string
}

// ProcessedFeed はpostprocess段階を通過した検証済みレコード。
// 永続化層はこの型のみを受け取るため、半端な状態のレコードが
// ストレージに到達することはない。
type ProcessedFeed struct {
	Link    *url.URL
	Title   string
	SiteURL *url.URL
	Entries []ProcessedEntry
}

// ProcessedEntry は検証済みのエントリレコード。
// PublishedAtはパースできない日付の場合nilになる（致命的エラーにはしない）。
type ProcessedEntry struct {
	Link        *url.URL
	Title       string
	PublishedAt *time.Time
	Description string
	Author      string
	Thumbnail   *url.URL
}
