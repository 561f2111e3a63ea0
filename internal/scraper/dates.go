package scraper

import (
	"strings"
	"time"
)

// publishedLayouts は公開日時のパースに試行するレイアウト。
// RSSはRFC822/RFC1123系、AtomはRFC3339系が主流だが、
// 実際のフィードでは揺れが大きいため広めに持つ。
var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePublished は公開日時文字列をパースする。
// どのレイアウトにも一致しない場合はnilを返す（致命的エラーにはしない。
// 日付の欠落・破損はフィード側で日常的に起きるため、エントリ自体は取り込む）。
func parsePublished(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}
