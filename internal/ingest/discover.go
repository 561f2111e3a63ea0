package ingest

import (
	"net/url"
	"strings"

	"github.com/hitoshi/feedhub/internal/document"
)

// feedCandidate はHTMLから検出されたフィード候補を表す。
type feedCandidate struct {
	url      string
	feedType string // "rss" または "atom"
}

// candidateTypes はrel=alternateリンクのtype属性とフィード種別の対応。
var candidateTypes = map[string]string{
	"application/rss+xml":  "rss",
	"application/atom+xml": "atom",
}

// discoverFeedURL はHTMLドキュメントのheadからフィードURLを自動検出する。
// rel="alternate" かつ RSS/Atom type のlink要素のみを候補とし、
// 相対URLはページURLを基準に解決する。
// 候補がない場合は空文字列を返す。
func discoverFeedURL(doc *document.Document, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	var candidates []feedCandidate
	for _, link := range doc.QueryNodes("head/link") {
		if strings.ToLower(link.Attr("rel")) != "alternate" {
			continue
		}
		feedType, ok := candidateTypes[strings.ToLower(link.Attr("type"))]
		if !ok {
			continue
		}
		href := strings.TrimSpace(link.Attr("href"))
		if href == "" {
			continue
		}

		ref, err := url.Parse(href)
		if err != nil {
			continue
		}
		candidates = append(candidates, feedCandidate{
			url:      base.ResolveReference(ref).String(),
			feedType: feedType,
		})
	}

	return selectBestCandidate(candidates, base.Hostname())
}

// selectBestCandidate は候補から優先順位に従って最適なフィードを選択する。
// 優先順位: 同一ホスト > Atom > 先頭。
func selectBestCandidate(candidates []feedCandidate, pageHost string) string {
	if len(candidates) == 0 {
		return ""
	}

	pageHost = strings.ToLower(pageHost)
	bestIdx := 0
	bestScore := -1

	for i, c := range candidates {
		score := 0
		if u, err := url.Parse(c.url); err == nil && strings.ToLower(u.Hostname()) == pageHost {
			score += 100
		}
		if c.feedType == "atom" {
			score += 10
		}
		// 同スコアの場合は先頭を優先する
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}

	return candidates[bestIdx].url
}
