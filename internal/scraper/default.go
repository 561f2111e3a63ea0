package scraper

import (
	"context"

	"github.com/hitoshi/feedhub/internal/document"
	"github.com/hitoshi/feedhub/internal/fetcher"
	"github.com/hitoshi/feedhub/internal/model"
	"github.com/hitoshi/feedhub/internal/security"
)

// DefaultScraper はホスト固有スクレイパーが登録されていない場合に使われる
// フォールバック実装。ルート要素名で形式を判別し（rss → RSSルール、
// feed → Atomルール）、対応するルールテーブルに委譲する。
// どちらでもないXMLはUNSUPPORTED_FEED_TYPEで拒否する。
type DefaultScraper struct {
	rss  *RulesScraper
	atom *RulesScraper
}

// NewDefaultScraper はDefaultScraperの新しいインスタンスを生成する。
func NewDefaultScraper(sanitizer security.DescriptionSanitizerService) *DefaultScraper {
	return &DefaultScraper{
		rss:  NewRulesScraper(RSSRules, sanitizer),
		atom: NewRulesScraper(AtomRules, sanitizer),
	}
}

// Prepare はデフォルトのリクエストをそのまま返すパススルー実装。
func (s *DefaultScraper) Prepare(_ context.Context, feedURL string) (*fetcher.Request, error) {
	return fetcher.NewRequest(feedURL), nil
}

// Extract はルート要素名で形式を判別し、対応するルールに委譲する。
func (s *DefaultScraper) Extract(feedURL string, doc *document.Document) (*model.ExtractedFeed, error) {
	if doc == nil {
		return nil, model.NewUnsupportedDocumentError()
	}

	switch doc.RootName() {
	case "rss":
		return s.rss.Extract(feedURL, doc)
	case "feed":
		return s.atom.Extract(feedURL, doc)
	default:
		return nil, model.NewUnsupportedFeedTypeError(doc.RootName())
	}
}

// Postprocess は共通のpostprocess処理に委譲する。
// extract段階で形式が判別済みのため、後処理に形式差はない。
func (s *DefaultScraper) Postprocess(feedURL string, extracted *model.ExtractedFeed) (*model.ProcessedFeed, error) {
	return s.rss.Postprocess(feedURL, extracted)
}

// compile-time interface check
var _ Scraper = (*DefaultScraper)(nil)
