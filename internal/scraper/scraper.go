// Package scraper はドキュメントツリーからフィードレコードを抽出する
// 3段階（prepare / extract / postprocess）のスクレイピング機能を提供する。
//
// prepareはアウトバウンドリクエストの構築、extractはルールテーブルによる
// 文字列抽出、postprocessは型変換と検証を担当する。各段階は純粋で、
// フェッチと永続化は呼び出し側（ingestサービス）が段階の間に挟む。
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/hitoshi/feedhub/internal/document"
	"github.com/hitoshi/feedhub/internal/fetcher"
	"github.com/hitoshi/feedhub/internal/model"
	"github.com/hitoshi/feedhub/internal/security"
)

// Scraper はフィード1件のスクレイピング手順を表す。
type Scraper interface {
	// Prepare はフェッチ用のアウトバウンドリクエストを構築する。
	Prepare(ctx context.Context, feedURL string) (*fetcher.Request, error)

	// Extract はドキュメントツリーに抽出ルールを適用し、
	// 文字列型の中間レコードを生成する。
	Extract(feedURL string, doc *document.Document) (*model.ExtractedFeed, error)

	// Postprocess は中間レコードを検証済みレコードに変換する。
	// URL検証の失敗はINVALID_FIELDエラーになる。
	Postprocess(feedURL string, extracted *model.ExtractedFeed) (*model.ProcessedFeed, error)
}

// RulesScraper は固定のルールテーブルで抽出を行うScraperの実装。
// RSS用・Atom用のインスタンスをルールテーブルの差し替えだけで作れる。
type RulesScraper struct {
	rules     *FormatRules
	sanitizer security.DescriptionSanitizerService
}

// NewRulesScraper はRulesScraperの新しいインスタンスを生成する。
func NewRulesScraper(rules *FormatRules, sanitizer security.DescriptionSanitizerService) *RulesScraper {
	return &RulesScraper{
		rules:     rules,
		sanitizer: sanitizer,
	}
}

// Prepare はデフォルトのリクエストをそのまま返すパススルー実装。
func (s *RulesScraper) Prepare(_ context.Context, feedURL string) (*fetcher.Request, error) {
	return fetcher.NewRequest(feedURL), nil
}

// Extract はルールテーブルをドキュメントに適用する。
func (s *RulesScraper) Extract(feedURL string, doc *document.Document) (*model.ExtractedFeed, error) {
	return extractWithRules(feedURL, doc, s.rules)
}

// Postprocess は中間レコードを検証済みレコードに変換する。
func (s *RulesScraper) Postprocess(feedURL string, extracted *model.ExtractedFeed) (*model.ProcessedFeed, error) {
	return postprocess(feedURL, extracted, s.sanitizer)
}

// extractWithRules はルールテーブルの各式を評価して中間レコードを組み立てる。
// フィードリンクが抽出できない場合はリクエストURLで代用する
// （自己参照リンクを持たないフィードは珍しくない）。
func extractWithRules(feedURL string, doc *document.Document, rules *FormatRules) (*model.ExtractedFeed, error) {
	if doc == nil {
		return nil, model.NewUnsupportedDocumentError()
	}

	extracted := &model.ExtractedFeed{
		Link:    queryDocCandidates(doc, rules.FeedLink),
		Title:   queryDocCandidates(doc, rules.FeedTitle),
		SiteURL: queryDocCandidates(doc, rules.FeedSiteURL),
	}
	if extracted.Link == "" {
		extracted.Link = feedURL
	}

	for _, node := range doc.QueryNodes(rules.Entries) {
		extracted.Entries = append(extracted.Entries, model.ExtractedEntry{
			Link:        queryCandidates(node, rules.EntryLink),
			Title:       queryCandidates(node, rules.EntryTitle),
			Published:   queryCandidates(node, rules.EntryPublished),
			Description: queryCandidates(node, rules.EntryDescription),
			Author:      queryCandidates(node, rules.EntryAuthor),
			Thumbnail:   queryCandidates(node, rules.EntryThumbnail),
		})
	}

	return extracted, nil
}

// postprocess は文字列型の中間レコードを型付きレコードに変換する。
//
//   - URL（フィードリンク・エントリリンク・サイトURL・サムネイル）は
//     パースと検証を行い、失敗したらレコード全体をINVALID_FIELDで失敗させる
//   - 公開日時はパースできなければnilにする（失敗にしない）
//   - 説明文はサニタイズしてプレーンテキスト化する
//   - リンクを持たないエントリは識別できないため読み飛ばす
func postprocess(feedURL string, extracted *model.ExtractedFeed, sanitizer security.DescriptionSanitizerService) (*model.ProcessedFeed, error) {
	if extracted == nil {
		return nil, model.NewInvalidFieldError("feed", "抽出結果がありません")
	}

	feedLink, err := parseAbsoluteURL(extracted.Link)
	if err != nil {
		return nil, model.NewInvalidFieldError("link", err.Error())
	}

	title := strings.TrimSpace(extracted.Title)
	if title == "" {
		// タイトルなしのフィードはURLを仮タイトルにする
		title = feedLink.String()
	}

	processed := &model.ProcessedFeed{
		Link:  feedLink,
		Title: title,
	}

	if siteURL := strings.TrimSpace(extracted.SiteURL); siteURL != "" {
		parsed, err := parseAbsoluteURL(siteURL)
		if err != nil {
			return nil, model.NewInvalidFieldError("site_url", err.Error())
		}
		processed.SiteURL = parsed
	}

	for _, raw := range extracted.Entries {
		if strings.TrimSpace(raw.Link) == "" {
			continue
		}

		link, err := parseAbsoluteURL(raw.Link)
		if err != nil {
			return nil, model.NewInvalidFieldError("entry.link", err.Error())
		}

		entry := model.ProcessedEntry{
			Link:        link,
			Title:       strings.TrimSpace(raw.Title),
			PublishedAt: parsePublished(raw.Published),
			Description: sanitizer.Sanitize(raw.Description),
			Author:      strings.TrimSpace(raw.Author),
		}

		if thumb := strings.TrimSpace(raw.Thumbnail); thumb != "" {
			parsed, err := parseAbsoluteURL(thumb)
			if err != nil {
				return nil, model.NewInvalidFieldError("entry.thumbnail", err.Error())
			}
			entry.Thumbnail = parsed
		}

		processed.Entries = append(processed.Entries, entry)
	}

	return processed, nil
}

// parseAbsoluteURL はhttp/httpsの絶対URLとしてパース・検証する。
func parseAbsoluteURL(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, err
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, fmt.Errorf("http/httpsの絶対URLではありません: %s", raw)
	}
	return parsed, nil
}

// queryCandidates は候補式を先頭から評価し、最初に空でない値を返す。
func queryCandidates(node *document.Node, candidates []string) string {
	for _, expr := range candidates {
		if value := node.QueryValue(expr); value != "" {
			return value
		}
	}
	return ""
}

// queryDocCandidates はドキュメントルート起点の候補式評価。
func queryDocCandidates(doc *document.Document, candidates []string) string {
	for _, expr := range candidates {
		if value := doc.QueryValue(expr); value != "" {
			return value
		}
	}
	return ""
}

// compile-time interface check
var _ Scraper = (*RulesScraper)(nil)
