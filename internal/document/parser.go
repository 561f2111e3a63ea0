package document

import (
	"mime"
	"strings"

	"github.com/hitoshi/feedhub/internal/fetcher"
	"github.com/hitoshi/feedhub/internal/model"
)

// sniffSize はスニッフィングで検査するボディ先頭のバイト数。
// XMLプロローグ + ルート要素が含まれるのに十分なサイズ。
const sniffSize = 4096

// htmlContentTypes はHTMLとして認識するContent-Type。
var htmlContentTypes = []string{
	"text/html",
	"application/xhtml+xml",
}

// xmlContentTypes はXMLとして認識するContent-Type。
var xmlContentTypes = []string{
	"text/xml",
	"application/xml",
	"application/rss+xml",
	"application/atom+xml",
	"application/rdf+xml",
}

// Parser はレスポンスの形式を判定してドキュメントツリーを構築する。
//
// 判定手順（順序が重要）:
//  1. Content-TypeがHTML系、またはボディ先頭にHTMLマーカーがある → HTMLとしてパース
//  2. Content-TypeがXML/RSS/Atom系、またはボディにRSS/Atomルートマーカーがある → XMLとしてパース
//  3. いずれでもない → UNSUPPORTED_DOCUMENT
//
// ヘッダーより先にボディマーカーも確認するのは、Content-Typeを
// 誤申告するフィードサーバーが多いため。
type Parser struct{}

// NewParser はParserの新しいインスタンスを生成する。
func NewParser() *Parser {
	return &Parser{}
}

// Parse はレスポンスをスニッフィングしてドキュメントツリーを返す。
func (p *Parser) Parse(resp *fetcher.Response) (*Document, error) {
	if resp == nil || len(resp.Body) == 0 {
		return nil, model.NewUnsupportedDocumentError()
	}

	mediaType := normalizeMediaType(resp.ContentType())
	prefix := sniffPrefix(resp.Body)

	if isHTMLMediaType(mediaType) || hasHTMLMarker(prefix) {
		root, err := parseHTML(resp.Body)
		if err != nil {
			return nil, model.NewUnsupportedDocumentError()
		}
		return &Document{Kind: KindHTML, root: root}, nil
	}

	if isXMLMediaType(mediaType) || hasFeedMarker(prefix) {
		root, err := parseXML(resp.Body)
		if err != nil {
			return nil, model.NewUnsupportedDocumentError()
		}
		return &Document{Kind: KindXML, root: root}, nil
	}

	return nil, model.NewUnsupportedDocumentError()
}

// normalizeMediaType はContent-Typeからメディアタイプを抽出する
// （charsetなどのパラメータを除去し小文字化する）。
func normalizeMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.ToLower(mediaType)
}

// sniffPrefix はボディ先頭を小文字化して返す。
func sniffPrefix(body []byte) string {
	size := sniffSize
	if len(body) < size {
		size = len(body)
	}
	return strings.ToLower(string(body[:size]))
}

// isHTMLMediaType はメディアタイプがHTML系かを判定する。
func isHTMLMediaType(mediaType string) bool {
	for _, ct := range htmlContentTypes {
		if mediaType == ct {
			return true
		}
	}
	return false
}

// isXMLMediaType はメディアタイプがXML/RSS/Atom系かを判定する。
func isXMLMediaType(mediaType string) bool {
	for _, ct := range xmlContentTypes {
		if mediaType == ct {
			return true
		}
	}
	return false
}

// hasHTMLMarker はボディ先頭にHTMLルートマーカーが含まれるかを判定する。
func hasHTMLMarker(prefix string) bool {
	return strings.Contains(prefix, "<!doctype html") || strings.Contains(prefix, "<html")
}

// hasFeedMarker はボディ先頭にRSS/Atomルートマーカーが含まれるかを判定する。
// Atomの<feed>は名前空間の確認まで行う（一般語とのマーカー誤検出を避けるため）。
func hasFeedMarker(prefix string) bool {
	if strings.Contains(prefix, "<rss") {
		return true
	}
	if strings.Contains(prefix, "<rdf:rdf") {
		return true
	}
	if strings.Contains(prefix, "<feed") && strings.Contains(prefix, "http://www.w3.org/2005/atom") {
		return true
	}
	return false
}
