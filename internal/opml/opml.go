// Package opml はOPMLファイルからの購読インポートを提供する。
package opml

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// opmlDoc はOPMLドキュメントのルート。
type opmlDoc struct {
	XMLName xml.Name `xml:"opml"`
	Version string   `xml:"version,attr"`
	Body    opmlBody `xml:"body"`
}

// opmlBody はアウトラインを含むボディ。
type opmlBody struct {
	Outlines []outline `xml:"outline"`
}

// outline は単一のアウトライン要素（フォルダまたはフィード）。
type outline struct {
	Text     string    `xml:"text,attr"`
	Title    string    `xml:"title,attr,omitempty"`
	Type     string    `xml:"type,attr,omitempty"`
	XMLURL   string    `xml:"xmlUrl,attr,omitempty"`
	Outlines []outline `xml:"outline,omitempty"`
}

// FeedOutline はフラット化されたフィードのアウトライン。
type FeedOutline struct {
	Title string
	URL   string
}

// Parse はOPMLドキュメントを読み込み、フィードURLのフラットなリストを返す。
// ネストされたフォルダは再帰的に辿る。xmlUrlを持たないアウトラインは
// フォルダとして扱い、フィードには数えない。
func Parse(r io.Reader) ([]FeedOutline, error) {
	var doc opmlDoc
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("OPMLのパースに失敗しました: %w", err)
	}

	var feeds []FeedOutline
	var walk func(outlines []outline)
	walk = func(outlines []outline) {
		for _, o := range outlines {
			if u := strings.TrimSpace(o.XMLURL); u != "" {
				title := o.Title
				if title == "" {
					title = o.Text
				}
				feeds = append(feeds, FeedOutline{Title: title, URL: u})
			}
			if len(o.Outlines) > 0 {
				walk(o.Outlines)
			}
		}
	}
	walk(doc.Body.Outlines)
	return feeds, nil
}
