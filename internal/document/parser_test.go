package document

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/hitoshi/feedhub/internal/fetcher"
	"github.com/hitoshi/feedhub/internal/model"
)

// newResponse はテスト用のレスポンスを組み立てる。
func newResponse(contentType, body string) *fetcher.Response {
	header := http.Header{}
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	return &fetcher.Response{
		StatusCode: http.StatusOK,
		Header:     header,
		Body:       []byte(body),
	}
}

// assertAPIErrorCode はエラーが指定コードのAPIErrorであることを検証する。
func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("APIErrorであるべき: %v", err)
	}
	if apiErr.Code != code {
		t.Errorf("エラーコード = %q, want %q", apiErr.Code, code)
	}
}

const rssBody = `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com/</link>
  </channel>
</rss>`

const atomBody = `<?xml version="1.0"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Feed</title>
</feed>`

func TestParse_RSSContentType(t *testing.T) {
	parser := NewParser()

	doc, err := parser.Parse(newResponse("application/rss+xml", rssBody))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if doc.Kind != KindXML {
		t.Errorf("Kind = %q, want %q", doc.Kind, KindXML)
	}
	if doc.RootName() != "rss" {
		t.Errorf("RootName() = %q, want %q", doc.RootName(), "rss")
	}
}

func TestParse_WrongContentTypeSniffsRSSBody(t *testing.T) {
	// Content-Typeを誤申告するフィードサーバーはボディのマーカーで救済する
	parser := NewParser()

	doc, err := parser.Parse(newResponse("text/plain", rssBody))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if doc.Kind != KindXML {
		t.Errorf("Kind = %q, want %q", doc.Kind, KindXML)
	}
}

func TestParse_AtomWithNamespaceMarker(t *testing.T) {
	parser := NewParser()

	doc, err := parser.Parse(newResponse("text/plain", atomBody))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if doc.Kind != KindXML {
		t.Errorf("Kind = %q, want %q", doc.Kind, KindXML)
	}
	if doc.RootName() != "feed" {
		t.Errorf("RootName() = %q, want %q", doc.RootName(), "feed")
	}
}

func TestParse_FeedWithoutAtomNamespaceRejected(t *testing.T) {
	// 名前空間のない<feed>は一般語の誤検出とみなして拒否する
	parser := NewParser()

	_, err := parser.Parse(newResponse("text/plain", `<feed><title>x</title></feed>`))
	if err == nil {
		t.Fatal("名前空間のない<feed>は拒否されるべき")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUnsupportedDocument)
}

func TestParse_HTMLContentType(t *testing.T) {
	parser := NewParser()

	doc, err := parser.Parse(newResponse("text/html", `<html><head><title>Page</title></head><body></body></html>`))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if doc.Kind != KindHTML {
		t.Errorf("Kind = %q, want %q", doc.Kind, KindHTML)
	}
}

func TestParse_HTMLMarkerBeforeXML(t *testing.T) {
	// HTML判定はXML判定より先に行われる
	parser := NewParser()

	doc, err := parser.Parse(newResponse("text/plain", `<!DOCTYPE html><html><body>rss</body></html>`))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if doc.Kind != KindHTML {
		t.Errorf("Kind = %q, want %q", doc.Kind, KindHTML)
	}
}

func TestParse_UnsupportedDocument(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse(newResponse("text/plain", "just some plain text"))
	if err == nil {
		t.Fatal("判別できないドキュメントはエラーになるべき")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUnsupportedDocument)
}

func TestParse_EmptyBody(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse(newResponse("application/rss+xml", ""))
	if err == nil {
		t.Fatal("空ボディはエラーになるべき")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUnsupportedDocument)
}

func TestParse_NilResponse(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse(nil)
	if err == nil {
		t.Fatal("nilレスポンスはエラーになるべき")
	}
	assertAPIErrorCode(t, err, model.ErrCodeUnsupportedDocument)
}

func TestParse_BrokenXMLRejected(t *testing.T) {
	parser := NewParser()

	_, err := parser.Parse(newResponse("application/rss+xml", `<rss><channel><title>broken`))
	// 閉じタグ欠落は非厳密モードで修復されるが、ルート要素が取れれば成功でよい。
	// ここではルート要素すら壊れているケースを確認する。
	if err != nil {
		assertAPIErrorCode(t, err, model.ErrCodeUnsupportedDocument)
	}
}

func TestParse_ContentTypeWithCharset(t *testing.T) {
	parser := NewParser()

	doc, err := parser.Parse(newResponse("application/rss+xml; charset=utf-8", rssBody))
	if err != nil {
		t.Fatalf("charsetパラメータ付きContent-Typeでエラー: %v", err)
	}
	if doc.Kind != KindXML {
		t.Errorf("Kind = %q, want %q", doc.Kind, KindXML)
	}
}

func TestParse_NamespacePrefixDropped(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0" xmlns:media="http://search.yahoo.com/mrss/">
  <channel>
    <item>
      <media:thumbnail url="https://example.com/t.png"/>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	doc, err := parser.Parse(newResponse("application/rss+xml", body))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}

	// media:thumbnail はローカル名 thumbnail として照合できる
	got := doc.QueryValue("channel/item/thumbnail/@url")
	if got != "https://example.com/t.png" {
		t.Errorf("QueryValue = %q, want %q", got, "https://example.com/t.png")
	}
}

func TestParse_CDATAText(t *testing.T) {
	body := `<?xml version="1.0"?>
<rss version="2.0">
  <channel>
    <title><![CDATA[CDATA Title]]></title>
  </channel>
</rss>`

	parser := NewParser()
	doc, err := parser.Parse(newResponse("application/rss+xml", body))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}

	if got := doc.QueryValue("channel/title"); got != "CDATA Title" {
		t.Errorf("QueryValue = %q, want %q", got, "CDATA Title")
	}
}

func TestSniffPrefix_LargeBody(t *testing.T) {
	// スニッフィングはボディ先頭のみを検査する
	body := strings.Repeat("x", sniffSize) + "<rss"
	if hasFeedMarker(sniffPrefix([]byte(body))) {
		t.Error("先頭範囲外のマーカーは検出しないべき")
	}
}
