package opml

import (
	"strings"
	"testing"
)

func TestParse_FlatOutlines(t *testing.T) {
	doc := `<?xml version="1.0"?>
<opml version="2.0">
  <head><title>Subscriptions</title></head>
  <body>
    <outline text="Blog A" title="Blog A" type="rss" xmlUrl="https://a.example.com/feed.xml"/>
    <outline text="Blog B" type="rss" xmlUrl="https://b.example.com/rss"/>
  </body>
</opml>`

	feeds, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if len(feeds) != 2 {
		t.Fatalf("フィード数 = %d, want 2", len(feeds))
	}
	if feeds[0].Title != "Blog A" || feeds[0].URL != "https://a.example.com/feed.xml" {
		t.Errorf("feeds[0] = %+v", feeds[0])
	}
	// titleがない場合はtextにフォールバックする
	if feeds[1].Title != "Blog B" {
		t.Errorf("feeds[1].Title = %q, want %q", feeds[1].Title, "Blog B")
	}
}

func TestParse_NestedFolders(t *testing.T) {
	doc := `<?xml version="1.0"?>
<opml version="2.0">
  <body>
    <outline text="Tech">
      <outline text="Inner" type="rss" xmlUrl="https://inner.example.com/feed"/>
      <outline text="Deeper">
        <outline text="Deep Feed" type="rss" xmlUrl="https://deep.example.com/feed"/>
      </outline>
    </outline>
    <outline text="Top Feed" type="rss" xmlUrl="https://top.example.com/feed"/>
  </body>
</opml>`

	feeds, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if len(feeds) != 3 {
		t.Fatalf("フィード数 = %d, want 3", len(feeds))
	}

	urls := make([]string, 0, len(feeds))
	for _, f := range feeds {
		urls = append(urls, f.URL)
	}
	want := []string{
		"https://inner.example.com/feed",
		"https://deep.example.com/feed",
		"https://top.example.com/feed",
	}
	for i, u := range want {
		if urls[i] != u {
			t.Errorf("urls[%d] = %q, want %q", i, urls[i], u)
		}
	}
}

func TestParse_FoldersNotCountedAsFeeds(t *testing.T) {
	doc := `<?xml version="1.0"?>
<opml version="2.0">
  <body>
    <outline text="Empty Folder"/>
  </body>
</opml>`

	feeds, err := Parse(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Parse() がエラーを返した: %v", err)
	}
	if len(feeds) != 0 {
		t.Errorf("xmlUrlのないアウトラインはフィードに数えないべき: %d件", len(feeds))
	}
}

func TestParse_InvalidXML(t *testing.T) {
	_, err := Parse(strings.NewReader("this is not XML"))
	if err == nil {
		t.Fatal("不正なXMLはエラーになるべき")
	}
}
