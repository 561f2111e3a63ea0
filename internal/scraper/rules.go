package scraper

// FormatRules はフィード形式ごとの抽出ルールテーブル。
// 各フィールドはdocumentパッケージのパス式の候補リストで、
// 先頭から順に評価して最初に空でない値を採用する。
// 純粋なデータであり、抽出ロジック本体（RulesScraper）とは分離されている。
//
// FeedLinkは省略可能（空の場合はリクエストURLで代用される）。
// EntryDescription/EntryAuthor/EntryThumbnailも省略可能で、
// 欠けている形式ではそのフィールドは常に空になる。
type FormatRules struct {
	Name string

	// フィードレベル（ドキュメントルート起点で評価）
	FeedLink    []string
	FeedTitle   []string
	FeedSiteURL []string

	// エントリノード列（ドキュメントルート起点で評価）
	Entries string

	// エントリレベル（各エントリノード起点で評価）
	EntryLink        []string
	EntryTitle       []string
	EntryPublished   []string
	EntryDescription []string
	EntryAuthor      []string
	EntryThumbnail   []string
}

// RSSRules はRSS 2.0用のルールテーブル。
// 要素名はローカル名で照合されるため、atom:link（self参照）はlink[rel=self]、
// dc:creatorはcreator、media:thumbnailはthumbnailに一致する。
var RSSRules = &FormatRules{
	Name: "rss",

	FeedLink:    []string{"channel/link[rel=self]/@href"},
	FeedTitle:   []string{"channel/title"},
	FeedSiteURL: []string{"channel/link"},

	Entries: "channel/item",

	EntryLink:        []string{"link"},
	EntryTitle:       []string{"title"},
	EntryPublished:   []string{"pubdate", "date"},
	EntryDescription: []string{"description"},
	EntryAuthor:      []string{"author", "creator"},
	EntryThumbnail:   []string{"thumbnail/@url", "enclosure/@url"},
}

// AtomRules はAtom用のルールテーブル。
// publishedが無いフィードのためupdatedへのフォールバックを持つ。
var AtomRules = &FormatRules{
	Name: "atom",

	FeedLink:    []string{"link[rel=self]/@href"},
	FeedTitle:   []string{"title"},
	FeedSiteURL: []string{"link[rel=alternate]/@href", "link/@href"},

	Entries: "entry",

	EntryLink:        []string{"link[rel=alternate]/@href", "link/@href"},
	EntryTitle:       []string{"title"},
	EntryPublished:   []string{"published", "updated"},
	EntryDescription: []string{"summary", "content"},
	EntryAuthor:      []string{"author/name"},
	EntryThumbnail:   []string{"thumbnail/@url"},
}
