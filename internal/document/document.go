// Package document はフェッチ結果の形式判定とクエリ可能なドキュメントツリーを提供する。
//
// 多くのフィードサーバーはContent-Typeを誤って申告するため、
// ヘッダーを信用する前にボディ先頭のマーカーでスニッフィングを行う。
// パース後のツリーはパス式によるクエリ（単一値の取得とノード列挙）をサポートし、
// ルールテーブル駆動の抽出（scraperパッケージ）から形式非依存に利用される。
package document

import "strings"

// Kind はパースされたドキュメントの種別を表す。
type Kind string

const (
	// KindHTML はHTMLとしてパースされたドキュメント。
	KindHTML Kind = "html"
	// KindXML はXMLとしてパースされたドキュメント。
	KindXML Kind = "xml"
)

// Node はドキュメントツリーの要素ノード。
// 要素名と属性名は小文字のローカル名に正規化される（名前空間接頭辞は保持しない）。
type Node struct {
	Name     string
	Attrs    map[string]string
	Text     string // 直下のテキスト（CDATA含む）
	Children []*Node
}

// Document はパース済みのドキュメントツリー。
type Document struct {
	Kind Kind
	root *Node
}

// RootName はルート要素のローカル名（小文字）を返す。
// DefaultScraperの形式プローブ（rss vs feed）で使用される。
func (d *Document) RootName() string {
	if d.root == nil {
		return ""
	}
	return d.root.Name
}

// QueryValue はルート要素を起点にパス式を評価し、最初に一致した値を返す。
// 一致がない場合は空文字列を返す。
func (d *Document) QueryValue(path string) string {
	if d.root == nil {
		return ""
	}
	return d.root.QueryValue(path)
}

// QueryNodes はルート要素を起点にパス式を評価し、一致したノード列を返す。
// エントリ単位の繰り返し抽出に使用される。
func (d *Document) QueryNodes(path string) []*Node {
	if d.root == nil {
		return nil
	}
	return d.root.QueryNodes(path)
}

// Attr は属性値を返す。属性が存在しない場合は空文字列を返す。
func (n *Node) Attr(name string) string {
	return n.Attrs[strings.ToLower(name)]
}

// collectText はノード自身と子孫の全テキストを連結して返す。
func collectText(n *Node) string {
	var b strings.Builder
	b.WriteString(n.Text)
	for _, c := range n.Children {
		b.WriteString(collectText(c))
	}
	return b.String()
}
