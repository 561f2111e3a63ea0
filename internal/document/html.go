package document

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// parseHTML はHTMLボディから要素ツリーを構築する。
// x/net/htmlのパーサーは不正なマークアップも修復するため、エラーは稀。
func parseHTML(body []byte) (*Node, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("HTMLのパースに失敗: %w", err)
	}

	root := findHTMLElement(doc)
	if root == nil {
		return nil, fmt.Errorf("HTMLにルート要素がありません")
	}

	return convertHTMLNode(root), nil
}

// findHTMLElement はドキュメントノード配下の最初の要素ノードを返す。
func findHTMLElement(n *html.Node) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// convertHTMLNode はhtml.Nodeを共通のNode表現に変換する。
// テキストノードは親要素のTextに連結される。
func convertHTMLNode(src *html.Node) *Node {
	node := &Node{
		Name:  strings.ToLower(src.Data),
		Attrs: make(map[string]string, len(src.Attr)),
	}
	for _, attr := range src.Attr {
		node.Attrs[strings.ToLower(attr.Key)] = attr.Val
	}

	for c := src.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.ElementNode:
			node.Children = append(node.Children, convertHTMLNode(c))
		case html.TextNode:
			node.Text += c.Data
		}
	}

	return node
}
