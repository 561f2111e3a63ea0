package document

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// parseXML はXMLボディから要素ツリーを構築する。
// 要素名・属性名は小文字のローカル名に正規化され、名前空間接頭辞は捨てられる。
// 文字コードはcharsetリーダーでUTF-8に変換される。
func parseXML(body []byte) (*Node, error) {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	decoder.CharsetReader = charset.NewReaderLabel
	// フィードには宣言なしの実体参照などが混入しがちなため、厳密モードは使わない
	decoder.Strict = false

	var root *Node
	var stack []*Node

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("XMLのパースに失敗: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			node := &Node{
				Name:  strings.ToLower(t.Name.Local),
				Attrs: make(map[string]string, len(t.Attr)),
			}
			for _, attr := range t.Attr {
				node.Attrs[strings.ToLower(attr.Name.Local)] = attr.Value
			}

			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("XMLのルート要素が複数あります")
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].Text += string(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("XMLにルート要素がありません")
	}

	return root, nil
}
