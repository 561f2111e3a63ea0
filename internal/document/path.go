package document

import "strings"

// パス式はスラッシュ区切りの要素セグメントで構成される。
// サポートする構文:
//
//	channel/item            子要素の連鎖
//	link[rel=self]          属性値による絞り込み
//	link/@href              末尾セグメントでの属性参照
//
// 要素名はローカル名の小文字で照合する。名前空間接頭辞は無視されるため、
// 例えば "thumbnail" は media:thumbnail にも一致する。

// pathSegment はパース済みのパスセグメント。
type pathSegment struct {
	name      string
	attrKey   string // 絞り込み条件（[attr=value]）のキー。空なら条件なし
	attrValue string
}

// splitPath はパス式を要素セグメント列と末尾の属性名に分解する。
func splitPath(path string) (segments []pathSegment, attr string) {
	parts := strings.Split(path, "/")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if strings.HasPrefix(part, "@") {
			attr = strings.ToLower(part[1:])
			continue
		}
		segments = append(segments, parseSegment(part))
	}
	return segments, attr
}

// parseSegment は "name[attr=value]" 形式のセグメントをパースする。
func parseSegment(raw string) pathSegment {
	seg := pathSegment{name: strings.ToLower(raw)}

	open := strings.Index(raw, "[")
	if open < 0 || !strings.HasSuffix(raw, "]") {
		return seg
	}

	seg.name = strings.ToLower(raw[:open])
	cond := raw[open+1 : len(raw)-1]
	if eq := strings.Index(cond, "="); eq >= 0 {
		seg.attrKey = strings.ToLower(strings.TrimSpace(cond[:eq]))
		seg.attrValue = strings.ToLower(strings.TrimSpace(cond[eq+1:]))
	}
	return seg
}

// matches はノードがセグメントの条件を満たすかを判定する。
func (s pathSegment) matches(n *Node) bool {
	if n.Name != s.name {
		return false
	}
	if s.attrKey == "" {
		return true
	}
	return strings.ToLower(n.Attrs[s.attrKey]) == s.attrValue
}

// QueryNodes はノードを起点にパス式を評価し、一致したノード列を返す。
// 各セグメントは直下の子要素のみを辿る。
func (n *Node) QueryNodes(path string) []*Node {
	segments, _ := splitPath(path)
	if len(segments) == 0 {
		return nil
	}

	current := []*Node{n}
	for _, seg := range segments {
		var next []*Node
		for _, node := range current {
			for _, child := range node.Children {
				if seg.matches(child) {
					next = append(next, child)
				}
			}
		}
		if len(next) == 0 {
			return nil
		}
		current = next
	}
	return current
}

// QueryValue はノードを起点にパス式を評価し、最初に一致した空でない値を返す。
// 末尾が @attr の場合は属性値を、それ以外は要素のテキストを返す。
// 一致がない場合は空文字列を返す。
// 空の値を読み飛ばすのは、RSSのchannelに<atom:link>（テキストなし）と
// <link>（テキストあり）が同居するようなケースに対応するため。
func (n *Node) QueryValue(path string) string {
	segments, attr := splitPath(path)

	nodes := []*Node{n}
	if len(segments) > 0 {
		nodes = n.QueryNodes(strings.Join(segmentStrings(segments), "/"))
	}

	for _, target := range nodes {
		var value string
		if attr != "" {
			value = strings.TrimSpace(target.Attr(attr))
		} else {
			value = strings.TrimSpace(collectText(target))
		}
		if value != "" {
			return value
		}
	}
	return ""
}

// segmentStrings はセグメント列を文字列表現に戻す。
func segmentStrings(segments []pathSegment) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.attrKey != "" {
			out = append(out, s.name+"["+s.attrKey+"="+s.attrValue+"]")
			continue
		}
		out = append(out, s.name)
	}
	return out
}
