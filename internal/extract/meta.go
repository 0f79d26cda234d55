package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MetaPrefixes 是参与提取的 <meta property> 前缀。
var MetaPrefixes = []string{"og", "books"}

// MetaEntry 是一条 <meta property=... content=...>。
type MetaEntry struct {
	Property string
	Content  string
}

// MetaSet 保持文档顺序；同一 property 可能重复出现，查找取第一条。
type MetaSet []MetaEntry

// NewMetaSet 收集 <head> 下 property 以 og / books 开头的 meta。
func NewMetaSet(doc *goquery.Document) MetaSet {
	var out MetaSet
	doc.Find("head > meta[property]").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		if !hasAnyPrefix(prop, MetaPrefixes) {
			return
		}
		content, _ := s.Attr("content")
		out = append(out, MetaEntry{Property: prop, Content: content})
	})
	return out
}

// Find 返回第一条匹配项的 content；不存在时返回 *MissingFieldError。
func (m MetaSet) Find(property string) (string, error) {
	if v, ok := m.Lookup(property); ok {
		return v, nil
	}
	return "", &MissingFieldError{Field: property}
}

// Lookup 是 Find 的软失败版本。
func (m MetaSet) Lookup(property string) (string, bool) {
	for _, e := range m {
		if e.Property == property {
			return e.Content, true
		}
	}
	return "", false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
