package genre

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/RidiMeta/internal/extract"
)

// keywordDelimiter 是 keywords 文本里元素之间的字面分隔符。
const keywordDelimiter = `", "`

// RawTags 收集页面上的原始标签：先 keywords，后分类面包屑。
func RawTags(doc *goquery.Document, rec extract.BookRecord) []string {
	out := keywordTags(rec)
	out = append(out, breadcrumbTags(doc)...)
	return out
}

func keywordTags(rec extract.BookRecord) []string {
	if arr, ok := rec.KeywordArray(); ok {
		return arr
	}
	kw, ok := rec.Keywords()
	if !ok {
		return nil
	}
	return SplitKeywords(kw)
}

// SplitKeywords 去掉首尾各一个包围字符，再按字面分隔符 `", "` 切分。
// 约束：关键词本身含 `", "` 时会被切开；按页面既有形态处理，不做额外修补。
func SplitKeywords(kw string) []string {
	r := []rune(kw)
	if len(r) < 2 {
		return nil
	}
	inner := string(r[1 : len(r)-1])
	if inner == "" {
		return nil
	}
	return strings.Split(inner, keywordDelimiter)
}

// breadcrumbTags 读取 p.info_category_wrap：
// 第一个容器的第一个 a 子节点作为主分类（只加一次）；
// 每个容器里每个 span.icon-arrow_2_right 之后的第一个 a 作为子分类。
func breadcrumbTags(doc *goquery.Document) []string {
	var out []string
	addedMain := false
	doc.Find("p.info_category_wrap").Each(func(_ int, wrap *goquery.Selection) {
		if !addedMain {
			if a := wrap.ChildrenFiltered("a").First(); a.Length() > 0 {
				out = append(out, a.Text())
			}
			addedMain = true
		}
		wrap.ChildrenFiltered("span.icon-arrow_2_right").Each(func(_ int, arrow *goquery.Selection) {
			a := arrow.NextAllFiltered("a").First()
			if a.Length() == 0 {
				return
			}
			out = append(out, strings.TrimSpace(a.Text()))
		})
	})
	return out
}
