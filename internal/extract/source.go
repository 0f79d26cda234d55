package extract

import "strings"

const booksSegment = "/books/"

// SourceID 从详情页 URL 中取出站点侧的书籍 ID。
//
// 约束：取 "/books/" 之后的片段，截断于 "?_"；"?"、"#"、"/" 同样视为终止符。
func SourceID(pageURL string) (string, error) {
	_, rest, ok := strings.Cut(pageURL, booksSegment)
	if !ok {
		return "", &MissingFieldError{Field: "source_id"}
	}
	rest, _, _ = strings.Cut(rest, "?_")
	if i := strings.IndexAny(rest, "?#/"); i >= 0 {
		rest = rest[:i]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return "", &MissingFieldError{Field: "source_id"}
	}
	return rest, nil
}
