package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// BookMarker 是识别 JSON-LD Book 块的字面量（按页面原样的空格写法匹配）。
const BookMarker = `"@type": "Book"`

// BookRecord 是解码后的 JSON-LD Book 记录。
//
// 约束：每页只取第一块包含 BookMarker 的 ld+json；不存在即视为提取失败。
type BookRecord struct {
	root gjson.Result
}

// FindBookRecord 定位并解码页面 <head> 中的 JSON-LD Book 块。
func FindBookRecord(doc *goquery.Document) (BookRecord, error) {
	var body string
	found := false
	doc.Find(`head > script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := s.Text()
		if !strings.Contains(text, BookMarker) {
			return true
		}
		body, found = text, true
		return false
	})
	if !found {
		return BookRecord{}, &MalformedStructuredDataError{Reason: "未找到 @type=Book 的 ld+json 块"}
	}
	return ParseBookRecord(body)
}

// ParseBookRecord 修复编码残留后解码一块 JSON-LD 文本。
func ParseBookRecord(body string) (BookRecord, error) {
	repaired := RepairLDJSON(body)
	if !gjson.Valid(repaired) {
		return BookRecord{}, &MalformedStructuredDataError{Reason: "JSON 解码失败"}
	}
	root := gjson.Parse(repaired)
	if !root.IsObject() {
		return BookRecord{}, &MalformedStructuredDataError{Reason: "顶层不是 JSON 对象"}
	}
	return BookRecord{root: root}, nil
}

// 页面把尖括号与引号做了 HTML 实体化；引号要还原成 JSON 字符串里的 \"。
// 顺序有意义：先处理带反斜杠的 \&quot;，避免产生 \\"。
var ldRepairer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	`\&quot;`, `\"`,
	"&quot;", `\"`,
)

// RepairLDJSON 还原 ld+json 文本中的实体残留。
func RepairLDJSON(s string) string {
	return ldRepairer.Replace(s)
}

// Get 按 gjson 路径读取任意字段。
func (r BookRecord) Get(path string) gjson.Result { return r.root.Get(path) }

// Name 是记录里的书名（可能为空）。
func (r BookRecord) Name() string { return r.root.Get("name").String() }

// AuthorName 读取 author.name；author 为数组时用逗号拼接各 name。
func (r BookRecord) AuthorName() (string, error) {
	return r.requiredName("author")
}

// TranslatorName 读取 translator.name；译者是可选字段。
func (r BookRecord) TranslatorName() (string, bool) {
	if !r.root.Get("translator").Exists() {
		return "", false
	}
	v, err := r.requiredName("translator")
	if err != nil {
		return "", false
	}
	return v, true
}

func (r BookRecord) PublisherName() (string, error) {
	return r.requiredName("publisher")
}

func (r BookRecord) Description() (string, error) {
	return r.requiredString("description")
}

func (r BookRecord) DatePublished() (string, error) {
	return r.requiredString("datePublished")
}

// Keywords 返回字符串形态的 keywords（形如 `["a", "b"]` 的文本）。
func (r BookRecord) Keywords() (string, bool) {
	v := r.root.Get("keywords")
	if !v.Exists() || v.IsArray() {
		return "", false
	}
	return v.String(), true
}

// KeywordArray 处理 keywords 直接是 JSON 数组的页面。
func (r BookRecord) KeywordArray() ([]string, bool) {
	v := r.root.Get("keywords")
	if !v.IsArray() {
		return nil, false
	}
	out := make([]string, 0, 8)
	for _, it := range v.Array() {
		out = append(out, it.String())
	}
	return out, true
}

func (r BookRecord) requiredString(path string) (string, error) {
	v := r.root.Get(path)
	if !v.Exists() {
		return "", &MissingFieldError{Field: path}
	}
	return v.String(), nil
}

func (r BookRecord) requiredName(field string) (string, error) {
	v := r.root.Get(field)
	if v.IsArray() {
		names := make([]string, 0, 4)
		for _, it := range v.Array() {
			if n := it.Get("name"); n.Exists() {
				names = append(names, n.String())
			}
		}
		if len(names) == 0 {
			return "", &MissingFieldError{Field: field + ".name"}
		}
		return strings.Join(names, ", "), nil
	}
	return r.requiredString(field + ".name")
}
