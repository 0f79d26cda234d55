package extract

import (
	"errors"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("解析 HTML 失败：%v", err)
	}
	return doc
}

func TestMetaSet_FirstMatchAndPrefixFilter(t *testing.T) {
	doc := mustDoc(t, `<html><head>
<meta property="og:title" content="첫 제목">
<meta property="og:title" content="둘째 제목">
<meta property="books:isbn" content="9791234567890">
<meta property="twitter:title" content="무시">
<meta name="description" content="무시">
</head><body></body></html>`)

	m := NewMetaSet(doc)
	if len(m) != 3 {
		t.Fatalf("期望 3 条 og/books meta，实际 %d：%+v", len(m), m)
	}
	title, err := m.Find("og:title")
	if err != nil || title != "첫 제목" {
		t.Fatalf("期望取第一条 og:title，实际 %q err=%v", title, err)
	}
	if _, ok := m.Lookup("twitter:title"); ok {
		t.Fatalf("非 og/books 前缀不应被收集")
	}
}

func TestMetaSet_MissingIsHardFailure(t *testing.T) {
	m := NewMetaSet(mustDoc(t, `<html><head></head></html>`))
	_, err := m.Find("og:image")
	var mf *MissingFieldError
	if !errors.As(err, &mf) {
		t.Fatalf("期望 MissingFieldError，实际 %v", err)
	}
	if mf.Field != "og:image" {
		t.Fatalf("字段名不符：%q", mf.Field)
	}
}

func TestFindBookRecord_PicksBookBlockAndRepairs(t *testing.T) {
	doc := mustDoc(t, `<html><head>
<script type="application/ld+json">{"@type": "Organization", "name": "RIDI"}</script>
<script type="application/ld+json">{"@type": "Book", "name": "책",
 "author": {"name": "홍길동, 임꺽정"},
 "publisher": {"name": "&quot;출판사&quot;"},
 "description": "&lt;p&gt;소개&lt;/p&gt;",
 "datePublished": "20200115",
 "keywords": "[&quot;판타지&quot;, &quot;모험&quot;]"}</script>
</head></html>`)

	rec, err := FindBookRecord(doc)
	if err != nil {
		t.Fatalf("FindBookRecord 失败：%v", err)
	}
	if rec.Name() != "책" {
		t.Fatalf("期望取 Book 块，实际 name=%q", rec.Name())
	}
	author, err := rec.AuthorName()
	if err != nil || author != "홍길동, 임꺽정" {
		t.Fatalf("author.name 不符：%q err=%v", author, err)
	}
	pub, _ := rec.PublisherName()
	if pub != `"출판사"` {
		t.Fatalf("&quot; 应还原为引号，实际 %q", pub)
	}
	desc, _ := rec.Description()
	if desc != "<p>소개</p>" {
		t.Fatalf("&lt;/&gt; 应还原，实际 %q", desc)
	}
	kw, ok := rec.Keywords()
	if !ok || kw != `["판타지", "모험"]` {
		t.Fatalf("keywords 不符：%q ok=%v", kw, ok)
	}
	if _, ok := rec.TranslatorName(); ok {
		t.Fatalf("无 translator 时应返回 false")
	}
}

func TestFindBookRecord_MissingBlock(t *testing.T) {
	doc := mustDoc(t, `<html><head><script type="application/ld+json">{"@type": "WebSite"}</script></head></html>`)
	_, err := FindBookRecord(doc)
	var me *MalformedStructuredDataError
	if !errors.As(err, &me) {
		t.Fatalf("期望 MalformedStructuredDataError，实际 %v", err)
	}
}

func TestParseBookRecord_InvalidJSON(t *testing.T) {
	_, err := ParseBookRecord(`{"@type": "Book", "name": `)
	var me *MalformedStructuredDataError
	if !errors.As(err, &me) {
		t.Fatalf("期望 MalformedStructuredDataError，实际 %v", err)
	}
}

func TestBookRecord_RequiredFieldMissing(t *testing.T) {
	rec, err := ParseBookRecord(`{"@type": "Book", "author": [{"name": "A"}, {"name": "B"}]}`)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if a, _ := rec.AuthorName(); a != "A, B" {
		t.Fatalf("数组作者应拼接，实际 %q", a)
	}
	_, err = rec.PublisherName()
	var mf *MissingFieldError
	if !errors.As(err, &mf) || mf.Field != "publisher.name" {
		t.Fatalf("期望 publisher.name 缺失，实际 %v", err)
	}
	_, err = rec.DatePublished()
	if !errors.As(err, &mf) || mf.Field != "datePublished" {
		t.Fatalf("期望 datePublished 缺失，实际 %v", err)
	}
}

func TestBookRecord_KeywordArray(t *testing.T) {
	rec, err := ParseBookRecord(`{"@type": "Book", "keywords": ["a", "b"]}`)
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if _, ok := rec.Keywords(); ok {
		t.Fatalf("数组形态不应走字符串分支")
	}
	got, ok := rec.KeywordArray()
	if !ok || len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("KeywordArray 不符：%v ok=%v", got, ok)
	}
}

func TestSourceID(t *testing.T) {
	cases := map[string]string{
		"https://ridibooks.com/books/987654?_s=search":  "987654",
		"https://ridibooks.com/books/987654":            "987654",
		"https://ridibooks.com/books/987654/":           "987654",
		"https://ridibooks.com/books/987654?x=1#review": "987654",
	}
	for in, want := range cases {
		got, err := SourceID(in)
		if err != nil || got != want {
			t.Fatalf("SourceID(%q) 期望 %q，实际 %q err=%v", in, want, got, err)
		}
	}

	for _, in := range []string{"https://ridibooks.com/", "https://ridibooks.com/books/?_s=x"} {
		_, err := SourceID(in)
		var mf *MissingFieldError
		if !errors.As(err, &mf) || mf.Field != "source_id" {
			t.Fatalf("SourceID(%q) 期望 source_id 缺失，实际 %v", in, err)
		}
	}
}
