// Package opf 把 BookMetadata 编码为 calibre 可导入的 OPF 2.0 元数据文件。
package opf

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/RidiMeta/internal/domain"
)

const (
	nsOPF = "http://www.idpf.org/2007/opf"
	nsDC  = "http://purl.org/dc/elements/1.1/"
)

type pkg struct {
	XMLName  xml.Name `xml:"package"`
	Xmlns    string   `xml:"xmlns,attr"`
	UniqueID string   `xml:"unique-identifier,attr"`
	Version  string   `xml:"version,attr"`
	Metadata metadata `xml:"metadata"`
	Guide    *guide   `xml:"guide,omitempty"`
}

type metadata struct {
	XmlnsDC  string `xml:"xmlns:dc,attr"`
	XmlnsOPF string `xml:"xmlns:opf,attr"`

	Identifiers []identifier `xml:"dc:identifier"`
	Title       string       `xml:"dc:title"`
	Creators    []creator    `xml:"dc:creator"`
	Publisher   string       `xml:"dc:publisher,omitempty"`
	Date        string       `xml:"dc:date,omitempty"`
	Description string       `xml:"dc:description,omitempty"`
	Language    string       `xml:"dc:language,omitempty"`
	Subjects    []string     `xml:"dc:subject,omitempty"`
	Metas       []meta       `xml:"meta"`
}

type identifier struct {
	ID     string `xml:"id,attr,omitempty"`
	Scheme string `xml:"opf:scheme,attr"`
	Value  string `xml:",chardata"`
}

type creator struct {
	Role  string `xml:"opf:role,attr"`
	Value string `xml:",chardata"`
}

type meta struct {
	Name    string `xml:"name,attr"`
	Content string `xml:"content,attr"`
}

type guide struct {
	References []reference `xml:"reference"`
}

type reference struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

// BookUUID 由 (来源, ID) 生成稳定的 UUID，作为 calibre 的 uuid 标识符。
func BookUUID(id domain.Identifier) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(id.Source+":"+id.ID)).String()
}

// Encode 把 BookMetadata 转成 OPF（XML）。
//
// 规则：
// - rating 由 0~1 换算为 calibre 的 0~10
// - 封面 URL 写入 guide 的 cover 引用
// - 相同输入得到相同输出（uuid 由标识符派生）
func Encode(m domain.BookMetadata) ([]byte, error) {
	md := metadata{
		XmlnsDC:  nsDC,
		XmlnsOPF: nsOPF,
		Identifiers: []identifier{
			{ID: "uuid_id", Scheme: "uuid", Value: BookUUID(m.Identifier)},
			{Scheme: m.Identifier.Source, Value: m.Identifier.ID},
		},
		Title:       strings.TrimSpace(m.Title),
		Publisher:   strings.TrimSpace(m.Publisher),
		Description: m.Comments,
		Language:    m.Language,
		Subjects:    m.Tags,
	}
	for _, a := range m.Authors {
		md.Creators = append(md.Creators, creator{Role: "aut", Value: a})
	}
	if !m.PubDate.IsZero() {
		md.Date = m.PubDate.UTC().Format(time.RFC3339)
	}
	md.Metas = append(md.Metas, meta{Name: "calibre:rating", Content: strconv.FormatFloat(m.Rating*10, 'f', 1, 64)})
	if m.Series != nil {
		md.Metas = append(md.Metas,
			meta{Name: "calibre:series", Content: m.Series.Name},
			meta{Name: "calibre:series_index", Content: strconv.FormatFloat(m.Series.Index, 'f', -1, 64)},
		)
	}

	p := pkg{
		Xmlns:    nsOPF,
		UniqueID: "uuid_id",
		Version:  "2.0",
		Metadata: md,
	}
	if m.HasCover && m.CoverURL != "" {
		p.Guide = &guide{References: []reference{{Type: "cover", Title: "Cover", Href: m.CoverURL}}}
	}

	b, err := xml.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), b...), nil
}
