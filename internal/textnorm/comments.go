package textnorm

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// 允许保留的富文本标签；其余标签只保留文本。
var allowedTags = map[atom.Atom]bool{
	atom.P: true, atom.Br: true, atom.B: true, atom.I: true, atom.Em: true,
	atom.Strong: true, atom.U: true, atom.Ul: true, atom.Ol: true, atom.Li: true,
	atom.Blockquote: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.H5: true, atom.H6: true, atom.A: true, atom.Div: true,
	atom.Span: true,
}

// 这些标签连同内容一起丢弃。
var droppedTags = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Iframe: true, atom.Object: true,
	atom.Noscript: true, atom.Template: true,
}

// SanitizeComments 清洗简介 HTML：保留常见排版标签（a 只保留 http/https 的 href），
// 丢弃脚本类标签及其内容、所有其它属性。纯文本输入原样返回（仅去首尾空白）。
func SanitizeComments(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.Contains(s, "<") {
		return s
	}

	z := xhtml.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		if tt == xhtml.ErrorToken {
			// io.EOF 或畸形输入：保留已清洗的部分。
			break
		}
		tok := z.Token()
		switch tt {
		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			if droppedTags[tok.DataAtom] {
				if tt == xhtml.StartTagToken {
					skipDepth++
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] {
				continue
			}
			b.WriteString(openTag(tok, tt == xhtml.SelfClosingTagToken))
		case xhtml.EndTagToken:
			if droppedTags[tok.DataAtom] {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if skipDepth > 0 || !allowedTags[tok.DataAtom] || tok.DataAtom == atom.Br {
				continue
			}
			b.WriteString("</" + tok.DataAtom.String() + ">")
		case xhtml.TextToken:
			if skipDepth > 0 {
				continue
			}
			b.WriteString(html.EscapeString(tok.Data))
		}
	}
	return strings.TrimSpace(b.String())
}

func openTag(tok xhtml.Token, selfClosing bool) string {
	name := tok.DataAtom.String()
	if tok.DataAtom == atom.Br {
		return "<br/>"
	}
	attrs := ""
	if tok.DataAtom == atom.A {
		for _, a := range tok.Attr {
			if a.Key != "href" {
				continue
			}
			v := strings.TrimSpace(a.Val)
			low := strings.ToLower(v)
			if strings.HasPrefix(low, "http://") || strings.HasPrefix(low, "https://") {
				attrs = ` href="` + html.EscapeString(v) + `"`
			}
		}
	}
	if selfClosing {
		return "<" + name + attrs + "/>"
	}
	return "<" + name + attrs + ">"
}
