package ridibooks

import (
	"bytes"
	"errors"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/extract"
	"github.com/John-Robertt/RidiMeta/internal/genre"
	providerx "github.com/John-Robertt/RidiMeta/internal/provider"
	"github.com/John-Robertt/RidiMeta/internal/series"
	"github.com/John-Robertt/RidiMeta/internal/textnorm"
)

const translatorSuffix = "(역자)"

const (
	metaTitle            = "og:title"
	metaImage            = "og:image"
	metaISBN             = "books:isbn"
	metaRatingNormalized = "books:rating:normalized_value"
	metaRatingValue      = "books:rating:value"
)

// Parse 把详情页 HTML 解析为规范记录。
func (Provider) Parse(html []byte, pageURL string, mapping genre.Mapping) (providerx.Parsed, error) {
	if len(html) == 0 {
		return providerx.Parsed{}, errors.New("html 为空")
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return providerx.Parsed{}, err
	}
	return ParseDocument(doc, pageURL, mapping)
}

// ParseDocument 组合字段提取、文本规范化、分类映射与系列识别。
//
// 约束：任一必填字段缺失或格式非法即整体失败，不产生部分记录。
// 必填：JSON-LD Book 块、站点 ID、books:isbn、og:image、og:title、author.name、
// publisher.name、datePublished、description、评分。
func ParseDocument(doc *goquery.Document, pageURL string, mapping genre.Mapping) (providerx.Parsed, error) {
	rec, err := extract.FindBookRecord(doc)
	if err != nil {
		return providerx.Parsed{}, err
	}
	id, err := extract.SourceID(pageURL)
	if err != nil {
		return providerx.Parsed{}, err
	}

	meta := extract.NewMetaSet(doc)
	isbn, err := meta.Find(metaISBN)
	if err != nil {
		return providerx.Parsed{}, err
	}
	cover, err := meta.Find(metaImage)
	if err != nil {
		return providerx.Parsed{}, err
	}
	title, err := meta.Find(metaTitle)
	if err != nil {
		return providerx.Parsed{}, err
	}
	title = textnorm.NFC(title)

	authors, err := authorsOf(rec)
	if err != nil {
		return providerx.Parsed{}, err
	}

	publisher, err := rec.PublisherName()
	if err != nil {
		return providerx.Parsed{}, err
	}
	published, err := rec.DatePublished()
	if err != nil {
		return providerx.Parsed{}, err
	}
	pubdate, err := textnorm.ParseCompactDate(published)
	if err != nil {
		return providerx.Parsed{}, err
	}
	desc, err := rec.Description()
	if err != nil {
		return providerx.Parsed{}, err
	}
	rating, err := ratingOf(meta)
	if err != nil {
		return providerx.Parsed{}, err
	}

	m := domain.BookMetadata{
		Title:      title,
		Authors:    authors,
		Identifier: domain.Identifier{Source: domain.SourceRidibooks, ID: id},
		CoverURL:   strings.TrimSpace(cover),
		Publisher:  textnorm.StripQuotes(publisher),
		PubDate:    pubdate,
		Comments:   textnorm.SanitizeComments(textnorm.StripQuotes(desc)),
		Rating:     rating,
		Language:   domain.KoreanCode,
		Tags:       mapping.Map(genre.RawTags(doc, rec)),
	}
	m.HasCover = m.CoverURL != ""
	if info, ok := series.Detect(title); ok {
		m.Series = &domain.Series{Name: info.Name, Index: info.Index}
	}
	return providerx.Parsed{Meta: m, ISBN: strings.TrimSpace(isbn)}, nil
}

// authorsOf 拆分作者；译者名追加 (역자) 后缀排在作者之后。
func authorsOf(rec extract.BookRecord) ([]string, error) {
	name, err := rec.AuthorName()
	if err != nil {
		return nil, err
	}
	authors := textnorm.SplitList(name)
	if tr, ok := rec.TranslatorName(); ok {
		for _, t := range textnorm.SplitList(tr) {
			authors = append(authors, t+translatorSuffix)
		}
	}
	return authors, nil
}

// ratingOf 优先读取页面已归一化的评分；缺失时把 0~5 分制的原始评分除以 5。
func ratingOf(meta extract.MetaSet) (float64, error) {
	if v, ok := meta.Lookup(metaRatingNormalized); ok {
		return textnorm.ParseScore(v)
	}
	if v, ok := meta.Lookup(metaRatingValue); ok {
		return textnorm.NormalizeScore(v)
	}
	return 0, &extract.MissingFieldError{Field: metaRatingNormalized}
}
