package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/RidiMeta/internal/app/run"
	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/extract"
	"github.com/John-Robertt/RidiMeta/internal/genre"
	"github.com/John-Robertt/RidiMeta/internal/infra/httpx"
	"github.com/John-Robertt/RidiMeta/internal/provider"
	"github.com/John-Robertt/RidiMeta/internal/provider/ridibooks"
	"github.com/John-Robertt/RidiMeta/internal/worker"
)

// inspectReport 是单页诊断结果：站点结构变化时用来定位是哪一层出了问题。
type inspectReport struct {
	URL       string        `json:"url"`
	OpenGraph openGraphInfo `json:"opengraph"`

	BookRecord      bool   `json:"book_record"`
	BookRecordError string `json:"book_record_error,omitempty"`

	RawTags    []string `json:"raw_tags"`
	MappedTags []string `json:"mapped_tags"`

	ParseStatus string               `json:"parse_status"`
	ParseError  string               `json:"parse_error,omitempty"`
	Record      *domain.BookMetadata `json:"record,omitempty"`
}

type openGraphInfo struct {
	Title    string `json:"title"`
	Type     string `json:"type"`
	URL      string `json:"url"`
	SiteName string `json:"site_name"`
	Image    string `json:"image"`
}

func newInspectCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <url>",
		Short: "抓取单个详情页并输出诊断信息（JSON）",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eff, err := g.load(cmd)
			if err != nil {
				return err
			}
			mapping, err := run.LoadMapping(eff)
			if err != nil {
				return fmt.Errorf("读取分类映射失败：%w", err)
			}
			c, err := httpx.NewSessionClient(httpx.Options{
				ProxyURL:  eff.ProxyURL,
				Timeout:   eff.Timeout,
				UserAgent: eff.UserAgent,
			})
			if err != nil {
				return err
			}

			p := ridibooks.Provider{BaseURL: eff.BaseURL}
			ctx, cancel := context.WithTimeout(cmd.Context(), eff.Timeout)
			html, err := p.Fetch(ctx, args[0], c)
			cancel()
			if err != nil {
				_, msg := worker.Classify(err)
				return fmt.Errorf("%s：%s", domain.ErrCodeFetchFailed, msg)
			}

			rep := inspectPage(p, html, args[0], mapping)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		},
	}
}

func inspectPage(p provider.Provider, html []byte, pageURL string, mapping genre.Mapping) inspectReport {
	rep := inspectReport{URL: pageURL}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(bytes.NewReader(html)); err == nil {
		rep.OpenGraph = openGraphInfo{
			Title:    og.Title,
			Type:     og.Type,
			URL:      og.URL,
			SiteName: og.SiteName,
		}
		if len(og.Images) > 0 && og.Images[0] != nil {
			rep.OpenGraph.Image = og.Images[0].URL
		}
	}

	if doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html)); err == nil {
		rec, err := extract.FindBookRecord(doc)
		if err != nil {
			rep.BookRecordError = err.Error()
		} else {
			rep.BookRecord = true
		}
		rep.RawTags = genre.RawTags(doc, rec)
		rep.MappedTags = mapping.Map(rep.RawTags)
	}

	parsed, err := p.Parse(html, pageURL, mapping)
	if err != nil {
		code, msg := worker.Classify(&provider.Error{Provider: p.Name(), Stage: "parse", Err: err})
		rep.ParseStatus = code
		rep.ParseError = msg
		return rep
	}
	rep.ParseStatus = "ok"
	rep.Record = &parsed.Meta
	return rep
}
