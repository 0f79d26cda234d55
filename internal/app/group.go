package app

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/extract"
)

// Target 是去重后待抓取的一个详情页。
type Target struct {
	URL      string
	SourceID string
}

// GroupByIdentifier 按站点 ID 对输入 URL 去重。
//
// - targets 保持首次出现的输入顺序（relevance 依此递增）
// - 非 http/https 或无法解析出 ID 的 URL 记为 invalid
// - 同一 ID 的后续 URL 记为 skipped(duplicate)
func GroupByIdentifier(urls []string) (targets []Target, rejected []domain.ItemResult) {
	index := make(map[string]int, len(urls))
	targets = make([]Target, 0, len(urls))
	rejected = make([]domain.ItemResult, 0, 8)

	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if err := checkURL(u); err != nil {
			rejected = append(rejected, domain.ItemResult{
				URL:       raw,
				Status:    domain.StatusInvalid,
				ErrorCode: domain.ErrCodeInvalidURL,
				ErrorMsg:  err.Error(),
			})
			continue
		}
		id, err := extract.SourceID(u)
		if err != nil {
			rejected = append(rejected, domain.ItemResult{
				URL:       raw,
				Status:    domain.StatusInvalid,
				ErrorCode: domain.ErrCodeInvalidURL,
				ErrorMsg:  "无法从 URL 解析出书籍 ID；请使用形如 https://ridibooks.com/books/123456 的详情页地址",
			})
			continue
		}
		if first, ok := index[id]; ok {
			rejected = append(rejected, domain.ItemResult{
				URL:       raw,
				SourceID:  id,
				Status:    domain.StatusSkipped,
				ErrorCode: domain.ErrCodeDuplicate,
				ErrorMsg:  fmt.Sprintf("与 %s 指向同一本书", targets[first].URL),
			})
			continue
		}
		index[id] = len(targets)
		targets = append(targets, Target{URL: u, SourceID: id})
	}
	return targets, rejected
}

// URLs 返回 targets 的 URL 列表（顺序不变）。
func URLs(targets []Target) []string {
	out := make([]string, 0, len(targets))
	for _, t := range targets {
		out = append(out, t.URL)
	}
	return out
}

func checkURL(s string) error {
	if s == "" {
		return fmt.Errorf("URL 为空")
	}
	u, err := url.Parse(s)
	if err != nil {
		return fmt.Errorf("URL 无效：%v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL 必须是 http/https：%q", s)
	}
	if u.Host == "" {
		return fmt.Errorf("URL 缺少主机名：%q", s)
	}
	return nil
}
