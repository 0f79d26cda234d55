package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/extract"
	"github.com/John-Robertt/RidiMeta/internal/provider"
	"github.com/John-Robertt/RidiMeta/internal/textnorm"
)

// Classify 把任务失败归类为 report 的 error_code，并给出可操作的说明。
func Classify(err error) (code, msg string) {
	if err == nil {
		return "", ""
	}

	var fe *provider.FetchError
	if errors.As(err, &fe) {
		return domain.ErrCodeFetchFailed, humanizeFetchError(fe)
	}
	var pe *provider.Error
	if errors.As(err, &pe) {
		if pe.Stage == "parse" {
			return domain.ErrCodeParseFailed, humanizeParseError(pe.Err)
		}
		return domain.ErrCodeFetchFailed, fmt.Sprintf("%s 抓取失败：%v", pe.Provider, pe.Err)
	}
	return domain.ErrCodeFetchFailed, err.Error()
}

func humanizeFetchError(fe *provider.FetchError) string {
	if fe.Stage == "login" {
		return fmt.Sprintf("登录预热请求失败：%v", fe.Err)
	}

	var hs *provider.HTTPStatusError
	if errors.As(fe, &hs) {
		switch hs.StatusCode {
		case 403, 429:
			return fmt.Sprintf("返回 HTTP %d（可能触发限流）。建议降低 concurrency 或配置 proxy.url。", hs.StatusCode)
		case 404:
			return "返回 HTTP 404（该书可能不存在或已下架）。"
		default:
			if loc := strings.TrimSpace(hs.Location); loc != "" {
				return fmt.Sprintf("返回 HTTP %d（重定向）：%s", hs.StatusCode, loc)
			}
			return fmt.Sprintf("返回 HTTP %d。", hs.StatusCode)
		}
	}

	low := strings.ToLower(fe.Err.Error())
	if errors.Is(fe, context.DeadlineExceeded) || strings.Contains(low, "timeout") {
		return "抓取超时。建议检查网络/代理，或调大 timeout。"
	}
	if errors.Is(fe, context.Canceled) {
		return "任务被取消。"
	}
	return fmt.Sprintf("抓取失败：%v", fe.Err)
}

func humanizeParseError(err error) string {
	var (
		me *extract.MalformedStructuredDataError
		mf *extract.MissingFieldError
		de *textnorm.DateFormatError
		ne *textnorm.NumericFormatError
	)
	switch {
	case errors.As(err, &me):
		return fmt.Sprintf("页面缺少可用的 JSON-LD Book 数据（可能不是详情页）：%v", me)
	case errors.As(err, &mf):
		return fmt.Sprintf("页面缺少必填字段 %s（站点结构可能变化）", mf.Field)
	case errors.As(err, &de):
		return fmt.Sprintf("出版日期格式非法：%q", de.Input)
	case errors.As(err, &ne):
		return fmt.Sprintf("评分格式非法：%q", ne.Input)
	default:
		return fmt.Sprintf("解析失败：%v", err)
	}
}
