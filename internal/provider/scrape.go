package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/RidiMeta/internal/genre"
)

// FetchParse 抓取一个详情页并解析出规范记录。
//
// 返回的 err 一定是 *Error，Stage 标明失败发生在 fetch 还是 parse。
func FetchParse(ctx context.Context, p Provider, pageURL string, c *http.Client, mapping genre.Mapping) (Parsed, error) {
	if p == nil {
		return Parsed{}, &Error{Stage: "fetch", Err: fmt.Errorf("provider 不能为空")}
	}
	name := strings.ToLower(p.Name())
	if strings.TrimSpace(pageURL) == "" {
		return Parsed{}, &Error{Provider: name, Stage: "fetch", Err: fmt.Errorf("url 不能为空")}
	}

	h, err := p.Fetch(ctx, pageURL, c)
	if err != nil {
		return Parsed{}, &Error{Provider: name, Stage: "fetch", Err: err}
	}
	out, err := p.Parse(h, pageURL, mapping)
	if err != nil {
		return Parsed{}, &Error{Provider: name, Stage: "parse", Err: err}
	}
	return out, nil
}

// Error 是 provider 阶段的可追溯错误。
// 上层据此把失败归类为 fetch_failed / parse_failed。
type Error struct {
	Provider string
	Stage    string // "fetch" 或 "parse"
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provider=%s stage=%s: %v", e.Provider, e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
