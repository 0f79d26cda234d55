package provider

import (
	"fmt"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// FetchError 是网络阶段的失败：登录预热、页面请求、读取响应体。
// 超时与取消同样归为 FetchError。
type FetchError struct {
	URL   string
	Stage string // "login" / "get" / "read"
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("抓取失败 stage=%s url=%s: %v", e.Stage, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
