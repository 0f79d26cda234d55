package ridibooks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	providerx "github.com/John-Robertt/RidiMeta/internal/provider"
)

const defaultBaseURL = "https://ridibooks.com"

// Provider 实现 Ridibooks 详情页的抓取与解析。
//
// 约束：
// - 抓取前先提交一次空凭据的登录表单，只为拿到基础会话 cookie
// - Fetch 不做缓存/重试；超时由调用方的 ctx 决定
// - Parse 必须是纯函数（依赖输入 html + pageURL + mapping）
type Provider struct {
	// BaseURL 为空时使用 https://ridibooks.com；测试中指向 httptest 服务。
	BaseURL string
}

func (Provider) Name() string { return "ridibooks" }

func (p Provider) baseURL() string {
	u := strings.TrimSpace(p.BaseURL)
	if u == "" {
		return defaultBaseURL
	}
	return strings.TrimRight(u, "/")
}

// LoginURL 是登录预热请求的目标。
func (p Provider) LoginURL() string { return p.baseURL() + "/account/action/login" }

// Fetch 先做登录预热，再在同一会话上 GET 详情页。
func (p Provider) Fetch(ctx context.Context, pageURL string, c *http.Client) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	if err := p.primeSession(ctx, c); err != nil {
		return nil, &providerx.FetchError{URL: p.LoginURL(), Stage: "login", Err: err}
	}
	return fetchPage(ctx, c, pageURL)
}

// primeSession 提交空凭据登录表单。响应状态不检查；只有传输层错误才算失败。
func (p Provider) primeSession(ctx context.Context, c *http.Client) error {
	base := p.baseURL()
	returnURL := base + "/"

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, kv := range [][2]string{
		{"user_id", ""},
		{"password", ""},
		{"cmd", "login"},
		{"return_url", returnURL},
	} {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.LoginURL(), &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	// Host 由 URL 决定（默认即 ridibooks.com）。
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Accept-Language", "en-us")
	req.Header.Set("Referer", base+"/account/login?return_url="+url.QueryEscape(returnURL))

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func fetchPage(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &providerx.FetchError{URL: u, Stage: "get", Err: err}
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, &providerx.FetchError{URL: u, Stage: "get", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &providerx.FetchError{URL: u, Stage: "get", Err: &providerx.HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: resp.Header.Get("Location")}}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &providerx.FetchError{URL: u, Stage: "read", Err: err}
	}
	return b, nil
}
