// Package httpx 提供每个任务独立的会话 client：独立 cookie jar、UA 池、可选代理。
package httpx

import (
	"errors"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

const DefaultTimeout = 20 * time.Second

// Options 是构造会话 client 的参数。
type Options struct {
	ProxyURL string
	// Timeout 是 client 级总超时；<=0 时用 DefaultTimeout。
	Timeout time.Duration
	// UserAgent 非空时固定使用，否则每个请求从 UA 池随机取。
	UserAgent string
}

// Transport 在请求上补齐 User-Agent，其余交给 Base。
//
// 约束：不做重试；一次失败即返回给调用方。
type Transport struct {
	Base *http.Transport

	ua        *uaPool
	fixedUA   string
	closeConn bool
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}
	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		if t.fixedUA != "" {
			r.Header.Set("User-Agent", t.fixedUA)
		} else {
			r.Header.Set("User-Agent", t.ua.random())
		}
	}
	if t.closeConn {
		r.Close = true
	}
	return t.Base.RoundTrip(r)
}

// SessionFactory 为每个任务产出一个全新的会话 client。
type SessionFactory func() (*http.Client, error)

// NewSessionFactory 固化 opts，返回可并发调用的工厂。
func NewSessionFactory(opts Options) SessionFactory {
	return func() (*http.Client, error) { return NewSessionClient(opts) }
}

// NewSessionClient 构造一个带独立 cookie jar 的 client。
//
// 规则：
// - cookie jar 按 public suffix 划分域，登录预热写入的 cookie 只对同站生效
// - proxyURL 非空：走代理并禁用 keep-alive（每请求新连接）
// - client 之间不共享 cookie，可安全并发
func NewSessionClient(opts Options) (*http.Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	base := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	closeConn := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy.url 必须包含 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		closeConn = true
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Transport: &Transport{
			Base:      base,
			ua:        globalUA,
			fixedUA:   strings.TrimSpace(opts.UserAgent),
			closeConn: closeConn,
		},
		Jar:     jar,
		Timeout: timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}
