package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/genre"
	"github.com/John-Robertt/RidiMeta/internal/infra/cache"
	"github.com/John-Robertt/RidiMeta/internal/infra/httpx"
	"github.com/John-Robertt/RidiMeta/internal/plugin"
	"github.com/John-Robertt/RidiMeta/internal/provider"
	"github.com/John-Robertt/RidiMeta/internal/provider/ridibooks"
)

func bookPage(id string, withLD bool) string {
	ld := ""
	if withLD {
		ld = `<script type="application/ld+json">{"@type": "Book", "author": {"name": "작가` + id + `"},
"publisher": {"name": "출판사"}, "datePublished": "20210301", "description": "소개",
"keywords": "&quot;판타지&quot;, &quot;모험&quot;"}</script>`
	}
	return `<html><head>
<meta property="og:title" content="시리즈 ` + id + `권">
<meta property="og:image" content="https://img.example/` + id + `.jpg">
<meta property="books:isbn" content="isbn-` + id + `">
<meta property="books:rating:normalized_value" content="0.8">
` + ld + `</head><body></body></html>`
}

// newSite 提供 /books/<id>：偶数 id 带 JSON-LD，奇数 id 缺失。
func newSite(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/account/action/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "1", Path: "/"})
	})
	mux.HandleFunc("/books/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/books/")
		n, err := strconv.Atoi(id)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(bookPage(id, n%2 == 0)))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type recordingHost struct {
	mu    sync.Mutex
	calls []string
	panic bool
}

func (h *recordingHost) CacheIsbnToIdentifier(_ context.Context, isbn, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "isbn:"+isbn+"="+id)
	return nil
}

func (h *recordingHost) CacheIdentifierToCoverURL(_ context.Context, id, url string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "cover:"+id+"="+url)
	return errors.New("cache down")
}

func (h *recordingHost) CleanDownloadedMetadata(m *domain.BookMetadata) {
	if h.panic {
		panic("boom")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, "clean:"+m.Title)
}

func (h *recordingHost) GenreMapping() genre.Mapping {
	return genre.NewMapping(map[string][]string{"판타지": {"Fantasy & SF"}})
}

func newWorker(srv *httptest.Server, id string, host Host, sink Sink, log zerolog.Logger) *Worker {
	return &Worker{
		Job:      Job{ID: "job-" + id, URL: srv.URL + "/books/" + id + "?_s=search", Relevance: 7},
		Timeout:  5 * time.Second,
		Provider: ridibooks.Provider{BaseURL: srv.URL},
		Sessions: httpx.NewSessionFactory(httpx.Options{}),
		Host:     host,
		Sink:     sink,
		Log:      log,
	}
}

func TestWorker_Load_SideEffectsInOrder(t *testing.T) {
	srv := newSite(t)
	host := &recordingHost{}
	w := newWorker(srv, "2", host, nil, zerolog.Nop())

	m, err := w.Load(context.Background())
	if err != nil {
		t.Fatalf("Load 失败：%v", err)
	}
	want := []string{
		"isbn:isbn-2=2",
		"cover:2=https://img.example/2.jpg",
		"clean:시리즈 2권",
	}
	if strings.Join(host.calls, "|") != strings.Join(want, "|") {
		t.Fatalf("副作用顺序不符：%v", host.calls)
	}
	if m.SourceRelevance != 7 {
		t.Fatalf("relevance 应原样透传，实际 %d", m.SourceRelevance)
	}
	if m.Series == nil || m.Series.Name != "시리즈" || m.Series.Index != 2 {
		t.Fatalf("series 不符：%+v", m.Series)
	}
	if len(m.Tags) != 2 || m.Tags[0] != "Fantasy & SF" || m.Tags[1] != "모험" {
		t.Fatalf("tags 不符：%v", m.Tags)
	}
}

func TestWorker_Run_MissingLDPublishesNothing(t *testing.T) {
	srv := newSite(t)
	var logs bytes.Buffer
	sink := &Collector{}
	host := &recordingHost{}
	w := newWorker(srv, "3", host, sink, zerolog.New(&logs))

	err := w.Run(context.Background())
	if err == nil {
		t.Fatalf("缺少 JSON-LD 时应失败")
	}
	if code, _ := Classify(err); code != domain.ErrCodeParseFailed {
		t.Fatalf("期望 parse_failed，实际 %q", code)
	}
	if sink.Len() != 0 {
		t.Fatalf("失败时不应发布记录")
	}
	if len(host.calls) != 0 {
		t.Fatalf("失败时不应触发缓存/清理：%v", host.calls)
	}
	out := logs.String()
	if !strings.Contains(out, "get_details failed") || !strings.Contains(out, `"job_id":"job-3"`) || !strings.Contains(out, "/books/3") {
		t.Fatalf("失败日志缺少上下文：%s", out)
	}
}

func TestWorker_Run_RecoversPanic(t *testing.T) {
	srv := newSite(t)
	sink := &Collector{}
	w := newWorker(srv, "4", &recordingHost{panic: true}, sink, zerolog.Nop())

	err := w.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "panic") {
		t.Fatalf("panic 应被转换为错误，实际 %v", err)
	}
	if sink.Len() != 0 {
		t.Fatalf("panic 时不应发布记录")
	}
}

func TestWorker_Run_TimeoutIsFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/account/action/login" {
			return
		}
		<-r.Context().Done()
	}))
	defer srv.Close()

	sink := &Collector{}
	w := newWorker(srv, "2", &recordingHost{}, sink, zerolog.Nop())
	w.Timeout = 100 * time.Millisecond

	err := w.Run(context.Background())
	if code, _ := Classify(err); code != domain.ErrCodeFetchFailed {
		t.Fatalf("超时应归为 fetch_failed，实际 %q（%v）", code, err)
	}
	if sink.Len() != 0 {
		t.Fatalf("超时不应发布记录")
	}
}

func TestPool_Dispatch_MOfNSucceed(t *testing.T) {
	srv := newSite(t)
	store := cache.NewMemory()
	host := plugin.New(store, genre.Mapping{}, zerolog.Nop())
	out := make(chan domain.BookMetadata, 16)

	const n = 10
	urls := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		urls = append(urls, fmt.Sprintf("%s/books/%d?_s=search", srv.URL, i))
	}

	var mu sync.Mutex
	failed := 0
	p := &Pool{
		Concurrency: 3,
		Timeout:     5 * time.Second,
		Provider:    ridibooks.Provider{BaseURL: srv.URL},
		Sessions:    httpx.NewSessionFactory(httpx.Options{}),
		Host:        host,
		Sink:        ChanSink(out),
		Log:         zerolog.Nop(),
		OnDone: func(job Job, err error, dur time.Duration) {
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
			}
		},
	}
	jobs := NewJobs(urls, 1)
	p.Dispatch(context.Background(), jobs)
	close(out)

	seen := map[string]bool{}
	for m := range out {
		seen[m.Identifier.ID] = true
	}
	if len(seen) != n/2 || failed != n/2 {
		t.Fatalf("期望 %d 条记录与 %d 个失败，实际 %d 条记录 %d 个失败", n/2, n/2, len(seen), failed)
	}

	ctx := context.Background()
	for i := 1; i <= n; i++ {
		id := strconv.Itoa(i)
		got, ok, _ := store.IdentifierForISBN(ctx, "isbn-"+id)
		if i%2 == 0 {
			if !seen[id] || !ok || got != id {
				t.Fatalf("id=%s 缓存或记录缺失：ok=%v got=%q", id, ok, got)
			}
			if u, _, _ := store.CoverURLForIdentifier(ctx, id); u != "https://img.example/"+id+".jpg" {
				t.Fatalf("id=%s 封面缓存不符：%q", id, u)
			}
		} else if ok {
			t.Fatalf("失败任务不应写缓存：id=%s", id)
		}
	}
}

func TestNewJobs(t *testing.T) {
	jobs := NewJobs([]string{"a", "b"}, 5)
	if len(jobs) != 2 || jobs[0].Relevance != 5 || jobs[1].Relevance != 6 {
		t.Fatalf("relevance 分配不符：%+v", jobs)
	}
	if jobs[0].ID == "" || jobs[0].ID == jobs[1].ID {
		t.Fatalf("job ID 应唯一：%+v", jobs)
	}
}

func TestClassify(t *testing.T) {
	fe := &provider.Error{Provider: "ridibooks", Stage: "fetch", Err: &provider.FetchError{URL: "u", Stage: "get", Err: &provider.HTTPStatusError{StatusCode: 429}}}
	code, msg := Classify(fe)
	if code != domain.ErrCodeFetchFailed || !strings.Contains(msg, "429") {
		t.Fatalf("分类不符：%q %q", code, msg)
	}
	if code, _ := Classify(nil); code != "" {
		t.Fatalf("nil 不应有分类")
	}
}
