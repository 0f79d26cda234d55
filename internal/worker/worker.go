// Package worker 执行“一个 URL → 至多一条记录”的抓取解析单元，并提供有界并发池。
package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/genre"
	"github.com/John-Robertt/RidiMeta/internal/infra/httpx"
	"github.com/John-Robertt/RidiMeta/internal/provider"
)

// Host 是 worker 依赖的宿主能力（由 plugin.Context 实现）。
type Host interface {
	CacheIsbnToIdentifier(ctx context.Context, isbn, id string) error
	CacheIdentifierToCoverURL(ctx context.Context, id, url string) error
	CleanDownloadedMetadata(m *domain.BookMetadata)
	GenreMapping() genre.Mapping
}

// Job 是一次调用的输入。
type Job struct {
	ID        string
	URL       string
	Relevance int
}

// Worker 处理单个 Job。
//
// 约束：
// - 每个 Worker 使用 Sessions 新建的独立会话，不与其它 Worker 共享 cookie
// - 失败只体现为日志与“没有记录”；Run 不向外抛 panic
// - 只有完整记录才会发布到 Sink
type Worker struct {
	Job

	Timeout  time.Duration
	Provider provider.Provider
	Sessions httpx.SessionFactory
	Host     Host
	Sink     Sink
	Log      zerolog.Logger
}

// Load 抓取、解析并完成发布前的全部副作用，返回最终记录。
//
// 副作用顺序：缓存 ISBN↔ID → 缓存 ID↔封面 → CleanDownloadedMetadata。
// 缓存失败只记录告警，不影响记录产出。
func (w *Worker) Load(ctx context.Context) (domain.BookMetadata, error) {
	if w.Provider == nil || w.Sessions == nil || w.Host == nil {
		return domain.BookMetadata{}, fmt.Errorf("worker 未完整配置")
	}
	c, err := w.Sessions()
	if err != nil {
		return domain.BookMetadata{}, &provider.Error{Provider: w.Provider.Name(), Stage: "fetch", Err: err}
	}

	timeout := w.Timeout
	if timeout <= 0 {
		timeout = httpx.DefaultTimeout
	}
	fctx, cancel := context.WithTimeout(ctx, timeout)
	parsed, err := provider.FetchParse(fctx, w.Provider, w.URL, c, w.Host.GenreMapping())
	cancel()
	if err != nil {
		return domain.BookMetadata{}, err
	}

	m := parsed.Meta
	m.SourceRelevance = w.Relevance
	id := m.Identifier.ID
	log := w.logger()

	if id != "" && parsed.ISBN != "" {
		if err := w.Host.CacheIsbnToIdentifier(ctx, parsed.ISBN, id); err != nil {
			log.Warn().Err(err).Str("isbn", parsed.ISBN).Msg("cache isbn failed")
		}
	}
	if id != "" && m.CoverURL != "" {
		if err := w.Host.CacheIdentifierToCoverURL(ctx, id, m.CoverURL); err != nil {
			log.Warn().Err(err).Str("cover_url", m.CoverURL).Msg("cache cover url failed")
		}
	}
	w.Host.CleanDownloadedMetadata(&m)
	return m, nil
}

// Run 是单个任务的最外层边界：成功则发布记录，失败只写日志。
// 返回值只用于上层统计（report），不影响其它任务。
func (w *Worker) Run(ctx context.Context) (err error) {
	log := w.logger()
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			log.Error().Str("stack", string(debug.Stack())).Err(err).Msg("get_details failed")
		}
	}()

	m, err := w.Load(ctx)
	if err != nil {
		kind, _ := Classify(err)
		log.Error().Err(err).Str("kind", kind).Dur("elapsed", time.Since(started)).Msg("get_details failed")
		return err
	}
	if w.Sink != nil {
		w.Sink.Put(m.Clone())
	}
	log.Info().
		Str("id", m.Identifier.ID).
		Str("title", m.Title).
		Int("tags", len(m.Tags)).
		Dur("elapsed", time.Since(started)).
		Msg("metadata extracted")
	return nil
}

func (w *Worker) logger() zerolog.Logger {
	return w.Log.With().Str("job_id", w.Job.ID).Str("url", w.URL).Logger()
}
