package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/RidiMeta/internal/infra/httpx"
	"github.com/John-Robertt/RidiMeta/internal/provider"
)

const (
	DefaultConcurrency = 4
	MaxConcurrency     = 32
)

// Pool 以有界并发执行一批 Job。
//
// 约束：
// - 单个任务失败不取消兄弟任务（errgroup 不带 ctx，任务函数恒返回 nil）
// - 每个任务拥有独立会话与独立超时
// - OnDone 可能被多个 goroutine 并发调用
type Pool struct {
	Concurrency int
	Timeout     time.Duration
	Provider    provider.Provider
	Sessions    httpx.SessionFactory
	Host        Host
	Sink        Sink
	Log         zerolog.Logger

	OnStart func(job Job)
	OnDone  func(job Job, err error, dur time.Duration)
}

// NewJobs 为每个 URL 分配 job ID；relevance 从 start 起递增。
func NewJobs(urls []string, start int) []Job {
	out := make([]Job, 0, len(urls))
	for i, u := range urls {
		out = append(out, Job{ID: uuid.NewString(), URL: u, Relevance: start + i})
	}
	return out
}

// Dispatch 执行全部 Job 并等待结束。
func (p *Pool) Dispatch(ctx context.Context, jobs []Job) {
	limit := p.Concurrency
	if limit < 1 {
		limit = DefaultConcurrency
	}
	if limit > MaxConcurrency {
		limit = MaxConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for _, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		g.Go(func() error {
			if p.OnStart != nil {
				p.OnStart(job)
			}
			w := &Worker{
				Job:      job,
				Timeout:  p.Timeout,
				Provider: p.Provider,
				Sessions: p.Sessions,
				Host:     p.Host,
				Sink:     p.Sink,
				Log:      p.Log,
			}
			started := time.Now()
			err := w.Run(ctx)
			if p.OnDone != nil {
				p.OnDone(job, err, time.Since(started))
			}
			return nil
		})
	}
	_ = g.Wait()
}
