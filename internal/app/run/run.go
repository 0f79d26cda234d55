package run

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/John-Robertt/RidiMeta/internal/app"
	"github.com/John-Robertt/RidiMeta/internal/config"
	"github.com/John-Robertt/RidiMeta/internal/domain"
	"github.com/John-Robertt/RidiMeta/internal/genre"
	"github.com/John-Robertt/RidiMeta/internal/infra/cache"
	"github.com/John-Robertt/RidiMeta/internal/infra/fsx"
	"github.com/John-Robertt/RidiMeta/internal/infra/httpx"
	"github.com/John-Robertt/RidiMeta/internal/opf"
	"github.com/John-Robertt/RidiMeta/internal/plugin"
	"github.com/John-Robertt/RidiMeta/internal/provider"
	"github.com/John-Robertt/RidiMeta/internal/provider/ridibooks"
	"github.com/John-Robertt/RidiMeta/internal/worker"
)

const (
	FormatJSON = "json"
	FormatOPF  = "opf"
)

// Request 是一次 fetch 运行的输入。
type Request struct {
	URLs []string

	// Format 为空时按 json 处理。
	Format string
	// OutDir 为空时不落盘，记录只通过 Result 返回。
	OutDir    string
	Overwrite bool

	RelevanceStart int

	// Provider 为空时使用 ridibooks.Provider{BaseURL: eff.BaseURL}。
	Provider provider.Provider
	Log      zerolog.Logger
}

// Result 是 run 的产出：报告 + 成功记录（按 relevance 升序）。
type Result struct {
	Report  domain.RunReport
	Records []domain.BookMetadata
}

// Execute 执行一次 fetch，并返回 RunReport 与记录。
// 该函数尽量把错误“降级”为 item 级失败（单条失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig, req Request) Result {
	return ExecuteWithObserver(ctx, eff, req, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, req Request, obs Observer) Result {
	started := time.Now().UTC()
	if obs != nil {
		obs.OnStart(eff, len(req.URLs))
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Items:     make([]domain.ItemResult, 0, len(req.URLs)),
	}
	finish := func(records []domain.BookMetadata) Result {
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		return Result{Report: rr, Records: records}
	}
	log := req.Log.With().Str("run_id", rr.RunID).Logger()

	groupStarted := time.Now()
	targets, rejected := app.GroupByIdentifier(req.URLs)
	rr.Items = append(rr.Items, rejected...)
	if obs != nil {
		var invalid, dup int
		for _, r := range rejected {
			if r.Status == domain.StatusInvalid {
				invalid++
			} else {
				dup++
			}
		}
		obs.OnPhaseDone("group", map[string]any{
			"urls":      len(req.URLs),
			"books":     len(targets),
			"invalid":   invalid,
			"duplicate": dup,
		}, time.Since(groupStarted))
	}
	if len(targets) == 0 {
		return finish(nil)
	}

	format := strings.ToLower(strings.TrimSpace(req.Format))
	if format == "" {
		format = FormatJSON
	}
	if format != FormatJSON && format != FormatOPF {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, fmt.Sprintf("format 无效：%q（可选 json / opf）", req.Format)))
		return finish(nil)
	}
	if format == FormatOPF && strings.TrimSpace(req.OutDir) == "" {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, "format=opf 需要同时指定输出目录"))
		return finish(nil)
	}

	setupStarted := time.Now()
	sessions := httpx.NewSessionFactory(httpx.Options{
		ProxyURL:  eff.ProxyURL,
		Timeout:   eff.Timeout,
		UserAgent: eff.UserAgent,
	})
	if _, err := sessions(); err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, fmt.Sprintf("proxy.url 无效：%v", err)))
		return finish(nil)
	}

	mapping, err := LoadMapping(eff)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeConfigInvalid, fmt.Sprintf("读取分类映射失败：%v", err)))
		return finish(nil)
	}

	store, cacheKind, err := openCache(eff.CachePath)
	if err != nil {
		rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("打开缓存失败：%v", err)))
		return finish(nil)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("close cache failed")
		}
	}()

	if req.OutDir != "" {
		if err := ensureDir(req.OutDir); err != nil {
			rr.Items = append(rr.Items, syntheticFailed(domain.ErrCodeIOFailed, fmt.Sprintf("创建输出目录失败：%v", err)))
			return finish(nil)
		}
	}

	p := req.Provider
	if p == nil {
		p = ridibooks.Provider{BaseURL: eff.BaseURL}
	}
	if obs != nil {
		obs.OnPhaseDone("setup", map[string]any{
			"cache":    cacheKind,
			"mappings": mapping.Len(),
			"format":   format,
		}, time.Since(setupStarted))
	}

	jobs := worker.NewJobs(app.URLs(targets), req.RelevanceStart)
	byJob := make(map[string]app.Target, len(jobs))
	for i := range jobs {
		byJob[jobs[i].ID] = targets[i]
	}

	sink := newRecordSink()
	var (
		mu   sync.Mutex
		done int
	)
	pool := &worker.Pool{
		Concurrency: eff.Concurrency,
		Timeout:     eff.Timeout,
		Provider:    p,
		Sessions:    sessions,
		Host:        plugin.New(store, mapping, log),
		Sink:        sink,
		Log:         log,
		OnDone: func(job worker.Job, err error, dur time.Duration) {
			res := itemFor(job, byJob[job.ID], err)
			if err == nil {
				if m, ok := sink.get(job.Relevance); ok {
					res.SourceID = m.Identifier.ID
					if req.OutDir != "" {
						writeRecord(&res, req.OutDir, format, m, req.Overwrite)
					}
				}
			}

			mu.Lock()
			defer mu.Unlock()
			done++
			rr.Items = append(rr.Items, res)
			if obs != nil {
				obs.OnItemDone(done, len(jobs), res, dur)
			}
		},
	}

	if obs != nil {
		obs.OnPhaseDone("exec", map[string]any{
			"workers": pool.Concurrency,
			"jobs":    len(jobs),
		}, 0)
	}
	pool.Dispatch(ctx, jobs)

	return finish(sink.ordered())
}

func itemFor(job worker.Job, t app.Target, err error) domain.ItemResult {
	item := domain.ItemResult{
		URL:      job.URL,
		SourceID: t.SourceID,
		JobID:    job.ID,
		Status:   domain.StatusProcessed,
	}
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode, item.ErrorMsg = worker.Classify(err)
	}
	return item
}

func writeRecord(item *domain.ItemResult, dir, format string, m domain.BookMetadata, overwrite bool) {
	var (
		b   []byte
		ext string
		err error
	)
	switch format {
	case FormatOPF:
		b, err = opf.Encode(m)
		ext = ".opf"
	default:
		b, err = json.MarshalIndent(m, "", "  ")
		if err == nil {
			b = append(b, '\n')
		}
		ext = ".json"
	}
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = fmt.Sprintf("编码 %s 失败：%v", format, err)
		return
	}

	name, err := fsx.OutputName(m.Identifier.Source, m.Identifier.ID, ext)
	if err != nil {
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = err.Error()
		return
	}
	item.Output = filepath.Join(dir, name)

	if err := fsx.WriteOutput(dir, name, b, overwrite); err != nil {
		if errors.Is(err, os.ErrExist) {
			item.Status = domain.StatusSkipped
			item.ErrorMsg = "输出文件已存在（需要覆盖请加 --overwrite）"
			return
		}
		item.Status = domain.StatusFailed
		item.ErrorCode = domain.ErrCodeIOFailed
		item.ErrorMsg = fmt.Sprintf("写入输出失败：%v", err)
	}
}

// LoadMapping 按配置取分类映射：映射文件优先，否则用配置内联的 genre_mappings。
func LoadMapping(eff config.EffectiveConfig) (genre.Mapping, error) {
	if eff.MappingFile != "" {
		return genre.LoadMapping(eff.MappingFile)
	}
	return genre.NewMapping(eff.InlineMappings), nil
}

func openCache(path string) (cache.Store, string, error) {
	if strings.TrimSpace(path) == "" {
		return cache.NewMemory(), "memory", nil
	}
	s, err := cache.OpenSQLite(path, false)
	if err != nil {
		return nil, "", err
	}
	return s, "sqlite", nil
}

func syntheticFailed(code, msg string) domain.ItemResult {
	return domain.ItemResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}

func ensureDir(dir string) error {
	fi, err := os.Stat(dir)
	if err == nil {
		if fi.IsDir() {
			return nil
		}
		return &fsx.PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
	}
	if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// recordSink 按 relevance 收集记录；relevance 在一次 run 内唯一。
type recordSink struct {
	mu   sync.Mutex
	recs map[int]domain.BookMetadata
}

func newRecordSink() *recordSink {
	return &recordSink{recs: make(map[int]domain.BookMetadata, 16)}
}

func (s *recordSink) Put(m domain.BookMetadata) {
	s.mu.Lock()
	s.recs[m.SourceRelevance] = m
	s.mu.Unlock()
}

func (s *recordSink) get(relevance int) (domain.BookMetadata, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.recs[relevance]
	return m, ok
}

func (s *recordSink) ordered() []domain.BookMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BookMetadata, 0, len(s.recs))
	for _, m := range s.recs {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceRelevance < out[j].SourceRelevance })
	return out
}
