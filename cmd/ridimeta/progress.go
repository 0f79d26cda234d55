package main

import (
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/John-Robertt/RidiMeta/internal/app/run"
	"github.com/John-Robertt/RidiMeta/internal/config"
	"github.com/John-Robertt/RidiMeta/internal/domain"
)

var _ run.Observer = (*logObserver)(nil)

// logObserver 把 run 事件写成结构化日志（stderr），不碰 stdout 的记录流。
// zerolog.Logger 本身并发安全。
type logObserver struct {
	log zerolog.Logger
}

func newLogObserver(log zerolog.Logger) *logObserver {
	return &logObserver{log: log}
}

func (o *logObserver) OnStart(eff config.EffectiveConfig, total int) {
	ev := o.log.Info().
		Int("urls", total).
		Int("concurrency", eff.Concurrency).
		Dur("timeout", eff.Timeout).
		Str("proxy", formatProxy(eff.ProxyURL))
	if eff.ConfigFile != "" {
		ev = ev.Str("config", eff.ConfigFile)
	}
	if eff.CachePath != "" {
		ev = ev.Str("cache_path", eff.CachePath)
	}
	ev.Msg("run started")
}

func (o *logObserver) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	o.log.Info().Str("phase", name).Fields(fields).Dur("elapsed", dur).Msg("phase done")
}

func (o *logObserver) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	ev := o.log.Info()
	if res.Status == domain.StatusFailed {
		ev = o.log.Warn().Str("error_code", res.ErrorCode).Str("error_msg", res.ErrorMsg)
	}
	if res.Output != "" {
		ev = ev.Str("output", res.Output)
	}
	ev.Int("done", idx).
		Int("total", total).
		Str("source_id", res.SourceID).
		Str("status", res.Status).
		Dur("elapsed", dur).
		Msg("item done")
}

// formatProxy 隐去代理地址中的账号密码。
func formatProxy(raw string) string {
	if raw == "" {
		return "off"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "on"
	}
	return u.Scheme + "://" + u.Host
}
