package domain

import (
	"encoding/json"
	"sort"
	"time"
)

const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
	StatusInvalid   = "invalid"
)

const (
	ErrCodeInvalidURL     = "invalid_url"
	ErrCodeDuplicate      = "duplicate"
	ErrCodeFetchFailed    = "fetch_failed"
	ErrCodeParseFailed    = "parse_failed"
	ErrCodeIOFailed       = "io_failed"
	ErrCodeConfigNotFound = "config_not_found"
	ErrCodeConfigInvalid  = "config_invalid"
)

// RunReport 是一次 fetch 运行的汇总（stderr / --report 文件）。
type RunReport struct {
	RunID string `json:"run_id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []ItemResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Invalid   int `json:"invalid"`
}

// ItemResult 对应一个输入 URL。
type ItemResult struct {
	URL      string `json:"url"`
	SourceID string `json:"source_id"`
	JobID    string `json:"job_id,omitempty"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	Output string `json:"output,omitempty"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 source_id 字典序；source_id=="" 的条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].SourceID
		b := r.Items[j].SourceID
		if a == "" {
			return false
		}
		if b == "" {
			return true
		}
		return a < b
	})

	var s ReportSummary
	for _, it := range r.Items {
		switch it.Status {
		case StatusProcessed:
			s.Processed++
		case StatusSkipped:
			s.Skipped++
		case StatusFailed:
			s.Failed++
		case StatusInvalid:
			s.Invalid++
		}
	}
	r.Summary = s
}

// HasFailures 用于决定进程退出码。
func (r RunReport) HasFailures() bool {
	return r.Summary.Failed > 0 || r.Summary.Invalid > 0
}

// MarshalJSON 集中约束输出稳定性；当前透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
