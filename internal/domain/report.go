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
	StatusUnmatched = "unmatched"
)

const (
	ErrCodeNoKey          = "no_key"
	ErrCodeUnmatchedKey   = "unmatched_key"
	ErrCodeHeaderNotFound = "header_not_found"
	ErrCodeColumnsMissing = "columns_missing"
	ErrCodeOpenFailed     = "open_failed"
	ErrCodeSaveFailed     = "save_failed"
	ErrCodeCopyFailed     = "copy_failed"
	ErrCodeIOFailed       = "io_failed"

	ErrCodeConfigNotFound        = "config_not_found"
	ErrCodeConfigInvalid         = "config_invalid"
	ErrCodeConfigMissingPasta    = "config_missing_pasta"
	ErrCodeConfigMissingPlanilha = "config_missing_planilha"
)

// RunReport 是对外稳定输出（stdout JSON / cache/report.json / 历史库）的结构。
type RunReport struct {
	RunID    string `json:"run_id"`
	Planilha string `json:"planilha"`
	Pasta    string `json:"pasta"`
	OutDir   string `json:"out_dir"`
	DryRun   bool   `json:"dry_run"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Summary ReportSummary `json:"summary"`
	Items   []FileResult  `json:"items"`
}

type ReportSummary struct {
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Unmatched int `json:"unmatched"`
}

// FileResult 是单个 PDF 的处理结果：匹配并复制（processed）、已处理跳过（skipped）、
// 键未命中台账（unmatched）、或执行失败（failed）。
type FileResult struct {
	Src  string `json:"src"`
	Dst  string `json:"dst"`
	Key  int    `json:"key"`
	Kind string `json:"kind"`

	Status    string `json:"status"`
	ErrorCode string `json:"error_code"`
	ErrorMsg  string `json:"error_msg"`

	InvoiceNumber string `json:"invoice_number"`
}

// Finalize 做三件事：
// 1) 时间统一为 UTC（确保 JSON 为 RFC3339 且后缀 Z）
// 2) items 稳定排序：按 Src 字典序；Src=="" 的合成条目排在最后
// 3) summary 由 items 计算得出
func (r *RunReport) Finalize() {
	r.StartedAt = r.StartedAt.UTC()
	r.FinishedAt = r.FinishedAt.UTC()

	sort.SliceStable(r.Items, func(i, j int) bool {
		a := r.Items[i].Src
		b := r.Items[j].Src
		if a == "" && b == "" {
			return false
		}
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
		case StatusUnmatched:
			s.Unmatched++
		}
	}
	r.Summary = s
}

// MarshalJSON 仅用于集中约束输出的稳定性（避免未来不小心引入非确定字段）。
// 当前只是透传 encoding/json 的默认行为。
func (r RunReport) MarshalJSON() ([]byte, error) {
	type Alias RunReport
	return json.Marshal(Alias(r))
}
