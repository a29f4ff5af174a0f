package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/nfpad/internal/app/run"
	"github.com/John-Robertt/nfpad/internal/config"
	"github.com/John-Robertt/nfpad/internal/domain"
)

var _ run.Observer = (*progressUI)(nil)

// progressUI 是交互终端的进度输出。
//
// 设计目标：
// - 所有过程信息写到 stderr（或 fallback 到 stdout），不污染 stdout 的 JSON 输出契约
// - 事件驱动：run 层只发事件，CLI 决定如何展示
// - 执行是顺序的，事件来自单一 goroutine，无需加锁
type progressUI struct {
	w io.Writer

	startedAt time.Time
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w}
}

func (p *progressUI) OnStart(eff config.EffectiveConfig) {
	now := time.Now()
	if p.startedAt.IsZero() {
		p.startedAt = now
	}

	mode := "dry-run"
	modeHint := " (不复制/不回写)"
	if eff.Apply {
		mode = "apply"
		modeHint = ""
	}

	fmt.Fprintf(p.w, "[%s] nfpad run (%s)\n", now.Format("15:04:05"), mode)
	fmt.Fprintln(p.w, "配置（生效）:")
	fmt.Fprintf(p.w, "  pasta: %s\n", eff.Pasta)
	fmt.Fprintf(p.w, "  planilha: %s\n", eff.Planilha)
	fmt.Fprintf(p.w, "  mode: %s%s\n", mode, modeHint)
	fmt.Fprintf(p.w, "  history: %s\n", onOff(eff.History))
	fmt.Fprintf(p.w, "  exclude_dirs: %s + 固定排除 cache/\n", formatStringListJSON(eff.ExcludeDirs))
	fmt.Fprintln(p.w)
}

func (p *progressUI) OnPhaseDone(name string, fields map[string]any, dur time.Duration) {
	switch name {
	case "planilha":
		fmt.Fprintf(p.w, "台账: pedidos=%d (%s)\n",
			intField(fields, "pedidos"), formatShortDuration(dur),
		)
	case "scan":
		fmt.Fprintf(p.w, "扫描: arquivos=%d (%s)\n\n",
			intField(fields, "arquivos"), formatShortDuration(dur),
		)
	default:
		// 兜底：未知阶段也不要静默（便于调试/演进）。
		fmt.Fprintf(p.w, "%s (%s)\n", name, formatShortDuration(dur))
	}
}

func (p *progressUI) OnLog(msg string) {
	fmt.Fprintf(p.w, "%s - %s\n", time.Now().Format("15:04:05"), msg)
}

func (p *progressUI) OnFileDone(idx, total int, res domain.FileResult, dur time.Duration) {
	status := strings.ToUpper(res.Status)
	switch res.Status {
	case domain.StatusProcessed:
		status = "OK"
	case domain.StatusSkipped:
		status = "SKIP"
	case domain.StatusFailed:
		status = "FAIL"
	case domain.StatusUnmatched:
		status = "SEM-MATCH"
	}

	pct := 0
	if total > 0 {
		pct = idx * 100 / total
	}

	switch res.Status {
	case domain.StatusFailed, domain.StatusUnmatched:
		fmt.Fprintf(p.w, "[%d/%d] %3d%% %s %s %s: %s (%s)\n",
			idx, total, pct, res.Src, status, res.ErrorCode, truncate(res.ErrorMsg, 160), formatShortDuration(dur),
		)
	case domain.StatusSkipped:
		fmt.Fprintf(p.w, "[%d/%d] %3d%% %s %s (já processado) (%s)\n",
			idx, total, pct, res.Src, status, formatShortDuration(dur),
		)
	default:
		nf := ""
		if res.InvoiceNumber != "" {
			nf = " nf=" + res.InvoiceNumber
		}
		fmt.Fprintf(p.w, "[%d/%d] %3d%% %s %s -> %s%s (%s)\n",
			idx, total, pct, res.Src, status, filepath.Base(res.Dst), nf, formatShortDuration(dur),
		)
	}
}

func (p *progressUI) OnDone(success bool, msg string) {
	elapsed := time.Since(p.startedAt)
	if !success {
		fmt.Fprintf(p.w, "\n失败: %s (elapsed=%s)\n", truncate(msg, 200), formatElapsed(elapsed))
		return
	}
	fmt.Fprintf(p.w, "\n结束: %s (elapsed=%s)\n", msg, formatElapsed(elapsed))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}

func formatStringListJSON(xs []string) string {
	// json.Marshal(nil slice) => "null"；对用户更友好的是 "[]"
	if xs == nil {
		xs = []string{}
	}
	b, err := json.Marshal(xs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func truncate(s string, max int) string {
	s = strings.TrimSpace(s)
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int(d.Seconds())
	h := sec / 3600
	m := (sec % 3600) / 60
	s := sec % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func intField(fields map[string]any, key string) int {
	if fields == nil {
		return 0
	}
	v, ok := fields[key]
	if !ok {
		return 0
	}
	switch x := v.(type) {
	case int:
		return x
	case int32:
		return int(x)
	case int64:
		return int(x)
	case uint:
		return int(x)
	case uint32:
		return int(x)
	case uint64:
		return int(x)
	default:
		return 0
	}
}
