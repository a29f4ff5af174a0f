package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/John-Robertt/nfpad/internal/app/run"
	"github.com/John-Robertt/nfpad/internal/config"
	"github.com/John-Robertt/nfpad/internal/domain"
	"github.com/John-Robertt/nfpad/internal/history"
	"github.com/John-Robertt/nfpad/internal/infra/fsx"
)

func main() {
	args := os.Args[1:]
	if len(args) == 0 || isHelp(args[0]) {
		printUsage()
		return
	}

	switch args[0] {
	case "run":
		if code := runCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	case "hist":
		if code := histCmd(args[1:]); code != 0 {
			os.Exit(code)
		}
	default:
		fmt.Fprintf(os.Stderr, "未知命令：%q\n\n", args[0])
		printUsage()
		os.Exit(2)
	}
}

func runCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printRunUsage()
			return 0
		}
	}

	ra, err := parseRunArgs(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "参数错误：%v\n\n", err)
		printRunUsage()
		return 2
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "读取当前目录失败：%v\n", err)
		return 1
	}
	cwdAbs, _ := filepath.Abs(cwd)

	eff, err := config.LoadEffective(cwd, config.CLIArgs{
		Pasta:       ra.Pasta,
		Planilha:    ra.Planilha,
		PlanilhaSet: ra.PlanilhaSet,
		Apply:       ra.Apply,
		ApplySet:    ra.ApplySet,
	})
	if err != nil {
		rr := reportForConfigError(cwdAbs, ra, err)
		emitReport(rr)
		return 1
	}

	progressW, interactive := pickProgressWriter()
	var obs run.Observer
	if interactive {
		obs = newProgressUI(progressW)
	}

	rr := run.ExecuteWithObserver(context.Background(), eff, obs)

	// apply：必须写入 <pasta>/cache/report.json，并追加历史库；dry-run 禁止落盘。
	if eff.Apply {
		if err := writeReportFile(eff.Pasta, rr); err != nil {
			fmt.Fprintf(os.Stderr, "写入 report.json 失败：%v\n", err)
			emitReport(rr)
			return 1
		}
		if eff.History {
			// 历史库仅用于事后排查：写入失败不影响本次运行的结果与退出码。
			if err := recordHistory(eff.Pasta, rr); err != nil {
				fmt.Fprintf(os.Stderr, "写入历史库失败：%v\n", err)
			}
		}
	}

	emitReport(rr)
	if interactive {
		emitLocations(progressW, eff, rr)
	}
	if rr.Summary.Failed == 0 && rr.Summary.Unmatched == 0 {
		return 0
	}
	return 1
}

func histCmd(args []string) int {
	for _, a := range args {
		if isHelp(a) {
			printHistUsage()
			return 0
		}
	}
	if len(args) != 1 {
		fmt.Fprintf(os.Stderr, "用法：nfpad hist <pasta>\n")
		return 2
	}

	store, err := history.Open(filepath.Join(args[0], "cache", "history.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开历史库失败：%v\n", err)
		return 1
	}
	defer store.Close()

	runs, err := store.RecentRuns(20)
	if err != nil {
		fmt.Fprintf(os.Stderr, "查询历史失败：%v\n", err)
		return 1
	}
	for _, r := range runs {
		mode := "apply"
		if r.DryRun {
			mode = "dry-run"
		}
		fmt.Fprintf(os.Stdout, "%s %s %s processed=%d skipped=%d failed=%d unmatched=%d\n",
			r.FinishedAt, r.RunID, mode, r.Processed, r.Skipped, r.Failed, r.Unmatched)
	}
	return 0
}

type runArgs struct {
	Pasta       string
	Planilha    string
	PlanilhaSet bool
	Apply       bool
	ApplySet    bool
}

func parseRunArgs(args []string) (runArgs, error) {
	ra := runArgs{}

	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--planilha":
			if i+1 >= len(args) {
				return runArgs{}, fmt.Errorf("--planilha 需要一个值")
			}
			i++
			ra.Planilha = args[i]
			ra.PlanilhaSet = true
		case strings.HasPrefix(a, "--planilha="):
			ra.Planilha = strings.TrimPrefix(a, "--planilha=")
			ra.PlanilhaSet = true
		case a == "--apply":
			ra.Apply = true
			ra.ApplySet = true
		case strings.HasPrefix(a, "--apply="):
			v := strings.TrimPrefix(a, "--apply=")
			switch v {
			case "true":
				ra.Apply = true
			case "false":
				ra.Apply = false
			default:
				return runArgs{}, fmt.Errorf("--apply 只能是 true 或 false，实际是 %q", v)
			}
			ra.ApplySet = true
		case strings.HasPrefix(a, "-"):
			return runArgs{}, fmt.Errorf("未知参数 %q", a)
		default:
			if ra.Pasta != "" {
				return runArgs{}, fmt.Errorf("重复的 pasta：%q 与 %q", ra.Pasta, a)
			}
			ra.Pasta = a
		}
	}

	if ra.PlanilhaSet && strings.TrimSpace(ra.Planilha) == "" {
		return runArgs{}, fmt.Errorf("--planilha 不能为空")
	}

	return ra, nil
}

func isHelp(s string) bool {
	return s == "-h" || s == "--help" || s == "help"
}

func printUsage() {
	fmt.Fprint(os.Stdout, `用法：
  nfpad run [pasta] [--planilha <arquivo.xlsx>] [--apply[=true|false]]
  nfpad hist <pasta>

命令：
  run    整理当月的 Danfe/Boleto PDF 并回写台账（默认 dry-run）
  hist   查看最近的运行历史

使用 "nfpad run --help" 查看详细说明。
`)
}

func printRunUsage() {
	fmt.Fprint(os.Stdout, `用法：
  nfpad run [pasta] [--planilha <arquivo.xlsx>] [--apply[=true|false]]

参数：
  --planilha  台账工作簿路径（未指定则读配置文件 nfpad.json）
  --apply     真正复制文件并回写台账（默认 dry-run 只做预览）；
              支持 --apply=false 覆盖配置中的 apply=true
  -h, --help  显示帮助
`)
}

func printHistUsage() {
	fmt.Fprint(os.Stdout, `用法：
  nfpad hist <pasta>

列出该文件夹最近 20 次运行的摘要（来自 <pasta>/cache/history.db）。
`)
}

func emitReport(rr domain.RunReport) {
	if isTTY(os.Stdout) {
		fmt.Fprintf(os.Stdout, "完成：processed=%d skipped=%d failed=%d unmatched=%d\n",
			rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unmatched,
		)
		if rr.Summary.Failed > 0 || rr.Summary.Unmatched > 0 {
			for _, it := range rr.Items {
				if it.Status != domain.StatusFailed && it.Status != domain.StatusUnmatched {
					continue
				}
				src := it.Src
				if src == "" {
					src = "<run>"
				}
				fmt.Fprintf(os.Stderr, "%s %s: %s\n", src, it.ErrorCode, it.ErrorMsg)
			}
		}
		return
	}

	// stdout 非 TTY：stdout 必须且仅输出一个 RunReport JSON（日志/摘要走 stderr）。
	enc := json.NewEncoder(os.Stdout)
	_ = enc.Encode(rr)
	fmt.Fprintf(os.Stderr, "完成：processed=%d skipped=%d failed=%d unmatched=%d\n",
		rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unmatched,
	)
}

func reportForConfigError(cwdAbs string, ra runArgs, err error) domain.RunReport {
	now := time.Now().UTC()
	rr := domain.RunReport{
		Pasta:      cwdAbs,
		DryRun:     !(ra.ApplySet && ra.Apply),
		StartedAt:  now,
		FinishedAt: now,
		Items: []domain.FileResult{{
			Status:    domain.StatusFailed,
			ErrorCode: config.Code(err),
			ErrorMsg:  err.Error(),
		}},
	}
	rr.Finalize()
	return rr
}

func writeReportFile(pasta string, rr domain.RunReport) error {
	b, err := json.MarshalIndent(rr, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	return fsx.WriteFileAtomicReplace(filepath.Join(pasta, "cache"), "report.json", b)
}

func recordHistory(pasta string, rr domain.RunReport) error {
	store, err := history.Open(filepath.Join(pasta, "cache", "history.db"))
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(rr)
}

func isTTY(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func pickProgressWriter() (io.Writer, bool) {
	// 进度输出只在交互终端启用；默认走 stderr（不污染 stdout JSON）。
	if isTTY(os.Stderr) {
		return os.Stderr, true
	}
	// 某些环境（例如仅重定向 stderr）下，stdout 仍是 TTY：退化输出到 stdout。
	if isTTY(os.Stdout) {
		return os.Stdout, true
	}
	return nil, false
}

func emitLocations(w io.Writer, eff config.EffectiveConfig, rr domain.RunReport) {
	// 这两行用于降低"完成后不知道产物在哪"的摩擦，且不影响 stdout JSON 契约。
	if w == nil {
		return
	}
	if eff.Apply {
		fmt.Fprintf(w, "report: %s\n", filepath.Join(eff.Pasta, "cache", "report.json"))
	}
	fmt.Fprintf(w, "out: %s\n", rr.OutDir)
}
