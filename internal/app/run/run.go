// Package run 是一次整理运行的核心执行流程：读台账建索引、扫描 PDF、
// 逐个匹配/复制/回写，最后保存台账并产出 RunReport。
package run

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/John-Robertt/nfpad/internal/config"
	"github.com/John-Robertt/nfpad/internal/domain"
	"github.com/John-Robertt/nfpad/internal/filekey"
	"github.com/John-Robertt/nfpad/internal/infra/fsx"
	"github.com/John-Robertt/nfpad/internal/ledger"
	"github.com/John-Robertt/nfpad/internal/nf"
	"github.com/John-Robertt/nfpad/internal/pdftext"
	"github.com/John-Robertt/nfpad/internal/scan"
)

// monthNames 是目标月份文件夹使用的葡语月份名（1 月起）。
var monthNames = [...]string{
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// monthFolder 返回形如 "08 - Agosto" 的目标文件夹名。
func monthFolder(t time.Time) string {
	return fmt.Sprintf("%02d - %s", int(t.Month()), monthNames[t.Month()-1])
}

// Execute 执行一次 run（dry-run/apply），并返回对外稳定的 RunReport。
// 该函数尽量把错误"降级"为文件级失败（单个 PDF 失败不影响其他）。
func Execute(ctx context.Context, eff config.EffectiveConfig) domain.RunReport {
	return ExecuteWithObserver(ctx, eff, nil)
}

// ExecuteWithObserver 与 Execute 相同，但允许传入 Observer 以输出进度/阶段信息（由上层决定是否启用）。
func ExecuteWithObserver(ctx context.Context, eff config.EffectiveConfig, obs Observer) domain.RunReport {
	started := time.Now().UTC()

	if obs != nil {
		obs.OnStart(eff)
	}

	rr := domain.RunReport{
		RunID:     uuid.NewString(),
		Planilha:  eff.Planilha,
		Pasta:     eff.Pasta,
		DryRun:    !eff.Apply,
		StartedAt: started,
		Items:     make([]domain.FileResult, 0, 64),
	}

	fatal := func(code, msg string) domain.RunReport {
		rr.Items = append(rr.Items, syntheticFailed(code, msg))
		rr.FinishedAt = time.Now().UTC()
		rr.Finalize()
		if obs != nil {
			obs.OnDone(false, msg)
		}
		return rr
	}

	ledgerStarted := time.Now()
	led, err := ledger.Open(eff.Planilha)
	if err != nil {
		return fatal(ledger.Code(err), err.Error())
	}
	defer led.Close()

	records, err := led.Index(func(msg string) {
		if obs != nil {
			obs.OnLog(msg)
		}
	})
	if err != nil {
		return fatal(ledger.Code(err), err.Error())
	}
	if obs != nil {
		obs.OnPhaseDone("planilha", map[string]any{
			"pedidos": len(records),
		}, time.Since(ledgerStarted))
	}

	scanStarted := time.Now()
	files, err := scan.ScanPDFs(eff.Pasta, eff.ExcludeDirs)
	if err != nil {
		return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("扫描失败：%v", err))
	}
	if obs != nil {
		obs.OnPhaseDone("scan", map[string]any{
			"arquivos": len(files),
		}, time.Since(scanStarted))
	}

	// 目标文件夹与 pasta 平级："<pai>/<MM - Mês>"。
	outDir := filepath.Join(filepath.Dir(eff.Pasta), monthFolder(time.Now()))
	rr.OutDir = outDir
	if eff.Apply && len(files) > 0 {
		if err := fsx.EnsureDir(outDir); err != nil {
			return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("创建目标文件夹失败：%v", err))
		}
	}

	// taken 记录本次运行内已选定的目标文件名：
	// dry-run 也据此避让，保证两次运行给出一致的命名预览。
	taken := make(map[string]bool)

	for i := range files {
		if err := ctx.Err(); err != nil {
			return fatal(domain.ErrCodeIOFailed, fmt.Sprintf("运行被取消：%v", err))
		}

		oneStarted := time.Now()
		res := processOne(eff, led, records, files[i], outDir, taken, obs)
		rr.Items = append(rr.Items, res)
		if obs != nil {
			obs.OnFileDone(i+1, len(files), res, time.Since(oneStarted))
		}
	}

	if eff.Apply {
		if err := led.Save(); err != nil {
			return fatal(ledger.Code(err), err.Error())
		}
	}

	rr.FinishedAt = time.Now().UTC()
	rr.Finalize()
	if obs != nil {
		obs.OnDone(true, fmt.Sprintf("processed=%d skipped=%d failed=%d unmatched=%d",
			rr.Summary.Processed, rr.Summary.Skipped, rr.Summary.Failed, rr.Summary.Unmatched))
	}
	return rr
}

// processOne 处理单个 PDF：解析文件键、匹配台账行、选定目标名、复制并回写状态。
// 发票（Danfe）额外做全文提取与发票号回写。
func processOne(eff config.EffectiveConfig, led *ledger.Ledger, records map[int]*domain.OrderRecord, f domain.PDFFile, outDir string, taken map[string]bool, obs Observer) domain.FileResult {
	res := domain.FileResult{
		Src:  f.RelPath,
		Kind: string(f.Kind),
	}

	key, ok := filekey.Resolve(f.Name)
	if !ok {
		res.Status = domain.StatusUnmatched
		res.ErrorCode = domain.ErrCodeNoKey
		res.ErrorMsg = "文件名开头没有数字键；请把对应的 A 列键值放在文件名最前面"
		return res
	}
	res.Key = key

	rec, ok := records[key]
	if !ok {
		res.Status = domain.StatusUnmatched
		res.ErrorCode = domain.ErrCodeUnmatchedKey
		res.ErrorMsg = fmt.Sprintf("键 %d 在台账中没有对应行", key)
		return res
	}

	// 幂等：该行该类别已带完成标记则跳过（含上次运行留下的标记）。
	if strings.Contains(rec.StatusFor(f.Kind), "Processado") {
		res.Status = domain.StatusSkipped
		return res
	}

	name := chooseName(outDir, taken, rec.OrderNumber, rec.Carrier, f.Kind)
	taken[name] = true
	dst := filepath.Join(outDir, name)
	res.Dst = dst

	if eff.Apply {
		if err := fsx.CopyPreserve(f.AbsPath, dst); err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeCopyFailed
			res.ErrorMsg = fmt.Sprintf("复制失败：%v", err)
			return res
		}
	}

	if f.Kind == domain.KindInvoice {
		if pages, err := pdftext.PageCount(f.AbsPath); err == nil && obs != nil {
			obs.OnLog(fmt.Sprintf("%s: %d página(s)", f.Name, pages))
		}

		// 提取失败不终止该文件：错误文本本身写入留痕列，便于人工排查。
		text, err := pdftext.Extract(f.AbsPath)
		if err != nil {
			text = fmt.Sprintf("Erro ao ler PDF: %v", err)
		}

		if raw, found := nf.Extract(text); found {
			numero := nf.Normalize(raw)
			rec.InvoiceNumber = numero
			res.InvoiceNumber = numero
			if eff.Apply {
				if err := led.SetInvoiceNumber(rec.Row, numero); err != nil {
					res.Status = domain.StatusFailed
					res.ErrorCode = domain.ErrCodeIOFailed
					res.ErrorMsg = fmt.Sprintf("回写发票号失败：%v", err)
					return res
				}
			}
		}

		rec.AuditText = text
		if eff.Apply {
			if err := led.SetAuditText(rec.Row, text); err != nil {
				res.Status = domain.StatusFailed
				res.ErrorCode = domain.ErrCodeIOFailed
				res.ErrorMsg = fmt.Sprintf("回写留痕失败：%v", err)
				return res
			}
		}
	}

	// 状态标记：内存侧总是更新（保证本次运行内的幂等），工作簿只在 apply 时写。
	rec.SetStatusFor(f.Kind, f.Kind.StatusText())
	if eff.Apply {
		if err := led.SetStatus(rec.Row, f.Kind); err != nil {
			res.Status = domain.StatusFailed
			res.ErrorCode = domain.ErrCodeIOFailed
			res.ErrorMsg = fmt.Sprintf("回写状态失败：%v", err)
			return res
		}
	}

	res.Status = domain.StatusProcessed
	return res
}

// chooseName 选定目标文件名 "<pedido> - <transportadora> - <Danfe|Boleto>.pdf"；
// 与磁盘上已有文件或本次运行内已选定的名字冲突时追加 " (n)"。
func chooseName(outDir string, taken map[string]bool, order, carrier string, kind domain.Kind) string {
	stem := fmt.Sprintf("%s - %s - %s", order, carrier, kind.Label())
	name := stem + ".pdf"
	for n := 1; conflicts(outDir, taken, name); n++ {
		name = fmt.Sprintf("%s (%d).pdf", stem, n)
	}
	return name
}

func conflicts(outDir string, taken map[string]bool, name string) bool {
	if taken[name] {
		return true
	}
	_, err := os.Stat(filepath.Join(outDir, name))
	return err == nil
}

func syntheticFailed(code, msg string) domain.FileResult {
	return domain.FileResult{
		Status:    domain.StatusFailed,
		ErrorCode: code,
		ErrorMsg:  msg,
	}
}
