package ledger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/John-Robertt/nfpad/internal/domain"
)

// 台账的固定列布局（与既有控制表一致，1-based）。
// 表头行内 PEDIDO/NF/DANFE 的位置是动态发现的，其余列位置是历史契约。
const (
	colRefKey  = 1 // A：参考键
	colCarrier = 2 // B：transmissora（表头 TRANSMISSORAS 也在该列）

	colAudit         = 27 // AA：PDF 全文留痕
	colSlipStatus    = 28 // AB：Boleto 状态
	colInvoiceStatus = 29 // AC：Danfe 状态

	// 表头里没有 DANFE/Nº DANFE 时的兜底列。历史遗留：与留痕列重合，
	// 此时号码会随后被全文覆盖（见 DESIGN.md）。
	danfeFallbackCol = 27
)

const (
	headerLabel  = "TRANSMISSORAS"
	headerMaxRow = 10
	headerMaxCol = 50
)

// xlsx 单元格文本上限；更长的留痕文本写入前截断。
const maxCellChars = 32767

// Error 是台账阶段的结构化错误（带 error_code，run 级致命）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case domain.ErrCodeHeaderNotFound:
		return fmt.Sprintf("%s：在 %q 第二个工作表的 B 列前 %d 行里没有找到表头 %q", e.Code, e.Path, headerMaxRow, headerLabel)
	case domain.ErrCodeColumnsMissing:
		return fmt.Sprintf("%s：表头行缺少 PEDIDO 或 NF 列（%q）", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%q：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：%q", e.Code, e.Path)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Ledger 持有打开的工作簿与解析出的列角色。
//
// 单写者模型：引擎串行调用 Set*（立即改内存中的工作簿），最后 Save 一次写回原文件。
type Ledger struct {
	file  *excelize.File
	path  string
	sheet string

	// HeaderRow 是表头所在行号（1-based）；数据行从它的下一行开始。
	HeaderRow int

	colPedido int
	colNF     int
	colDanfe  int

	merges mergeIndex
}

// Open 打开工作簿，定位第二个工作表、表头行与列角色，并预建合并区域索引。
// 任何一步失败都是 run 级致命错误。
func Open(path string) (*Ledger, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: path, Err: err}
	}

	sheets := f.GetSheetList()
	if len(sheets) < 2 {
		_ = f.Close()
		return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: path,
			Err: fmt.Errorf("台账必须在第二个工作表，但工作簿只有 %d 个", len(sheets))}
	}

	l := &Ledger{file: f, path: path, sheet: sheets[1]}

	if err := l.locateHeader(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := l.locateColumns(); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := l.buildMergeIndex(); err != nil {
		_ = f.Close()
		return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: path, Err: err}
	}
	return l, nil
}

func (l *Ledger) locateHeader() error {
	for row := 1; row <= headerMaxRow; row++ {
		v, err := l.cell(colCarrier, row)
		if err != nil {
			return &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}
		if strings.ToUpper(strings.TrimSpace(v)) == headerLabel {
			l.HeaderRow = row
			return nil
		}
	}
	return &Error{Code: domain.ErrCodeHeaderNotFound, Path: l.path}
}

func (l *Ledger) locateColumns() error {
	for col := 1; col <= headerMaxCol; col++ {
		v, err := l.cell(col, l.HeaderRow)
		if err != nil {
			return &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}
		switch strings.ToUpper(strings.TrimSpace(v)) {
		case "PEDIDO":
			l.colPedido = col
		case "NF":
			l.colNF = col
		case "DANFE", "Nº DANFE":
			l.colDanfe = col
		}
	}

	if l.colPedido == 0 || l.colNF == 0 {
		return &Error{Code: domain.ErrCodeColumnsMissing, Path: l.path}
	}
	if l.colDanfe == 0 {
		l.colDanfe = danfeFallbackCol
	}
	return nil
}

func (l *Ledger) cell(col, row int) (string, error) {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", err
	}
	return l.file.GetCellValue(l.sheet, axis)
}

func (l *Ledger) setCell(col, row int, v string) error {
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return l.file.SetCellValue(l.sheet, axis, v)
}

// SetInvoiceNumber 把规范化后的 9 位号码写入该行的 DANFE 列。
func (l *Ledger) SetInvoiceNumber(row int, numero string) error {
	return l.setCell(l.colDanfe, row, numero)
}

// SetAuditText 把 PDF 全文写入留痕列（超出单元格上限时截断）。
func (l *Ledger) SetAuditText(row int, text string) error {
	if len([]rune(text)) > maxCellChars {
		text = string([]rune(text)[:maxCellChars])
	}
	return l.setCell(colAudit, row, text)
}

// SetStatus 写入该类别的完成标记（"Danfe Processado" / "Boleto Processado"）。
func (l *Ledger) SetStatus(row int, k domain.Kind) error {
	return l.setCell(statusCol(k), row, k.StatusText())
}

func statusCol(k domain.Kind) int {
	if k == domain.KindSlip {
		return colSlipStatus
	}
	return colInvoiceStatus
}

// Save 把全部改动写回原文件（覆盖）。
// 失败是 run 级致命错误：已复制的 PDF 留在磁盘上，但状态更新会丢失。
func (l *Ledger) Save() error {
	if err := l.file.Save(); err != nil {
		return &Error{Code: domain.ErrCodeSaveFailed, Path: l.path, Err: err}
	}
	return nil
}

// Close 释放工作簿句柄（不落盘）。
func (l *Ledger) Close() error { return l.file.Close() }
