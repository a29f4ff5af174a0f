package ledger

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/John-Robertt/nfpad/internal/domain"
)

// mergeRange 是一个合并区域；value 缓存锚点（左上）单元格的值。
type mergeRange struct {
	minCol, minRow int
	maxCol, maxRow int
	value          string
}

// mergeIndex 按行号索引合并区域，大表上避免逐单元格的全量线性扫描。
type mergeIndex map[int][]mergeRange

func (l *Ledger) buildMergeIndex() error {
	mcs, err := l.file.GetMergeCells(l.sheet)
	if err != nil {
		return err
	}

	idx := make(mergeIndex, len(mcs))
	for _, mc := range mcs {
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			return err
		}
		c2, r2, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			return err
		}
		mr := mergeRange{
			minCol: c1, minRow: r1,
			maxCol: c2, maxRow: r2,
			value: mc.GetCellValue(),
		}
		for row := mr.minRow; row <= mr.maxRow; row++ {
			idx[row] = append(idx[row], mr)
		}
	}
	l.merges = idx
	return nil
}

// effectiveValue 读取单元格的“可见值”：合并区域只在锚点存其值，
// 命中区域时返回锚点值，否则直接读单元格。
func (l *Ledger) effectiveValue(col, row int) (string, error) {
	for _, mr := range l.merges[row] {
		if col >= mr.minCol && col <= mr.maxCol {
			return mr.value, nil
		}
	}
	return l.cell(col, row)
}

// 括号后缀（含内容）从 transmissora 名称里整体去掉；贪婪，保持与历史数据一致。
var parenRE = regexp.MustCompile(`\(.*\)`)

// Index 构建 参考键 → OrderRecord 映射。
//
// 行规则（逐行、可恢复）：
// - PEDIDO 列（合并区域解析后）为空 ⇒ 跳过
// - NF 列为空 ⇒ 跳过
// - A 列为空 ⇒ 跳过；非数字 ⇒ 跳过并通过 warn 告警
// - 重复参考键：保留首次出现的行，后续静默忽略（历史行为，保留）
func (l *Ledger) Index(warn func(string)) (map[int]*domain.OrderRecord, error) {
	rows, err := l.file.GetRows(l.sheet)
	if err != nil {
		return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
	}

	records := make(map[int]*domain.OrderRecord, 128)
	for row := l.HeaderRow + 1; row <= len(rows); row++ {
		pedido, err := l.effectiveValue(l.colPedido, row)
		if err != nil {
			return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}
		if strings.TrimSpace(pedido) == "" {
			continue
		}

		nfVal, err := l.cell(l.colNF, row)
		if err != nil {
			return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}
		if strings.TrimSpace(nfVal) == "" {
			continue
		}

		rawKey, err := l.cell(colRefKey, row)
		if err != nil {
			return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}
		rawKey = strings.TrimSpace(rawKey)
		if rawKey == "" {
			continue
		}
		key, convErr := strconv.Atoi(rawKey)
		if convErr != nil {
			if warn != nil {
				warn(fmt.Sprintf("台账第 %d 行的 A 列不是数字键（%q），该行跳过", row, rawKey))
			}
			continue
		}

		if _, ok := records[key]; ok {
			// 重复键：首见行生效。
			continue
		}

		carrier, err := l.cell(colCarrier, row)
		if err != nil {
			return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}
		carrier = strings.TrimSpace(parenRE.ReplaceAllString(carrier, ""))

		invoiceStatus, err := l.cell(colInvoiceStatus, row)
		if err != nil {
			return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}
		slipStatus, err := l.cell(colSlipStatus, row)
		if err != nil {
			return nil, &Error{Code: domain.ErrCodeOpenFailed, Path: l.path, Err: err}
		}

		records[key] = &domain.OrderRecord{
			RefKey:        key,
			OrderNumber:   pedido,
			Carrier:       carrier,
			Row:           row,
			InvoiceStatus: invoiceStatus,
			SlipStatus:    slipStatus,
		}
	}
	return records, nil
}
