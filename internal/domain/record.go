package domain

// OrderRecord 是台账中一行 NF 记录的内存快照（按 A 列参考键索引）。
//
// 不变量：
// - RefKey 在整个索引内唯一；台账出现重复键时只保留首次出现的行
// - Row 是写回时要更新的工作表行号（1-based）
// - InvoiceStatus/SlipStatus 必须与单元格保持同步：引擎写单元格时同时更新内存值，
//   否则同一次运行内指向同一行的第二个文件无法被幂等跳过
type OrderRecord struct {
	RefKey      int
	OrderNumber string // PEDIDO 列（合并区域解析后的锚点值）
	Carrier     string // B 列，已去除括号后缀
	Row         int

	InvoiceStatus string
	SlipStatus    string

	InvoiceNumber string // 提取成功后为 9 位数字串
	AuditText     string // PDF 全文留痕
}

// StatusFor 返回该类别对应的状态单元格当前值。
func (r *OrderRecord) StatusFor(k Kind) string {
	if k == KindSlip {
		return r.SlipStatus
	}
	return r.InvoiceStatus
}

// SetStatusFor 更新该类别对应的内存状态值。
func (r *OrderRecord) SetStatusFor(k Kind, v string) {
	if k == KindSlip {
		r.SlipStatus = v
		return
	}
	r.InvoiceStatus = v
}
