package domain

// Kind 表示 PDF 的单据类别，由其所在子目录决定（NOTAS/BOLETOS）。
type Kind string

const (
	KindInvoice Kind = "danfe"
	KindSlip    Kind = "boleto"
)

// Label 返回写入目标文件名与状态单元格的葡语标签。
// 这些词直接出现在客户的台账里，属于对外契约，不做本地化。
func (k Kind) Label() string {
	if k == KindSlip {
		return "Boleto"
	}
	return "Danfe"
}

// StatusText 是写入状态单元格的完成标记。
// 幂等判断只看单元格里是否包含 "Processado" 子串（与历史数据兼容）。
func (k Kind) StatusText() string {
	return k.Label() + " Processado"
}
