package domain

// PDFFile 描述一次扫描得到的 PDF（扫描阶段只看路径，不读内容）。
//
// 不变量：
// - AbsPath 必须是 clean + absolute
// - Kind 由直接父目录名（NOTAS/BOLETOS，不区分大小写）决定
type PDFFile struct {
	AbsPath string
	RelPath string
	Name    string // 文件名（含扩展名），参考键从其开头的数字解析
	Kind    Kind
}
