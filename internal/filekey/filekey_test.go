package filekey

import "testing"

func TestResolve_LeadingDigits(t *testing.T) {
	got, ok := Resolve("123_invoice.pdf")
	if !ok || got != 123 {
		t.Fatalf("期望 123，实际 %d ok=%v", got, ok)
	}
}

func TestResolve_LeadingWhitespace(t *testing.T) {
	got, ok := Resolve("  45x.pdf")
	if !ok || got != 45 {
		t.Fatalf("期望 45，实际 %d ok=%v", got, ok)
	}
}

func TestResolve_NoDigits(t *testing.T) {
	if _, ok := Resolve("invoice.pdf"); ok {
		t.Fatalf("不以数字开头的文件名不应解析出键")
	}
}

func TestResolve_DigitsNotAtStart(t *testing.T) {
	if _, ok := Resolve("nota 123.pdf"); ok {
		t.Fatalf("数字必须锚定在开头")
	}
}

func TestResolve_LeadingZeros(t *testing.T) {
	got, ok := Resolve("007 boleto.pdf")
	if !ok || got != 7 {
		t.Fatalf("期望 7，实际 %d ok=%v", got, ok)
	}
}

func TestResolve_Overflow(t *testing.T) {
	// 超出 int 范围的数字串按“无键”处理（这类文件名不是参考键）。
	if _, ok := Resolve("99999999999999999999 nota.pdf"); ok {
		t.Fatalf("溢出的数字串不应解析出键")
	}
}
