package pdftext

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExtract_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.pdf")
	if err := os.WriteFile(path, []byte("isto nao e um pdf"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	if _, err := Extract(path); err == nil {
		t.Fatalf("非 PDF 内容应返回错误而不是 panic")
	}
}

func TestExtract_MissingFile(t *testing.T) {
	if _, err := Extract(filepath.Join(t.TempDir(), "nao-existe.pdf")); err == nil {
		t.Fatalf("文件不存在应返回错误")
	}
}

func TestPageCount_NotAPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.pdf")
	if err := os.WriteFile(path, []byte("lixo"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}

	if _, err := PageCount(path); err == nil {
		t.Fatalf("非 PDF 内容应返回错误")
	}
}
