package fsx

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCopyPreserve_ContentAndModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	dst := filepath.Join(dir, "dst.pdf")

	if err := os.WriteFile(src, []byte("conteudo"), 0o644); err != nil {
		t.Fatalf("写入源文件失败：%v", err)
	}
	want := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := os.Chtimes(src, want, want); err != nil {
		t.Fatalf("设置修改时间失败：%v", err)
	}

	if err := CopyPreserve(src, dst); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}

	b, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("读取目标失败：%v", err)
	}
	if string(b) != "conteudo" {
		t.Fatalf("内容不一致：%q", string(b))
	}

	fi, err := os.Stat(dst)
	if err != nil {
		t.Fatalf("Stat 失败：%v", err)
	}
	if !fi.ModTime().Equal(want) {
		t.Fatalf("修改时间未保留：期望 %v，实际 %v", want, fi.ModTime())
	}
}

func TestCopyPreserve_NeverOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	dst := filepath.Join(dir, "dst.pdf")

	if err := os.WriteFile(src, []byte("novo"), 0o644); err != nil {
		t.Fatalf("写入源文件失败：%v", err)
	}
	if err := os.WriteFile(dst, []byte("antigo"), 0o644); err != nil {
		t.Fatalf("写入目标失败：%v", err)
	}

	if err := CopyPreserve(src, dst); err == nil {
		t.Fatalf("目标已存在时必须失败")
	}
	b, _ := os.ReadFile(dst)
	if string(b) != "antigo" {
		t.Fatalf("已有文件被覆盖：%q", string(b))
	}
}

func TestEnsureDir_IdempotentAndConflict(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "saida")

	if err := EnsureDir(target); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := EnsureDir(target); err != nil {
		t.Fatalf("重复创建不应失败：%v", err)
	}

	// 目标是文件：应返回类型冲突，而不是吞掉。
	conflict := filepath.Join(dir, "arquivo")
	if err := os.WriteFile(conflict, []byte("x"), 0o644); err != nil {
		t.Fatalf("写入文件失败：%v", err)
	}
	if err := EnsureDir(conflict); !IsPathTypeConflict(err) {
		t.Fatalf("期望类型冲突，实际 err=%v", err)
	}
}

func TestWriteFileAtomicReplace_SuccessAndNoTempLeft(t *testing.T) {
	dir := t.TempDir()

	if err := WriteFileAtomicReplace(dir, "report.json", []byte(`{}`)); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if err := WriteFileAtomicReplace(dir, "report.json", []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("覆盖写入不应失败：%v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatalf("读取文件失败：%v", err)
	}
	if string(b) != `{"ok":true}` {
		t.Fatalf("内容不一致：%q", string(b))
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
	}
}

func TestWriteFileAtomicReplace_RenameFail_CleanupTemp(t *testing.T) {
	dir := t.TempDir()

	old := renameFunc
	renameFunc = func(oldpath, newpath string) error {
		return os.ErrPermission
	}
	defer func() { renameFunc = old }()

	if err := WriteFileAtomicReplace(dir, "report.json", []byte(`{}`)); err == nil {
		t.Fatalf("期望失败，但得到 nil")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir 失败：%v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".report.json.tmp-") {
			t.Fatalf("临时文件未清理：%q", e.Name())
		}
		if e.Name() == "report.json" {
			t.Fatalf("不应写出最终文件：%q", e.Name())
		}
	}
}
