package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/John-Robertt/nfpad/internal/config"
	"github.com/John-Robertt/nfpad/internal/domain"
)

func TestProgressUI_FileDoneLines(t *testing.T) {
	var buf bytes.Buffer
	ui := newProgressUI(&buf)

	ui.OnFileDone(1, 2, domain.FileResult{
		Src:           "NOTAS/100 nota.pdf",
		Dst:           "/dados/08 - Agosto/PO-1 - Acme - Danfe.pdf",
		Status:        domain.StatusProcessed,
		InvoiceNumber: "000123456",
	}, 10*time.Millisecond)
	ui.OnFileDone(2, 2, domain.FileResult{
		Src:       "NOTAS/999 nota.pdf",
		Status:    domain.StatusUnmatched,
		ErrorCode: domain.ErrCodeUnmatchedKey,
		ErrorMsg:  "键 999 在台账中没有对应行",
	}, time.Millisecond)

	out := buf.String()
	if !strings.Contains(out, "[1/2]") || !strings.Contains(out, "50%") {
		t.Fatalf("缺少进度前缀：%q", out)
	}
	if !strings.Contains(out, "nf=000123456") {
		t.Fatalf("processed 行应包含发票号：%q", out)
	}
	if !strings.Contains(out, "PO-1 - Acme - Danfe.pdf") {
		t.Fatalf("processed 行应包含目标文件名：%q", out)
	}
	if !strings.Contains(out, "SEM-MATCH") || !strings.Contains(out, domain.ErrCodeUnmatchedKey) {
		t.Fatalf("unmatched 行不符合预期：%q", out)
	}
}

func TestProgressUI_StartShowsEffectiveConfig(t *testing.T) {
	var buf bytes.Buffer
	ui := newProgressUI(&buf)

	ui.OnStart(config.EffectiveConfig{
		Pasta:    "/dados/Agosto",
		Planilha: "/dados/Agosto/controle.xlsx",
		Apply:    false,
		History:  true,
	})

	out := buf.String()
	if !strings.Contains(out, "dry-run") {
		t.Fatalf("应显示 dry-run 模式：%q", out)
	}
	if !strings.Contains(out, "/dados/Agosto/controle.xlsx") {
		t.Fatalf("应显示生效的 planilha：%q", out)
	}
	if !strings.Contains(out, "exclude_dirs: []") {
		t.Fatalf("空 exclude_dirs 应显示为 []：%q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdef", 5); got != "ab..." {
		t.Fatalf("期望 \"ab...\"，实际 %q", got)
	}
	if got := truncate("abc", 5); got != "abc" {
		t.Fatalf("短字符串不应截断：%q", got)
	}
}

func TestParseRunArgs(t *testing.T) {
	ra, err := parseRunArgs([]string{"agosto", "--planilha=controle.xlsx", "--apply"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if ra.Pasta != "agosto" || !ra.PlanilhaSet || ra.Planilha != "controle.xlsx" {
		t.Fatalf("解析结果不符合预期：%+v", ra)
	}
	if !ra.Apply || !ra.ApplySet {
		t.Fatalf("--apply 未生效：%+v", ra)
	}

	if _, err := parseRunArgs([]string{"--apply=talvez"}); err == nil {
		t.Fatalf("非法的 --apply 取值应报错")
	}
	if _, err := parseRunArgs([]string{"a", "b"}); err == nil {
		t.Fatalf("重复的 pasta 应报错")
	}
	if _, err := parseRunArgs([]string{"--desconhecido"}); err == nil {
		t.Fatalf("未知参数应报错")
	}
}
