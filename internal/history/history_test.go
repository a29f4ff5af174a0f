package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/John-Robertt/nfpad/internal/domain"
)

func sampleReport(id string, finished time.Time) domain.RunReport {
	r := domain.RunReport{
		RunID:      id,
		Planilha:   "/dados/controle.xlsx",
		Pasta:      "/dados/2024/Agosto",
		OutDir:     "/dados/2024/08 - Agosto",
		DryRun:     false,
		StartedAt:  finished.Add(-2 * time.Second),
		FinishedAt: finished,
		Items: []domain.FileResult{
			{Src: "NOTAS/100 nota.pdf", Dst: "/dados/2024/08 - Agosto/PO-1 - Acme - Danfe.pdf",
				Key: 100, Kind: "danfe", Status: domain.StatusProcessed, InvoiceNumber: "000123456"},
			{Src: "BOLETOS/200 boleto.pdf", Key: 200, Kind: "boleto",
				Status: domain.StatusUnmatched, ErrorCode: domain.ErrCodeUnmatchedKey},
		},
	}
	r.Finalize()
	return r
}

func TestRecordAndRecentRuns(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "cache", "history.db"))
	if err != nil {
		t.Fatalf("打开历史库失败：%v", err)
	}
	defer store.Close()

	base := time.Date(2024, 8, 10, 12, 0, 0, 0, time.UTC)
	if err := store.Record(sampleReport("run-a", base)); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if err := store.Record(sampleReport("run-b", base.Add(time.Hour))); err != nil {
		t.Fatalf("写入失败：%v", err)
	}

	runs, err := store.RecentRuns(10)
	if err != nil {
		t.Fatalf("查询失败：%v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("期望 2 次运行，实际 %d", len(runs))
	}
	if runs[0].RunID != "run-b" || runs[1].RunID != "run-a" {
		t.Fatalf("期望按完成时间倒序：%v", runs)
	}
	if runs[0].Processed != 1 || runs[0].Unmatched != 1 {
		t.Fatalf("概览计数不正确：%+v", runs[0])
	}
}

func TestRecord_DuplicateRunIDFails(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("打开历史库失败：%v", err)
	}
	defer store.Close()

	r := sampleReport("run-a", time.Now())
	if err := store.Record(r); err != nil {
		t.Fatalf("写入失败：%v", err)
	}
	if err := store.Record(r); err == nil {
		t.Fatalf("重复的 run_id 应报错")
	}
}

func TestOpen_Reentrant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("第 %d 次打开失败：%v", i+1, err)
		}
		_ = store.Close()
	}
}
