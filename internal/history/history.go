// Package history 把每次运行的结果追加进一个 SQLite 历史库（<pasta>/cache/history.db），
// 供事后排查"哪个月、哪批文件、什么结果"。写入失败不影响运行本身。
package history

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/John-Robertt/nfpad/internal/domain"
)

//go:embed schema.sql
var schema string

// Store 包装历史库连接；零值不可用，必须经由 Open 构造。
type Store struct {
	db *sql.DB
}

// Open 打开（必要时创建）dbPath 指向的历史库并初始化表结构。
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("execute schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record 在一个事务里写入一条 runs 记录及其全部 run_files 明细。
func (s *Store) Record(r domain.RunReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	dryRun := 0
	if r.DryRun {
		dryRun = 1
	}
	_, err = tx.Exec(`
		INSERT INTO runs (id, planilha, pasta, out_dir, dry_run, started_at, finished_at, processed, skipped, failed, unmatched)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.RunID, r.Planilha, r.Pasta, r.OutDir, dryRun,
		r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.Summary.Processed, r.Summary.Skipped, r.Summary.Failed, r.Summary.Unmatched)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO run_files (run_id, src, dst, key, kind, status, error_code, error_msg, invoice_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare run_files: %w", err)
	}
	defer stmt.Close()

	for _, it := range r.Items {
		if _, err := stmt.Exec(r.RunID, it.Src, it.Dst, it.Key, it.Kind,
			it.Status, it.ErrorCode, it.ErrorMsg, it.InvoiceNumber); err != nil {
			return fmt.Errorf("insert run file: %w", err)
		}
	}
	return tx.Commit()
}

// RunSummary 是历史查询返回的单次运行概览。
type RunSummary struct {
	RunID      string
	Planilha   string
	OutDir     string
	DryRun     bool
	FinishedAt string
	Processed  int
	Skipped    int
	Failed     int
	Unmatched  int
}

// RecentRuns 按完成时间倒序返回最近 limit 次运行。
func (s *Store) RecentRuns(limit int) ([]RunSummary, error) {
	rows, err := s.db.Query(`
		SELECT id, planilha, out_dir, dry_run, finished_at, processed, skipped, failed, unmatched
		FROM runs
		ORDER BY finished_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		var dryRun int
		if err := rows.Scan(&r.RunID, &r.Planilha, &r.OutDir, &dryRun,
			&r.FinishedAt, &r.Processed, &r.Skipped, &r.Failed, &r.Unmatched); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.DryRun = dryRun != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
