// Package store 记录评估运行历史
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ahhsitt/qaeval-go/pkg/evaluation"
)

// Run 一次运行的汇总记录
type Run struct {
	RunID            string
	RunKey           string
	CreatedAt        time.Time
	Duration         time.Duration
	EvalLen          int
	Answered         int
	MeanAccuracy     float64
	PercentPerfect   float64
	Rouge1F          float64
	Rouge2F          float64
	RougeLF          float64
	MeanSemantic     float64
	FactualityCounts map[evaluation.Category]int
	Malformed        int
	JudgeErrors      int
	// Reference 报告文件引用
	Reference string
}

// RunFromReport 从报告提取汇总记录
func RunFromReport(report *evaluation.Report, reference string) Run {
	run := Run{
		RunID:     report.RunID,
		RunKey:    report.RunKey,
		CreatedAt: report.CreatedAt,
		Duration:  report.Duration,
		Reference: reference,
	}
	if s := report.Summary; s != nil {
		run.EvalLen = s.EvalLen
		run.Answered = s.Answered
		run.MeanAccuracy = s.MeanAccuracy
		run.PercentPerfect = s.PercentPerfect
		run.Rouge1F = s.Overlap.Rouge1.FMeasure
		run.Rouge2F = s.Overlap.Rouge2.FMeasure
		run.RougeLF = s.Overlap.RougeL.FMeasure
		run.MeanSemantic = s.MeanSemantic
		run.FactualityCounts = s.FactualityCounts
		run.Malformed = s.Malformed
		run.JudgeErrors = s.JudgeErrors
	}
	return run
}

// SQLite 基于 SQLite 的运行历史
type SQLite struct {
	db *sql.DB
}

// OpenSQLite 打开（必要时创建）历史数据库
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id            TEXT PRIMARY KEY,
	run_key           TEXT NOT NULL,
	created_at        TIMESTAMP NOT NULL,
	duration_ms       INTEGER NOT NULL,
	eval_len          INTEGER NOT NULL,
	answered          INTEGER NOT NULL,
	mean_accuracy     REAL NOT NULL,
	percent_perfect   REAL NOT NULL,
	rouge1_fmeasure   REAL NOT NULL,
	rouge2_fmeasure   REAL NOT NULL,
	rougeL_fmeasure   REAL NOT NULL,
	mean_semantic     REAL NOT NULL,
	factuality_counts TEXT NOT NULL,
	malformed         INTEGER NOT NULL,
	judge_errors      INTEGER NOT NULL,
	reference         TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_key_created ON runs (run_key, created_at);`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create history schema: %w", err)
	}
	return nil
}

// Record 写入一次运行
func (s *SQLite) Record(ctx context.Context, run Run) error {
	counts, err := json.Marshal(run.FactualityCounts)
	if err != nil {
		return fmt.Errorf("encode factuality counts: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (
	run_id, run_key, created_at, duration_ms, eval_len, answered,
	mean_accuracy, percent_perfect, rouge1_fmeasure, rouge2_fmeasure, rougeL_fmeasure,
	mean_semantic, factuality_counts, malformed, judge_errors, reference
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.RunKey, run.CreatedAt.UTC(), run.Duration.Milliseconds(), run.EvalLen, run.Answered,
		run.MeanAccuracy, run.PercentPerfect, run.Rouge1F, run.Rouge2F, run.RougeLF,
		run.MeanSemantic, string(counts), run.Malformed, run.JudgeErrors, run.Reference,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.RunID, err)
	}
	return nil
}

// List 按时间倒序列出运行
//
// runKey 为空时列出全部；limit <= 0 表示不限制。
func (s *SQLite) List(ctx context.Context, runKey string, limit int) ([]Run, error) {
	query := `
SELECT run_id, run_key, created_at, duration_ms, eval_len, answered,
	mean_accuracy, percent_perfect, rouge1_fmeasure, rouge2_fmeasure, rougeL_fmeasure,
	mean_semantic, factuality_counts, malformed, judge_errors, reference
FROM runs`
	var args []any
	if runKey != "" {
		query += " WHERE run_key = ?"
		args = append(args, runKey)
	}
	query += " ORDER BY created_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run        Run
			durationMS int64
			counts     string
		)
		if err := rows.Scan(
			&run.RunID, &run.RunKey, &run.CreatedAt, &durationMS, &run.EvalLen, &run.Answered,
			&run.MeanAccuracy, &run.PercentPerfect, &run.Rouge1F, &run.Rouge2F, &run.RougeLF,
			&run.MeanSemantic, &counts, &run.Malformed, &run.JudgeErrors, &run.Reference,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if err := json.Unmarshal([]byte(counts), &run.FactualityCounts); err != nil {
			return nil, fmt.Errorf("decode factuality counts for %s: %w", run.RunID, err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Close 关闭数据库
func (s *SQLite) Close() error {
	return s.db.Close()
}
