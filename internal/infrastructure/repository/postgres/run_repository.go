package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

// RunRepository persists the per-question audit log. Writes are best effort
// from the pipeline's point of view; the caller logs and moves on.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *RunRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082801)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS ask_runs (
	id TEXT PRIMARY KEY,
	question TEXT NOT NULL,
	intent TEXT NOT NULL,
	question_type TEXT NOT NULL,
	sub_questions INTEGER NOT NULL DEFAULT 0,
	evidence_count INTEGER NOT NULL DEFAULT 0,
	regenerations INTEGER NOT NULL DEFAULT 0,
	coverage_gap BOOLEAN NOT NULL DEFAULT FALSE,
	outcome TEXT NOT NULL,
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ask_runs_created_at ON ask_runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_ask_runs_outcome ON ask_runs(outcome);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *RunRepository) CreateRun(ctx context.Context, run *domain.AskRun) error {
	if run == nil || run.ID == "" {
		return fmt.Errorf("run with empty id")
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO ask_runs (
	id, question, intent, question_type, sub_questions, evidence_count, regenerations, coverage_gap, outcome, duration_ms, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		run.ID, run.Question, string(run.Intent), string(run.QuestionType), run.SubQuestions,
		run.EvidenceCount, run.Regenerations, run.CoverageGap, run.Outcome,
		run.Duration.Milliseconds(), run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ask run: %w", err)
	}
	return nil
}
