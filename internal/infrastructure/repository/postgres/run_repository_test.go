package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/plenumlab/speechqa/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*RunRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &RunRepository{db: db}, mock, func() { _ = db.Close() }
}

func sampleRun() *domain.AskRun {
	return &domain.AskRun{
		ID:            "run-1",
		Question:      "Wie stand die SPD zum Kohleausstieg?",
		Intent:        domain.IntentComplex,
		QuestionType:  domain.TypeSummary,
		SubQuestions:  4,
		EvidenceCount: 18,
		Regenerations: 1,
		CoverageGap:   false,
		Outcome:       "ok",
		Duration:      2500 * time.Millisecond,
		CreatedAt:     time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateRunInsertsAllColumns(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	run := sampleRun()
	mock.ExpectExec("INSERT INTO ask_runs").
		WithArgs(
			run.ID, run.Question, "complex", "summary", run.SubQuestions,
			run.EvidenceCount, run.Regenerations, run.CoverageGap, run.Outcome,
			int64(2500), run.CreatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateRunRejectsEmptyID(t *testing.T) {
	repo, _, done := newRepoWithMock(t)
	defer done()

	if err := repo.CreateRun(context.Background(), &domain.AskRun{}); err == nil {
		t.Fatalf("expected error for empty run id")
	}
}

func TestCreateRunPropagatesDBError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO ask_runs").
		WillReturnError(errors.New("connection refused"))

	if err := repo.CreateRun(context.Background(), sampleRun()); err == nil {
		t.Fatalf("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestEnsureSchemaRunsInTransactionWithAdvisoryLock(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("SELECT pg_advisory_xact_lock").
		WithArgs(int64(2026082801)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ask_runs").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
