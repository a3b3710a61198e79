package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

type QuizRepository struct {
	db *sql.DB
}

func NewQuizRepository(db *sql.DB) *QuizRepository {
	return &QuizRepository{db: db}
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

func (r *QuizRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101601)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS quiz_attempts (
	id TEXT PRIMARY KEY,
	prompt TEXT NOT NULL DEFAULT '',
	quiz JSONB NOT NULL,
	selections JSONB,
	result JSONB,
	created_at TIMESTAMPTZ NOT NULL,
	submitted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_quiz_attempts_created_at ON quiz_attempts(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *QuizRepository) Save(ctx context.Context, attempt *domain.QuizAttempt) error {
	quizJSON, err := json.Marshal(attempt.Quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO quiz_attempts (id, prompt, quiz, created_at)
VALUES ($1,$2,$3,$4)
`, attempt.ID, attempt.Prompt, quizJSON, attempt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert quiz attempt: %w", err)
	}
	return nil
}

func (r *QuizRepository) Get(ctx context.Context, id string) (*domain.QuizAttempt, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, prompt, quiz, selections, result, created_at, submitted_at
FROM quiz_attempts
WHERE id = $1
`, id)

	var attempt domain.QuizAttempt
	var quizRaw, selectionsRaw, resultRaw []byte
	var submittedAt sql.NullTime

	err := row.Scan(&attempt.ID, &attempt.Prompt, &quizRaw, &selectionsRaw, &resultRaw, &attempt.CreatedAt, &submittedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrQuizNotFound, "get quiz", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan quiz attempt: %w", err)
	}

	if err := json.Unmarshal(quizRaw, &attempt.Quiz); err != nil {
		return nil, fmt.Errorf("unmarshal quiz: %w", err)
	}
	if len(selectionsRaw) > 0 {
		if err := json.Unmarshal(selectionsRaw, &attempt.Selections); err != nil {
			return nil, fmt.Errorf("unmarshal selections: %w", err)
		}
	}
	if len(resultRaw) > 0 {
		var result domain.GradeResult
		if err := json.Unmarshal(resultRaw, &result); err != nil {
			return nil, fmt.Errorf("unmarshal grade result: %w", err)
		}
		attempt.Result = &result
	}
	if submittedAt.Valid {
		at := submittedAt.Time.UTC()
		attempt.SubmittedAt = &at
	}
	return &attempt, nil
}

// MarkSubmitted relies on the submitted_at guard so two concurrent
// submissions cannot both be recorded.
func (r *QuizRepository) MarkSubmitted(ctx context.Context, attempt *domain.QuizAttempt) error {
	if attempt.SubmittedAt == nil {
		return fmt.Errorf("mark submitted: attempt %s has no submission", attempt.ID)
	}
	selectionsJSON, err := json.Marshal(attempt.Selections)
	if err != nil {
		return fmt.Errorf("marshal selections: %w", err)
	}
	resultJSON, err := json.Marshal(attempt.Result)
	if err != nil {
		return fmt.Errorf("marshal grade result: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE quiz_attempts
SET selections = $2, result = $3, submitted_at = $4
WHERE id = $1 AND submitted_at IS NULL
`, attempt.ID, selectionsJSON, resultJSON, *attempt.SubmittedAt)
	if err != nil {
		return fmt.Errorf("update quiz submission: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("quiz submission rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM quiz_attempts WHERE id = $1)`, attempt.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check quiz attempt: %w", err)
	}
	if !exists {
		return domain.WrapError(domain.ErrQuizNotFound, "mark submitted", fmt.Errorf("id=%s", attempt.ID))
	}
	return domain.WrapError(domain.ErrQuizAlreadySubmitted, "mark submitted", fmt.Errorf("id=%s", attempt.ID))
}
