package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*QuizRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &QuizRepository{db: db}, mock, func() { _ = db.Close() }
}

func submittedAttempt() *domain.QuizAttempt {
	at := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	return &domain.QuizAttempt{
		ID:          "q-1",
		Selections:  []int{2},
		Result:      &domain.GradeResult{Correct: 1, Total: 1, Score: 100},
		SubmittedAt: &at,
	}
}

func TestGetReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT id, prompt, quiz").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetDecodesSubmittedAttempt(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	created := time.Date(2026, 10, 1, 11, 0, 0, 0, time.UTC)
	submitted := created.Add(time.Minute)
	rows := sqlmock.NewRows([]string{"id", "prompt", "quiz", "selections", "result", "created_at", "submitted_at"}).
		AddRow("q-1", "quiz me", []byte(`{"questions":[{"text":"Q","choices":{"1":"a","2":"b"},"answer":"2"}]}`),
			[]byte(`[2]`), []byte(`{"correct":1,"total":1,"score":100}`), created, submitted)
	mock.ExpectQuery("SELECT id, prompt, quiz").WithArgs("q-1").WillReturnRows(rows)

	attempt, err := repo.Get(context.Background(), "q-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(attempt.Quiz.Questions) != 1 || attempt.Quiz.Questions[0].AnswerKey != "2" {
		t.Fatalf("unexpected quiz %+v", attempt.Quiz)
	}
	if !attempt.Submitted() || attempt.Result == nil || attempt.Result.Score != 100 || attempt.Selections[0] != 2 {
		t.Fatalf("unexpected attempt %+v", attempt)
	}
}

func TestGetLeavesPendingAttemptOpen(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "prompt", "quiz", "selections", "result", "created_at", "submitted_at"}).
		AddRow("q-2", "", []byte(`{"questions":[]}`), nil, nil, time.Now(), nil)
	mock.ExpectQuery("SELECT id, prompt, quiz").WithArgs("q-2").WillReturnRows(rows)

	attempt, err := repo.Get(context.Background(), "q-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if attempt.Submitted() || attempt.Result != nil || attempt.Selections != nil {
		t.Fatalf("expected pending attempt, got %+v", attempt)
	}
}

func TestMarkSubmittedRejectsSecondSubmission(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE quiz_attempts").
		WithArgs("q-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("q-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.MarkSubmitted(context.Background(), submittedAttempt())
	if !domain.IsKind(err, domain.ErrQuizAlreadySubmitted) {
		t.Fatalf("expected ErrQuizAlreadySubmitted, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkSubmittedReportsMissingAttempt(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE quiz_attempts").
		WithArgs("q-1", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("q-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.MarkSubmitted(context.Background(), submittedAttempt())
	if !domain.IsKind(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestMarkSubmittedStoresSubmission(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	attempt := submittedAttempt()
	mock.ExpectExec("UPDATE quiz_attempts").
		WithArgs("q-1", []byte(`[2]`), sqlmock.AnyArg(), *attempt.SubmittedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkSubmitted(context.Background(), attempt); err != nil {
		t.Fatalf("MarkSubmitted() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
