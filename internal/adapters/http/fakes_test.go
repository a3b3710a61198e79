package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/kirillkom/vault-quizbot/internal/config"
	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

const testQuizID = "5b0d1c1e-8f5e-4a43-9a55-0a4f4d1f3c11"

type indexerFake struct {
	collections []string
	err         error
}

func (f *indexerFake) IndexVault(_ context.Context, collection string) (*domain.IndexReport, error) {
	f.collections = append(f.collections, collection)
	if f.err != nil {
		return nil, f.err
	}
	return &domain.IndexReport{Collection: collection, Files: 2, Chunks: 7, Batches: 1}, nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishIndexRequested(_ context.Context, collection string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, collection)
	return nil
}

func (f *queueFake) SubscribeIndexRequested(context.Context, func(context.Context, string) error) error {
	return nil
}

type assistantFake struct {
	answer *domain.Answer
	err    error
}

func (f assistantFake) Ask(context.Context, string) (*domain.Answer, error) {
	return f.answer, f.err
}

type quizServiceFake struct {
	mu       sync.Mutex
	attempt  *domain.QuizAttempt
	err      error
	content  ports.ContentProvider
	selected []int
}

func (f *quizServiceFake) GenerateFromContent(_ context.Context, content ports.ContentProvider) (*domain.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = content
	if f.err != nil {
		return nil, f.err
	}
	return f.attempt, nil
}

func (f *quizServiceFake) Get(_ context.Context, id string) (*domain.QuizAttempt, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.attempt == nil || f.attempt.ID != id {
		return nil, domain.WrapError(domain.ErrQuizNotFound, "get quiz", errors.New(id))
	}
	return f.attempt, nil
}

func (f *quizServiceFake) Submit(_ context.Context, id string, selections []int) (*domain.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.selected = selections
	if _, err := f.attempt.Submit(selections, time.Now()); err != nil {
		return nil, err
	}
	return f.attempt, nil
}

func sampleAttempt() *domain.QuizAttempt {
	return &domain.QuizAttempt{
		ID: testQuizID,
		Quiz: domain.Quiz{Questions: []domain.Question{
			{Text: "Highest Alpine peak?", Choices: map[string]string{"1": "Eiger", "2": "Mont Blanc"}, AnswerKey: "2"},
			{Text: "Country of the Matterhorn?", Choices: map[string]string{"1": "Switzerland and Italy", "2": "Austria"}, AnswerKey: "1"},
		}},
		CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func testConfig() config.Config {
	return config.Config{Collection: "alpine-vault"}
}

func newTestHandler(cfg config.Config, deps Deps) http.Handler {
	return NewRouter(cfg, deps).Handler()
}
