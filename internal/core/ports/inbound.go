package ports

import (
	"context"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

// VaultIndexer is the inbound contract for a full reindex of the vault.
type VaultIndexer interface {
	IndexVault(ctx context.Context, collection string) (*domain.IndexReport, error)
}

// Assistant is the inbound contract for routed prompt handling.
type Assistant interface {
	Ask(ctx context.Context, prompt string) (*domain.Answer, error)
}

// QuizService is the inbound contract for quiz generation and grading.
type QuizService interface {
	GenerateFromContent(ctx context.Context, content ContentProvider) (*domain.QuizAttempt, error)
	Get(ctx context.Context, id string) (*domain.QuizAttempt, error)
	Submit(ctx context.Context, id string, selections []int) (*domain.QuizAttempt, error)
}
