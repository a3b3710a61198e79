package ports

import (
	"context"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

// Generator submits one request to the inference backend and returns the raw
// generated text.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (string, error)
}

// Embedder builds vectors for chunk and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex is the vector store service: collection lifecycle plus
// document add and multi-query search.
type VectorIndex interface {
	GetOrCreate(ctx context.Context, name string) (domain.Collection, error)
	Delete(ctx context.Context, name string) error
	Add(ctx context.Context, collection domain.Collection, chunks []domain.Chunk) error
	Query(ctx context.Context, collection domain.Collection, queryTexts []string, topK int) (domain.QueryResult, error)
}

// Chunker splits text into overlapping, boundary-aware windows.
type Chunker interface {
	Split(text string) []string
}

// Normalizer rewrites raw note markup into plain comparable text.
type Normalizer interface {
	Normalize(text string) string
}

// SourceLister enumerates ingestible files under a root directory.
type SourceLister interface {
	List(ctx context.Context, root string) ([]string, error)
}

// TextExtractor reads the full text of one source file.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// QuizStore persists generated quizzes and their single submission.
type QuizStore interface {
	Save(ctx context.Context, attempt *domain.QuizAttempt) error
	Get(ctx context.Context, id string) (*domain.QuizAttempt, error)
	// MarkSubmitted stores the graded submission only if the attempt has not
	// been submitted yet.
	MarkSubmitted(ctx context.Context, attempt *domain.QuizAttempt) error
}

// IndexQueue publishes/consumes reindex requests.
type IndexQueue interface {
	PublishIndexRequested(ctx context.Context, collection string) error
	SubscribeIndexRequested(ctx context.Context, handler func(context.Context, string) error) error
}

// PipelineObserver receives pipeline events for metrics.
type PipelineObserver interface {
	ObserveIndexRun(status string, chunks int, seconds float64)
	ObserveGeneration(task, outcome string)
	ObserveRoute(route string)
}

// NoopObserver discards every event.
type NoopObserver struct{}

func (NoopObserver) ObserveIndexRun(string, int, float64) {}
func (NoopObserver) ObserveGeneration(string, string)     {}
func (NoopObserver) ObserveRoute(string)                  {}
