package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/vault-quizbot/internal/config"
	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/core/usecase"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/chunking"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/extractor"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/ingest/filesystem"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/queue/nats"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/repository/memory"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/resilience"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/sanitize"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/vector/chroma"
	vectormemory "github.com/kirillkom/vault-quizbot/internal/infrastructure/vector/memory"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/vector/qdrant"
)

type Options struct {
	Observer     ports.PipelineObserver
	// ConnectQueue dials NATS when a URL is configured.
	ConnectQueue bool
	OnQueueLag   func(time.Duration)
}

type App struct {
	Config config.Config

	Vault   *localfs.Vault
	Lister  *filesystem.Lister
	Queue   *nats.Queue
	IndexUC *usecase.IndexVaultUseCase
	AskUC   *usecase.AskUseCase
	QuizUC  *usecase.QuizUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	observer := opts.Observer
	if observer == nil {
		observer = ports.NoopObserver{}
	}
	executor := resilience.NewExecutor(cfg.Resilience())

	ollamaClient := ollama.New(ollama.Options{
		BaseURL:    cfg.OllamaURL,
		EmbedModel: cfg.OllamaEmbedModel,
		Dimension:  cfg.OllamaEmbedDimension,
		Timeout:    cfg.OllamaTimeout(),
		Executor:   executor,
	})
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient)

	index, err := newVectorIndex(cfg, embedder, executor)
	if err != nil {
		return nil, err
	}

	extractors := extractor.NewRouter()
	vault, err := localfs.New(cfg.VaultRoot, extractors)
	if err != nil {
		return nil, fmt.Errorf("init vault: %w", err)
	}

	store, db, err := newQuizStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var queue *nats.Queue
	if opts.ConnectQueue && cfg.NATSURL != "" {
		queue, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			OnQueueLag:         opts.OnQueueLag,
		})
		if err != nil {
			if db != nil {
				_ = db.Close()
			}
			return nil, fmt.Errorf("init index queue: %w", err)
		}
	}

	normalizer := sanitize.NewMarkdownNormalizer()
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	lister := filesystem.NewLister(cfg.VaultExtensions)

	manager := usecase.NewIndexManager(index)
	ingestor := usecase.NewContentIngestor(extractors, normalizer, chunker, usecase.IngestSettings{
		Workers:        cfg.IngestWorkers,
		SkipUnreadable: cfg.SkipUnreadable,
	})
	indexUC := usecase.NewIndexVaultUseCase(lister, ingestor, manager, vault.Root(), cfg.IndexBatchSize, observer)

	engine := usecase.NewStructuredGenerator(generator, usecase.GenerationSettings{
		Model:            cfg.OllamaGenModel,
		StructuredOutput: cfg.OllamaStructuredOutput,
		NoSchemaModels:   cfg.OllamaNoSchemaModels,
		MaxAttempts:      cfg.GenerationMaxAttempts,
		CallTimeout:      cfg.GenerationTimeout(),
	}).WithObserver(observer)

	quizUC := usecase.NewQuizUseCase(engine, normalizer, store, domain.QuizOptions{
		QuestionCount: cfg.QuizQuestionCount,
		ChoiceCount:   cfg.QuizChoiceCount,
	})
	askUC := usecase.NewAskUseCase(
		normalizer,
		usecase.NewQueryDiversifier(engine, cfg.DiversifyCount),
		manager,
		usecase.NewRetriever(manager, usecase.RetrievalSettings{
			TopK:  cfg.RAGTopK,
			RRFK:  cfg.RAGFusionRRFK,
			Limit: cfg.RAGContextLimit,
		}),
		usecase.NewIntentRouter(engine, observer),
		engine,
		quizUC,
		cfg.Collection,
	)

	slog.Info("bootstrap_ready",
		"vector_backend", cfg.VectorBackend,
		"collection", cfg.Collection,
		"vault_root", vault.Root(),
		"model", cfg.OllamaGenModel,
		"generation_mode", string(engine.Mode()),
		"quiz_store", quizStoreKind(db),
		"queue", queue != nil,
	)

	return &App{
		Config:  cfg,
		Vault:   vault,
		Lister:  lister,
		Queue:   queue,
		IndexUC: indexUC,
		AskUC:   askUC,
		QuizUC:  quizUC,

		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
			if db != nil {
				_ = db.Close()
			}
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func newVectorIndex(cfg config.Config, embedder ports.Embedder, executor *resilience.Executor) (ports.VectorIndex, error) {
	switch cfg.VectorBackend {
	case "chroma":
		return chroma.New(chroma.Options{
			BaseURL:   cfg.ChromaURL,
			Tenant:    cfg.ChromaTenant,
			Database:  cfg.ChromaDatabase,
			Dimension: cfg.OllamaEmbedDimension,
			Embedder:  embedder,
			Executor:  executor,
		}), nil
	case "qdrant":
		return qdrant.New(qdrant.Options{
			BaseURL:   cfg.QdrantURL,
			Dimension: cfg.OllamaEmbedDimension,
			Embedder:  embedder,
			Executor:  executor,
		}), nil
	case "memory":
		return vectormemory.NewStore(embedder, cfg.OllamaEmbedDimension), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

// newQuizStore uses Postgres when a DSN is configured and process memory
// otherwise. The returned db is nil for the memory store.
func newQuizStore(ctx context.Context, cfg config.Config) (ports.QuizStore, *sql.DB, error) {
	if cfg.PostgresDSN == "" {
		return memory.NewQuizStore(), nil, nil
	}
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewQuizRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return repo, db, nil
}

func quizStoreKind(db *sql.DB) string {
	if db == nil {
		return "memory"
	}
	return "postgres"
}
