package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

type IndexVaultUseCase struct {
	// mu serializes rebuilds; a recreate racing an upsert would lose chunks.
	mu sync.Mutex

	lister    ports.SourceLister
	ingestor  *ContentIngestor
	manager   *IndexManager
	observer  ports.PipelineObserver
	vaultRoot string
	batchSize int
}

func NewIndexVaultUseCase(
	lister ports.SourceLister,
	ingestor *ContentIngestor,
	manager *IndexManager,
	vaultRoot string,
	batchSize int,
	observer ports.PipelineObserver,
) *IndexVaultUseCase {
	if observer == nil {
		observer = ports.NoopObserver{}
	}
	return &IndexVaultUseCase{
		lister:    lister,
		ingestor:  ingestor,
		manager:   manager,
		observer:  observer,
		vaultRoot: vaultRoot,
		batchSize: batchSize,
	}
}

// IndexVault rebuilds the collection from scratch. Files are read and chunked
// before the collection is dropped so that a read failure never leaves the
// index empty.
func (uc *IndexVaultUseCase) IndexVault(ctx context.Context, collection string) (*domain.IndexReport, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	started := time.Now()
	report, err := uc.run(ctx, collection)
	status := "ok"
	chunks := 0
	if report != nil {
		chunks = report.Chunks
	}
	if err != nil {
		status = "error"
	}
	uc.observer.ObserveIndexRun(status, chunks, time.Since(started).Seconds())
	return report, err
}

func (uc *IndexVaultUseCase) run(ctx context.Context, collection string) (*domain.IndexReport, error) {
	paths, err := uc.lister.List(ctx, uc.vaultRoot)
	if err != nil {
		return nil, fmt.Errorf("list vault files: %w", err)
	}

	ingested, err := uc.ingestor.IngestFiles(ctx, paths)
	if err != nil {
		return nil, fmt.Errorf("ingest vault files: %w", err)
	}

	target, err := uc.manager.Recreate(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("recreate collection: %w", err)
	}

	batches, upsertErr := uc.manager.UpsertBatched(ctx, target, ingested.Chunks, uc.batchSize)
	report := &domain.IndexReport{
		Collection: target.Name,
		Files:      ingested.Files,
		Chunks:     batches.Chunks,
		Batches:    batches.Batches,
		Skipped:    ingested.Failures,
	}
	slog.Info("vault_indexed",
		"collection", report.Collection,
		"files", report.Files,
		"chunks", report.Chunks,
		"batches", report.Batches,
		"failed_batches", batches.Failed,
		"skipped", len(report.Skipped),
	)
	if upsertErr != nil {
		return report, fmt.Errorf("upsert chunks: %w", upsertErr)
	}
	return report, nil
}
