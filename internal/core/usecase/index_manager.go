package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

const defaultBatchSize = 2000

// BatchReport summarizes one sequential bulk load.
type BatchReport struct {
	Batches int
	Failed  int
	Chunks  int
}

// IndexManager owns the lifecycle of named collections. Callers serialize
// Recreate and UpsertBatched per collection name.
type IndexManager struct {
	index ports.VectorIndex
	group singleflight.Group
}

func NewIndexManager(index ports.VectorIndex) *IndexManager {
	return &IndexManager{index: index}
}

// GetOrCreate coalesces concurrent calls for the same name into one request.
// The shared request outlives any single caller's cancellation; each caller
// still stops waiting when its own context ends.
func (m *IndexManager) GetOrCreate(ctx context.Context, name string) (domain.Collection, error) {
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(name, func() (any, error) {
		callCtx, cancel := context.WithTimeout(shared, getOrCreateTimeout)
		defer cancel()
		return m.index.GetOrCreate(callCtx, name)
	})
	select {
	case <-ctx.Done():
		return domain.Collection{}, fmt.Errorf("get or create collection %q: %w", name, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Collection{}, fmt.Errorf("get or create collection %q: %w", name, res.Err)
		}
		return res.Val.(domain.Collection), nil
	}
}

const getOrCreateTimeout = 2 * time.Minute

// Recreate deletes name (absent is fine) and creates it empty. A failure
// between the two steps leaves the collection absent.
func (m *IndexManager) Recreate(ctx context.Context, name string) (domain.Collection, error) {
	if err := m.Delete(ctx, name); err != nil {
		return domain.Collection{}, err
	}
	return m.GetOrCreate(ctx, name)
}

func (m *IndexManager) Delete(ctx context.Context, name string) error {
	if err := m.index.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection %q: %w", name, err)
	}
	return nil
}

// UpsertBatched adds chunks in consecutive slices of at most batchSize, one
// slice at a time. A failed slice is reported and the remaining slices are
// still submitted.
func (m *IndexManager) UpsertBatched(ctx context.Context, collection domain.Collection, chunks []domain.Chunk, batchSize int) (BatchReport, error) {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	var (
		report BatchReport
		errs   []error
	)
	for start := 0; start < len(chunks); start += batchSize {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		end := min(start+batchSize, len(chunks))
		batch := chunks[start:end]
		report.Batches++

		if err := m.index.Add(ctx, collection, batch); err != nil {
			report.Failed++
			errs = append(errs, fmt.Errorf("batch %d [%d:%d]: %w", report.Batches, start, end, err))
			slog.Error("index_batch_failed",
				"collection", collection.Name,
				"batch", report.Batches,
				"size", len(batch),
				"error", err,
			)
			continue
		}
		report.Chunks += len(batch)
		slog.Info("index_batch_upserted",
			"collection", collection.Name,
			"batch", report.Batches,
			"size", len(batch),
		)
	}
	return report, errors.Join(errs...)
}

func (m *IndexManager) Query(ctx context.Context, collection domain.Collection, queryTexts []string, topK int) (domain.QueryResult, error) {
	result, err := m.index.Query(ctx, collection, queryTexts, topK)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("query collection %q: %w", collection.Name, err)
	}
	return result, nil
}
