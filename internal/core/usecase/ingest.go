package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

const defaultIngestWorkers = 8

type IngestSettings struct {
	Workers int
	// SkipUnreadable reports a failed file and keeps going instead of
	// aborting the whole run.
	SkipUnreadable bool
}

type ContentIngestor struct {
	extractor  ports.TextExtractor
	normalizer ports.Normalizer
	chunker    ports.Chunker
	settings   IngestSettings
	newID      func() string
}

func NewContentIngestor(
	extractor ports.TextExtractor,
	normalizer ports.Normalizer,
	chunker ports.Chunker,
	settings IngestSettings,
) *ContentIngestor {
	if settings.Workers <= 0 {
		settings.Workers = defaultIngestWorkers
	}
	return &ContentIngestor{
		extractor:  extractor,
		normalizer: normalizer,
		chunker:    chunker,
		settings:   settings,
		newID:      uuid.NewString,
	}
}

// IngestFiles reads, normalizes and chunks every path with a bounded worker
// pool. Chunks of one file keep their sequence order; files appear in input
// order.
func (uc *ContentIngestor) IngestFiles(ctx context.Context, paths []string) (*domain.IngestResult, error) {
	perFile := make([][]domain.Chunk, len(paths))
	var (
		mu       sync.Mutex
		failures []domain.IngestFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.settings.Workers)
	for i, path := range paths {
		g.Go(func() error {
			chunks, err := uc.ingestFile(gctx, path)
			if err != nil {
				if !uc.settings.SkipUnreadable || gctx.Err() != nil {
					return fmt.Errorf("ingest %s: %w", path, err)
				}
				slog.Warn("ingest_file_skipped", "path", path, "error", err)
				mu.Lock()
				failures = append(failures, domain.IngestFailure{Path: path, Error: err.Error()})
				mu.Unlock()
				return nil
			}
			perFile[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{Failures: failures}
	for _, chunks := range perFile {
		if chunks == nil {
			continue
		}
		result.Files++
		result.Chunks = append(result.Chunks, chunks...)
	}
	return result, nil
}

func (uc *ContentIngestor) ingestFile(ctx context.Context, path string) ([]domain.Chunk, error) {
	raw, err := uc.extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	sourceHash := contentHash(raw)

	text := raw
	if uc.normalizer != nil {
		text = uc.normalizer.Normalize(raw)
	}

	windows := uc.chunker.Split(text)
	chunks := make([]domain.Chunk, 0, len(windows))
	for idx, window := range windows {
		chunks = append(chunks, domain.Chunk{
			ID:            uc.newID(),
			SourceURI:     path,
			SequenceIndex: idx,
			Text:          window,
			ChunkHash:     contentHash(window),
			SourceHash:    sourceHash,
		})
	}
	return chunks, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
