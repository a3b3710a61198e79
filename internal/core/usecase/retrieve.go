package usecase

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

type RetrievalSettings struct {
	TopK int
	RRFK int
	// Limit caps the fused list; zero keeps every candidate.
	Limit int
}

type Retriever struct {
	manager  *IndexManager
	settings RetrievalSettings
}

func NewRetriever(manager *IndexManager, settings RetrievalSettings) *Retriever {
	if settings.TopK <= 0 {
		settings.TopK = 5
	}
	if settings.RRFK <= 0 {
		settings.RRFK = defaultRRFK
	}
	return &Retriever{manager: manager, settings: settings}
}

// Retrieve issues one query per string concurrently and fuses the ranked
// lists once all of them are back.
func (r *Retriever) Retrieve(ctx context.Context, collection domain.Collection, queries []string) ([]domain.ScoredDocument, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	lists := make([][]string, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, query := range queries {
		g.Go(func() error {
			result, err := r.manager.Query(gctx, collection, []string{query}, r.settings.TopK)
			if err != nil {
				return fmt.Errorf("query %d: %w", i, err)
			}
			ranked := result.RankedLists()
			if len(ranked) > 0 {
				lists[i] = ranked[0]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return trimCandidates(fuseRRF(lists, r.settings.RRFK), r.settings.Limit), nil
}
