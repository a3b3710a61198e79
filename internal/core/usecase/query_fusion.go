package usecase

import (
	"sort"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

const defaultRRFK = 60

type fusedCandidate struct {
	text  string
	score float64
	order int
}

// fuseRRF merges independently ranked lists with Reciprocal Rank Fusion:
// score(d) = sum over lists containing d of 1/(k + rank), rank 0-based.
// Documents are keyed by text and score once per list, at their best rank
// in it; empty slots hold their rank but are not scored. Ties keep
// first-encounter order.
func fuseRRF(lists [][]string, rrfK int) []domain.ScoredDocument {
	if rrfK <= 0 {
		rrfK = defaultRRFK
	}

	acc := make(map[string]*fusedCandidate)
	order := 0
	for _, list := range lists {
		seen := make(map[string]struct{}, len(list))
		for rank, text := range list {
			if text == "" {
				continue
			}
			if _, dup := seen[text]; dup {
				continue
			}
			seen[text] = struct{}{}
			candidate, ok := acc[text]
			if !ok {
				candidate = &fusedCandidate{text: text, order: order}
				acc[text] = candidate
				order++
			}
			candidate.score += 1.0 / float64(rrfK+rank)
		}
	}

	candidates := make([]*fusedCandidate, 0, len(acc))
	for _, c := range acc {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].order < candidates[j].order
	})
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	out := make([]domain.ScoredDocument, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, domain.ScoredDocument{Text: c.text, FusedScore: c.score})
	}
	return out
}

func trimCandidates(docs []domain.ScoredDocument, limit int) []domain.ScoredDocument {
	if limit <= 0 || len(docs) <= limit {
		return docs
	}
	return docs[:limit]
}
