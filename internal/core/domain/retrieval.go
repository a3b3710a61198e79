package domain

import "strings"

// Collection identifies a named vector index bound to one embedding model and
// a fixed dimensionality.
type Collection struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dimension int    `json:"dimension"`
}

// QueryResult mirrors the vector store response: the outer slice is indexed
// by query, the inner one by rank. Slots may be nil when the store returned
// fewer than topK hits for a query.
type QueryResult struct {
	Documents [][]*string        `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]*float64       `json:"distances"`
}

// RankedLists returns the document texts of every query in rank order. Nil
// slots become empty strings so later documents keep their original rank.
func (r QueryResult) RankedLists() [][]string {
	out := make([][]string, 0, len(r.Documents))
	for _, docs := range r.Documents {
		list := make([]string, len(docs))
		for i, doc := range docs {
			if doc != nil {
				list[i] = *doc
			}
		}
		out = append(out, list)
	}
	return out
}

type ScoredDocument struct {
	Text       string  `json:"text"`
	FusedScore float64 `json:"fused_score"`
}

// JoinContext renders fused documents into a single prompt context block.
func JoinContext(docs []ScoredDocument) string {
	parts := make([]string, 0, len(docs))
	for _, doc := range docs {
		text := strings.TrimSpace(doc.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n\n---\n\n")
}

type RouteDecision string

const (
	RouteGenerate RouteDecision = "generate"
	RouteQuiz     RouteDecision = "quiz"
)

func (r RouteDecision) Valid() bool {
	return r == RouteGenerate || r == RouteQuiz
}

type Answer struct {
	Route   RouteDecision    `json:"route"`
	Text    string           `json:"text,omitempty"`
	Quiz    *QuizAttempt     `json:"quiz,omitempty"`
	Queries []string         `json:"queries"`
	Sources []ScoredDocument `json:"sources"`
}
