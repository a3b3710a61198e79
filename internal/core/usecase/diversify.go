package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/schema"
)

const defaultDiversifyCount = 5

type QueryDiversifier struct {
	engine *StructuredGenerator
	count  int
}

func NewQueryDiversifier(engine *StructuredGenerator, count int) *QueryDiversifier {
	if count <= 0 {
		count = defaultDiversifyCount
	}
	return &QueryDiversifier{engine: engine, count: count}
}

// Diversify returns the original prompt followed by up to count alternative
// phrasings. Malformed or off-schema output degrades to the prompt alone;
// backend failures are returned.
func (d *QueryDiversifier) Diversify(ctx context.Context, prompt string) ([]string, error) {
	prompt = strings.TrimSpace(prompt)
	queries := []string{prompt}

	var out struct {
		Queries []string `json:"queries"`
	}
	err := d.engine.GenerateJSON(ctx, StructuredTask{
		Name:      "diversify",
		Prompt:    buildDiversifyPrompt(prompt, d.count),
		ShapeHint: queriesShapeHint(d.count),
		Schema:    schema.Queries(d.count),
	}, &out)
	if err != nil {
		if domain.IsKind(err, domain.ErrMalformedOutput) || domain.IsKind(err, domain.ErrSchemaViolation) {
			slog.Warn("diversify_degraded", "error", err)
			return queries, nil
		}
		return nil, err
	}

	seen := map[string]struct{}{strings.ToLower(prompt): {}}
	for _, q := range out.Queries {
		q = strings.TrimSpace(q)
		key := strings.ToLower(q)
		if q == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		queries = append(queries, q)
	}
	return queries, nil
}
