// Package memory is an in-process vector index using brute-force cosine
// similarity. It backs the CLI when no vector service is configured.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

type collection struct {
	id      string
	chunks  []domain.Chunk
	vectors [][]float64
}

type Store struct {
	embedder  ports.Embedder
	dimension int

	mu          sync.RWMutex
	collections map[string]*collection
}

func NewStore(embedder ports.Embedder, dimension int) *Store {
	return &Store{
		embedder:    embedder,
		dimension:   dimension,
		collections: make(map[string]*collection),
	}
}

func (s *Store) GetOrCreate(_ context.Context, name string) (domain.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{id: uuid.NewString()}
		s.collections[name] = c
	}
	return domain.Collection{ID: c.id, Name: name, Dimension: s.dimension}, nil
}

func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

func (s *Store) Add(ctx context.Context, target domain.Collection, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("chunks and vectors length mismatch: %d/%d", len(chunks), len(vectors))
	}
	for _, v := range vectors {
		if s.dimension > 0 && len(v) != s.dimension {
			return fmt.Errorf("vector dimension mismatch: got %d, want %d", len(v), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.lookup(target)
	if err != nil {
		return err
	}
	c.chunks = append(c.chunks, chunks...)
	for _, v := range vectors {
		c.vectors = append(c.vectors, normalize(v))
	}
	return nil
}

func (s *Store) Query(ctx context.Context, target domain.Collection, queryTexts []string, topK int) (domain.QueryResult, error) {
	if topK <= 0 {
		topK = 5
	}
	vectors, err := s.embedder.Embed(ctx, queryTexts)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("embed queries: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, err := s.lookup(target)
	if err != nil {
		return domain.QueryResult{}, err
	}

	result := domain.QueryResult{
		Documents: make([][]*string, len(queryTexts)),
		Metadatas: make([][]map[string]any, len(queryTexts)),
		Distances: make([][]*float64, len(queryTexts)),
	}
	for qi, qv := range vectors {
		if qi >= len(queryTexts) {
			break
		}
		query := normalize(qv)
		scores := make([]float64, len(c.vectors))
		idxs := make([]int, len(c.vectors))
		for i, v := range c.vectors {
			scores[i] = dot(v, query)
			idxs[i] = i
		}
		sort.SliceStable(idxs, func(a, b int) bool {
			return scores[idxs[a]] > scores[idxs[b]]
		})
		n := min(topK, len(idxs))
		for _, j := range idxs[:n] {
			text := c.chunks[j].Text
			distance := 1 - scores[j]
			result.Documents[qi] = append(result.Documents[qi], &text)
			result.Metadatas[qi] = append(result.Metadatas[qi], c.chunks[j].Metadata())
			result.Distances[qi] = append(result.Distances[qi], &distance)
		}
	}
	return result, nil
}

// size reports the number of chunks stored under name.
func (s *Store) size(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.chunks)
	}
	return 0
}

func (s *Store) lookup(target domain.Collection) (*collection, error) {
	c, ok := s.collections[target.Name]
	if !ok || (target.ID != "" && c.id != target.ID) {
		return nil, fmt.Errorf("collection %q does not exist", target.Name)
	}
	return c, nil
}

func normalize(v []float32) []float64 {
	out := make([]float64, len(v))
	var norm float64
	for i, x := range v {
		out[i] = float64(x)
		norm += out[i] * out[i]
	}
	if norm == 0 {
		return out
	}
	norm = math.Sqrt(norm)
	for i := range out {
		out[i] /= norm
	}
	return out
}

func dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
