package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

type vectorIndexFake struct {
	mu          sync.Mutex
	collections map[string][]domain.Chunk
	creates     int
	deletes     int
	addCalls    [][]domain.Chunk
	failAddCall int
	queryErr    error
	results     map[string][]string
}

func newVectorIndexFake() *vectorIndexFake {
	return &vectorIndexFake{collections: map[string][]domain.Chunk{}, results: map[string][]string{}}
}

func (f *vectorIndexFake) GetOrCreate(_ context.Context, name string) (domain.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.collections[name]; !ok {
		f.collections[name] = []domain.Chunk{}
		f.creates++
	}
	return domain.Collection{ID: "id-" + name, Name: name, Dimension: 768}, nil
}

func (f *vectorIndexFake) Delete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, name)
	f.deletes++
	return nil
}

func (f *vectorIndexFake) Add(_ context.Context, collection domain.Collection, chunks []domain.Chunk) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls = append(f.addCalls, chunks)
	if f.failAddCall > 0 && len(f.addCalls) == f.failAddCall {
		return errors.New("add failed")
	}
	if _, ok := f.collections[collection.Name]; !ok {
		return fmt.Errorf("collection %s does not exist", collection.Name)
	}
	f.collections[collection.Name] = append(f.collections[collection.Name], chunks...)
	return nil
}

func (f *vectorIndexFake) Query(_ context.Context, _ domain.Collection, queryTexts []string, topK int) (domain.QueryResult, error) {
	if f.queryErr != nil {
		return domain.QueryResult{}, f.queryErr
	}
	var result domain.QueryResult
	for _, q := range queryTexts {
		docs := make([]*string, 0, topK)
		for _, text := range f.results[q] {
			if len(docs) == topK {
				break
			}
			text := text
			docs = append(docs, &text)
		}
		result.Documents = append(result.Documents, docs)
	}
	return result, nil
}

type chunkerFake struct{}

// Split cuts on blank lines.
func (chunkerFake) Split(text string) []string {
	var out []string
	for _, part := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(part) != "" {
			out = append(out, strings.TrimSpace(part))
		}
	}
	return out
}

type normalizerFake struct{}

func (normalizerFake) Normalize(text string) string {
	return strings.ReplaceAll(strings.ReplaceAll(text, "[[", ""), "]]", "")
}

type extractorFake struct {
	files map[string]string
}

func (f extractorFake) Extract(_ context.Context, path string) (string, error) {
	text, ok := f.files[path]
	if !ok {
		return "", fmt.Errorf("open %s: no such file", path)
	}
	return text, nil
}

type listerFake struct {
	paths []string
	err   error
}

func (f listerFake) List(context.Context, string) ([]string, error) {
	return f.paths, f.err
}

type quizStoreFake struct {
	mu       sync.Mutex
	attempts map[string]domain.QuizAttempt
}

func newQuizStoreFake() *quizStoreFake {
	return &quizStoreFake{attempts: map[string]domain.QuizAttempt{}}
}

func (f *quizStoreFake) Save(_ context.Context, attempt *domain.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[attempt.ID] = *attempt
	return nil
}

func (f *quizStoreFake) Get(_ context.Context, id string) (*domain.QuizAttempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	attempt, ok := f.attempts[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrQuizNotFound, "get quiz", fmt.Errorf("id=%s", id))
	}
	return &attempt, nil
}

func (f *quizStoreFake) MarkSubmitted(_ context.Context, attempt *domain.QuizAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.attempts[attempt.ID]
	if !ok {
		return domain.WrapError(domain.ErrQuizNotFound, "mark submitted", fmt.Errorf("id=%s", attempt.ID))
	}
	if stored.Submitted() {
		return domain.WrapError(domain.ErrQuizAlreadySubmitted, "mark submitted", fmt.Errorf("id=%s", attempt.ID))
	}
	f.attempts[attempt.ID] = *attempt
	return nil
}

type observerFake struct {
	mu          sync.Mutex
	routes      []string
	generations []string
	indexRuns   []string
}

func (o *observerFake) ObserveIndexRun(status string, _ int, _ float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.indexRuns = append(o.indexRuns, status)
}

func (o *observerFake) ObserveGeneration(task, outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.generations = append(o.generations, task+":"+outcome)
}

func (o *observerFake) ObserveRoute(route string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.routes = append(o.routes, route)
}

// scriptedGenerator answers by matching a marker in the prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies map[string]string
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, req domain.GenerationRequest) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, req.Prompt)
	for marker, reply := range g.replies {
		if strings.Contains(req.Prompt, marker) {
			return reply, nil
		}
	}
	return "", errors.New("no scripted reply")
}

func quizJSON(questions, choices int) string {
	var b strings.Builder
	b.WriteString(`{"questions": [`)
	for q := 0; q < questions; q++ {
		if q > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf(`{"text": "Question %d?", "choices": {`, q+1))
		for c := 1; c <= choices; c++ {
			if c > 1 {
				b.WriteString(",")
			}
			b.WriteString(fmt.Sprintf(`"%d": "Choice %d"`, c, c))
		}
		b.WriteString(`}, "answer": "2"}`)
	}
	b.WriteString(`]}`)
	return b.String()
}
