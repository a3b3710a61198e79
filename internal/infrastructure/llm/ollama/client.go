package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	embedModel string
	dimension  int
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	BaseURL    string
	EmbedModel string
	// Dimension, when set, is checked against every returned embedding.
	Dimension int
	Timeout   time.Duration
	Executor  *resilience.Executor
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	executor := opts.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		embedModel: opts.EmbedModel,
		dimension:  opts.Dimension,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

type generateRequest struct {
	Model  string          `json:"model"`
	Prompt string          `json:"prompt"`
	Format json.RawMessage `json:"format,omitempty"`
	Stream bool            `json:"stream"`
}

// Generate posts one non-streaming /api/generate call and returns the raw
// response text.
func (g *Generator) Generate(ctx context.Context, req domain.GenerationRequest) (string, error) {
	body := generateRequest{
		Model:  req.ModelID,
		Prompt: req.Prompt,
		Format: req.Format,
		Stream: false,
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.call(ctx, "/api/generate", body, &response, "generate"); err != nil {
		return "", err
	}
	return response.Response, nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	if e.client.dimension > 0 {
		for i, vec := range response.Embeddings {
			if len(vec) != e.client.dimension {
				return nil, fmt.Errorf("ollama embed: vector %d has dimension %d, want %d", i, len(vec), e.client.dimension)
			}
		}
	}
	return response.Embeddings, nil
}

func (c *Client) call(ctx context.Context, path string, payload any, out any, operation string) error {
	err := c.executor.Execute(ctx, "ollama_"+operation, func(ctx context.Context) error {
		return c.postJSON(ctx, path, payload, out, operation)
	}, resilience.ClassifyHTTP)
	return resilience.WrapUnavailable("ollama "+operation, err)
}
