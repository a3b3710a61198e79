// Package chroma implements ports.VectorIndex against the Chroma REST v2 API.
// Embeddings are computed client side and sent with every add and query.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/resilience"
)

const (
	DefaultTenant   = "default_tenant"
	DefaultDatabase = "default_database"
)

var queryInclude = []string{"documents", "metadatas", "distances"}

type Options struct {
	BaseURL   string
	Tenant    string
	Database  string
	Dimension int
	Timeout   time.Duration
	Embedder  ports.Embedder
	Executor  *resilience.Executor
}

type Client struct {
	baseURL    string
	dimension  int
	embedder   ports.Embedder
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(opts Options) *Client {
	tenant := strings.TrimSpace(opts.Tenant)
	if tenant == "" {
		tenant = DefaultTenant
	}
	database := strings.TrimSpace(opts.Database)
	if database == "" {
		database = DefaultDatabase
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	executor := opts.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL: fmt.Sprintf("%s/api/v2/tenants/%s/databases/%s",
			strings.TrimRight(opts.BaseURL, "/"), url.PathEscape(tenant), url.PathEscape(database)),
		dimension:  opts.Dimension,
		embedder:   opts.Embedder,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

type collectionResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dimension *int   `json:"dimension"`
}

// GetOrCreate relies on the server-side get_or_create flag, so concurrent
// callers never produce two collections with one name.
func (c *Client) GetOrCreate(ctx context.Context, name string) (domain.Collection, error) {
	body := map[string]any{
		"name":          name,
		"get_or_create": true,
		"metadata":      map[string]any{"hnsw:space": "cosine"},
	}
	var resp collectionResponse
	if _, err := c.do(ctx, "get_or_create", http.MethodPost, "/collections", body, &resp); err != nil {
		return domain.Collection{}, err
	}
	dimension := c.dimension
	if resp.Dimension != nil && *resp.Dimension > 0 {
		dimension = *resp.Dimension
	}
	return domain.Collection{ID: resp.ID, Name: resp.Name, Dimension: dimension}, nil
}

// Delete drops the collection; a missing one is not an error.
func (c *Client) Delete(ctx context.Context, name string) error {
	_, err := c.do(ctx, "delete", http.MethodDelete, "/collections/"+url.PathEscape(name), nil, nil, http.StatusNotFound)
	return err
}

func (c *Client) Add(ctx context.Context, collection domain.Collection, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, 0, len(chunks))
	documents := make([]string, 0, len(chunks))
	metadatas := make([]map[string]any, 0, len(chunks))
	for _, chunk := range chunks {
		ids = append(ids, chunk.ID)
		documents = append(documents, chunk.Text)
		metadatas = append(metadatas, chunk.Metadata())
	}
	embeddings, err := c.embedder.Embed(ctx, documents)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}

	body := map[string]any{
		"ids":        ids,
		"embeddings": embeddings,
		"documents":  documents,
		"metadatas":  metadatas,
	}
	_, err = c.do(ctx, "add", http.MethodPost, "/collections/"+url.PathEscape(collection.ID)+"/add", body, nil)
	return err
}

func (c *Client) Query(ctx context.Context, collection domain.Collection, queryTexts []string, topK int) (domain.QueryResult, error) {
	if len(queryTexts) == 0 {
		return domain.QueryResult{}, nil
	}
	embeddings, err := c.embedder.Embed(ctx, queryTexts)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("embed queries: %w", err)
	}

	body := map[string]any{
		"query_embeddings": embeddings,
		"n_results":        topK,
		"include":          queryInclude,
	}
	var result domain.QueryResult
	if _, err := c.do(ctx, "query", http.MethodPost, "/collections/"+url.PathEscape(collection.ID)+"/query", body, &result); err != nil {
		return domain.QueryResult{}, err
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload, out any, accept ...int) (int, error) {
	status, err := resilience.Call(ctx, c.executor, "chroma_"+operation, func(ctx context.Context) (int, error) {
		return c.send(ctx, operation, method, path, payload, out, accept)
	}, resilience.ClassifyHTTP)
	return status, resilience.WrapUnavailable("chroma "+operation, err)
}

func (c *Client) send(ctx context.Context, operation, method, path string, payload, out any, accept []int) (int, error) {
	var raw []byte
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal %s body: %w", operation, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return 0, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("chroma %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			return code, nil
		}
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, resilience.NewStatusError("chroma", operation, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return resp.StatusCode, nil
}
