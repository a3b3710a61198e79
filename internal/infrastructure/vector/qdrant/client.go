package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/resilience"
)

const textPayloadKey = "document"

type Options struct {
	BaseURL   string
	Dimension int
	Timeout   time.Duration
	Embedder  ports.Embedder
	Executor  *resilience.Executor
}

// Client implements ports.VectorIndex on top of the Qdrant REST API. Chunk
// text and metadata travel in the point payload.
type Client struct {
	baseURL    string
	dimension  int
	embedder   ports.Embedder
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu sync.Mutex
	ensured  map[string]int
}

func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	executor := opts.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		dimension:  opts.Dimension,
		embedder:   opts.Embedder,
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
		ensured:    make(map[string]int),
	}
}

func (c *Client) GetOrCreate(ctx context.Context, name string) (domain.Collection, error) {
	c.ensureMu.Lock()
	size, ok := c.ensured[name]
	c.ensureMu.Unlock()
	if ok {
		return domain.Collection{ID: name, Name: name, Dimension: size}, nil
	}

	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size int `json:"size"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}
	status, err := c.do(ctx, "get_collection", http.MethodGet, collectionPath(name), nil, &info, http.StatusNotFound)
	if err != nil {
		return domain.Collection{}, err
	}

	size = info.Result.Config.Params.Vectors.Size
	if status == http.StatusNotFound {
		body := map[string]any{
			"vectors": map[string]any{
				"size":     c.dimension,
				"distance": "Cosine",
			},
		}
		// 409 means a concurrent creator won.
		if _, err := c.do(ctx, "create_collection", http.MethodPut, collectionPath(name), body, nil, http.StatusConflict); err != nil {
			return domain.Collection{}, err
		}
		size = c.dimension
	}

	c.ensureMu.Lock()
	c.ensured[name] = size
	c.ensureMu.Unlock()
	return domain.Collection{ID: name, Name: name, Dimension: size}, nil
}

func (c *Client) Delete(ctx context.Context, name string) error {
	c.ensureMu.Lock()
	delete(c.ensured, name)
	c.ensureMu.Unlock()

	_, err := c.do(ctx, "delete_collection", http.MethodDelete, collectionPath(name), nil, nil, http.StatusNotFound)
	return err
}

func (c *Client) Add(ctx context.Context, collection domain.Collection, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		texts = append(texts, chunk.Text)
	}
	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		payload := chunk.Metadata()
		payload[textPayloadKey] = chunk.Text
		points = append(points, point{ID: chunk.ID, Vector: vectors[i], Payload: payload})
	}

	_, err = c.do(ctx, "upsert", http.MethodPut, collectionPath(collection.Name)+"/points?wait=true", map[string]any{"points": points}, nil)
	return err
}

// Query runs one batched search and maps hits into the nullable per-query
// matrices. Distances are 1 - cosine similarity.
func (c *Client) Query(ctx context.Context, collection domain.Collection, queryTexts []string, topK int) (domain.QueryResult, error) {
	if len(queryTexts) == 0 {
		return domain.QueryResult{}, nil
	}
	vectors, err := c.embedder.Embed(ctx, queryTexts)
	if err != nil {
		return domain.QueryResult{}, fmt.Errorf("embed queries: %w", err)
	}

	searches := make([]map[string]any, 0, len(vectors))
	for _, vector := range vectors {
		searches = append(searches, map[string]any{
			"vector":       vector,
			"limit":        topK,
			"with_payload": true,
		})
	}

	var response struct {
		Result [][]struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if _, err := c.do(ctx, "search", http.MethodPost, collectionPath(collection.Name)+"/points/search/batch", map[string]any{"searches": searches}, &response); err != nil {
		return domain.QueryResult{}, err
	}

	result := domain.QueryResult{
		Documents: make([][]*string, len(queryTexts)),
		Metadatas: make([][]map[string]any, len(queryTexts)),
		Distances: make([][]*float64, len(queryTexts)),
	}
	for i := range queryTexts {
		if i >= len(response.Result) {
			continue
		}
		for _, hit := range response.Result[i] {
			var doc *string
			if text, ok := hit.Payload[textPayloadKey].(string); ok {
				doc = &text
			}
			delete(hit.Payload, textPayloadKey)
			distance := 1 - hit.Score
			result.Documents[i] = append(result.Documents[i], doc)
			result.Metadatas[i] = append(result.Metadatas[i], hit.Payload)
			result.Distances[i] = append(result.Distances[i], &distance)
		}
	}
	return result, nil
}

// do sends one JSON request through the executor. Statuses listed in
// accept are returned without error.
func (c *Client) do(ctx context.Context, operation, method, path string, payload, out any, accept ...int) (int, error) {
	status, err := resilience.Call(ctx, c.executor, "qdrant_"+operation, func(ctx context.Context) (int, error) {
		return c.send(ctx, operation, method, path, payload, out, accept)
	}, resilience.ClassifyHTTP)
	return status, resilience.WrapUnavailable("qdrant "+operation, err)
}

func (c *Client) send(ctx context.Context, operation, method, path string, payload, out any, accept []int) (int, error) {
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, fmt.Errorf("marshal %s body: %w", operation, err)
		}
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	for _, code := range accept {
		if resp.StatusCode == code {
			return resp.StatusCode, nil
		}
	}
	if resp.StatusCode >= 300 {
		return resp.StatusCode, resilience.NewStatusError("qdrant", operation, resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s response: %w", operation, err)
		}
	}
	return resp.StatusCode, nil
}

func collectionPath(name string) string {
	return "/collections/" + url.PathEscape(name)
}
