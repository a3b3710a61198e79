package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/kirillkom/vault-quizbot/internal/infrastructure/resilience"
)

const maxResponseBytes = 64 << 20

// postJSON sends one request. Ollama reports failures as {"error": "..."};
// that message replaces the raw body in the returned StatusError.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any, operation string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		statusErr := resilience.NewStatusError("ollama", operation, resp)
		if msg := errorMessage(statusErr.Body); msg != "" {
			statusErr.Body = msg
		}
		return statusErr
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", operation, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("ollama %s: empty response", operation)
	}
	if msg := errorMessage(string(raw)); msg != "" {
		return fmt.Errorf("ollama %s: %s", operation, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func errorMessage(body string) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(body), &envelope); err != nil {
		return ""
	}
	return strings.TrimSpace(envelope.Error)
}
