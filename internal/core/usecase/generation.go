package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/core/schema"
)

type GenerationSettings struct {
	Model            string
	StructuredOutput bool
	// NoSchemaModels lists model name prefixes that ignore schema constraints.
	NoSchemaModels []string
	MaxAttempts    int
	CallTimeout    time.Duration
}

// StructuredTask is one structured generation call. ShapeHint describes the
// expected JSON in prose for models that cannot take a schema.
type StructuredTask struct {
	Name      string
	Prompt    string
	ShapeHint string
	Schema    *openapi3.Schema
}

type StructuredGenerator struct {
	generator ports.Generator
	settings  GenerationSettings
	observer  ports.PipelineObserver
}

func NewStructuredGenerator(generator ports.Generator, settings GenerationSettings) *StructuredGenerator {
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = 3
	}
	return &StructuredGenerator{
		generator: generator,
		settings:  settings,
		observer:  ports.NoopObserver{},
	}
}

func (g *StructuredGenerator) WithObserver(observer ports.PipelineObserver) *StructuredGenerator {
	if observer != nil {
		g.observer = observer
	}
	return g
}

// Mode reports whether schema constraints are sent for the configured model.
func (g *StructuredGenerator) Mode() domain.GenerationMode {
	if !g.settings.StructuredOutput {
		return domain.ModeUnstructured
	}
	model := strings.ToLower(strings.TrimSpace(g.settings.Model))
	for _, prefix := range g.settings.NoSchemaModels {
		prefix = strings.ToLower(strings.TrimSpace(prefix))
		if prefix != "" && strings.HasPrefix(model, prefix) {
			return domain.ModeUnstructured
		}
	}
	return domain.ModeSchema
}

// GenerateText returns free-form model output.
func (g *StructuredGenerator) GenerateText(ctx context.Context, prompt string) (string, error) {
	raw, err := g.call(ctx, domain.GenerationRequest{ModelID: g.settings.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return stripReasoning(raw), nil
}

// Complete sends prompt with s attached when the model honors schemas and
// returns the trimmed raw output.
func (g *StructuredGenerator) Complete(ctx context.Context, prompt string, s *openapi3.Schema) (string, error) {
	req := domain.GenerationRequest{ModelID: g.settings.Model, Prompt: prompt}
	if s != nil && g.Mode() == domain.ModeSchema {
		format, err := schema.Encode(s)
		if err != nil {
			return "", err
		}
		req.Format = format
	}
	raw, err := g.call(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stripReasoning(raw)), nil
}

// GenerateJSON runs task until the output yields a JSON object that matches
// task.Schema, then decodes it into out. Unparseable output is regenerated up
// to MaxAttempts times; a parsed payload that breaks the schema is final.
func (g *StructuredGenerator) GenerateJSON(ctx context.Context, task StructuredTask, out any) error {
	prompt := g.buildPrompt(task)

	var lastErr error
	for attempt := 1; attempt <= g.settings.MaxAttempts; attempt++ {
		raw, err := g.Complete(ctx, prompt, task.Schema)
		if err != nil {
			g.observer.ObserveGeneration(task.Name, "error")
			return fmt.Errorf("%s: %w", task.Name, err)
		}

		payload, err := extractJSONPayload(raw)
		if err == nil {
			err = g.decode(task, payload, out)
			if domain.IsKind(err, domain.ErrSchemaViolation) {
				g.observer.ObserveGeneration(task.Name, "schema_violation")
				return fmt.Errorf("%s: %w", task.Name, err)
			}
		}
		if err == nil {
			g.observer.ObserveGeneration(task.Name, "ok")
			return nil
		}

		lastErr = err
		g.observer.ObserveGeneration(task.Name, "malformed")
		slog.Warn("generation_malformed_output",
			"task", task.Name,
			"attempt", attempt,
			"max_attempts", g.settings.MaxAttempts,
			"error", err,
		)
	}
	return domain.WrapError(domain.ErrMalformedOutput, task.Name, lastErr)
}

func (g *StructuredGenerator) decode(task StructuredTask, payload string, out any) error {
	var generic any
	if err := json.Unmarshal([]byte(payload), &generic); err != nil {
		return domain.WrapError(domain.ErrMalformedOutput, "parse json", err)
	}
	if task.Schema != nil {
		if err := schema.Validate(task.Schema, []byte(payload)); err != nil {
			return domain.NewSchemaViolation(err.Error(), payload)
		}
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return domain.NewSchemaViolation(err.Error(), payload)
	}
	return nil
}

func (g *StructuredGenerator) buildPrompt(task StructuredTask) string {
	if g.Mode() == domain.ModeSchema || strings.TrimSpace(task.ShapeHint) == "" {
		return task.Prompt + "\n\nRespond with a single JSON object only."
	}
	return task.Prompt + "\n\nFormat the output as JSON exactly like this, with no other text:\n" + task.ShapeHint
}

func (g *StructuredGenerator) call(ctx context.Context, req domain.GenerationRequest) (string, error) {
	if g.settings.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.settings.CallTimeout)
		defer cancel()
	}
	raw, err := g.generator.Generate(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !domain.IsKind(err, domain.ErrServiceUnavailable) {
			return "", domain.WrapError(domain.ErrServiceUnavailable, "generate", err)
		}
		return "", err
	}
	return raw, nil
}

const reasoningCloseTag = "</think>"

// stripReasoning drops a leading reasoning trace some models emit.
func stripReasoning(raw string) string {
	if idx := strings.LastIndex(raw, reasoningCloseTag); idx >= 0 {
		return raw[idx+len(reasoningCloseTag):]
	}
	return raw
}

// extractJSONPayload takes the span from the first "{" to the last "}".
func extractJSONPayload(raw string) (string, error) {
	text := stripReasoning(raw)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end < start {
		return "", domain.WrapError(domain.ErrMalformedOutput, "extract json", fmt.Errorf("no json object in %d bytes of output", len(raw)))
	}
	return text[start : end+1], nil
}
