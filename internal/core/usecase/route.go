package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/core/schema"
)

type IntentRouter struct {
	engine   *StructuredGenerator
	observer ports.PipelineObserver
}

func NewIntentRouter(engine *StructuredGenerator, observer ports.PipelineObserver) *IntentRouter {
	if observer == nil {
		observer = ports.NoopObserver{}
	}
	return &IntentRouter{engine: engine, observer: observer}
}

// Route classifies prompt as generate or quiz. Any other output is an
// ErrUnrecognizedRoute.
func (r *IntentRouter) Route(ctx context.Context, prompt string) (domain.RouteDecision, error) {
	schemaMode := r.engine.Mode() == domain.ModeSchema
	raw, err := r.engine.Complete(ctx, buildRoutePrompt(prompt, schemaMode),
		schema.Route(string(domain.RouteGenerate), string(domain.RouteQuiz)))
	if err != nil {
		return "", fmt.Errorf("route prompt: %w", err)
	}

	decision := domain.RouteDecision(cleanRouteValue(raw))
	if !decision.Valid() {
		r.observer.ObserveRoute("unrecognized")
		return "", domain.WrapError(domain.ErrUnrecognizedRoute, "route prompt", fmt.Errorf("model returned %q", raw))
	}
	r.observer.ObserveRoute(string(decision))
	return decision, nil
}

func cleanRouteValue(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), " \t\r\n\"'`")
}
