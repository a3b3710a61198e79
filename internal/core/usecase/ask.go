package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

// AskUseCase runs a prompt through diversify, retrieve, route and then either
// free-text generation or quiz generation.
type AskUseCase struct {
	normalizer  ports.Normalizer
	diversifier *QueryDiversifier
	manager     *IndexManager
	retriever   *Retriever
	router      *IntentRouter
	engine      *StructuredGenerator
	quizzes     *QuizUseCase
	collection  string
}

func NewAskUseCase(
	normalizer ports.Normalizer,
	diversifier *QueryDiversifier,
	manager *IndexManager,
	retriever *Retriever,
	router *IntentRouter,
	engine *StructuredGenerator,
	quizzes *QuizUseCase,
	collection string,
) *AskUseCase {
	return &AskUseCase{
		normalizer:  normalizer,
		diversifier: diversifier,
		manager:     manager,
		retriever:   retriever,
		router:      router,
		engine:      engine,
		quizzes:     quizzes,
		collection:  collection,
	}
}

func (uc *AskUseCase) Ask(ctx context.Context, prompt string) (*domain.Answer, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("prompt is required"))
	}
	if uc.normalizer != nil {
		prompt = uc.normalizer.Normalize(prompt)
	}

	queries, err := uc.diversifier.Diversify(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("diversify prompt: %w", err)
	}

	collection, err := uc.manager.GetOrCreate(ctx, uc.collection)
	if err != nil {
		return nil, err
	}
	sources, err := uc.retriever.Retrieve(ctx, collection, queries)
	if err != nil {
		return nil, fmt.Errorf("retrieve context: %w", err)
	}
	contextBlock := domain.JoinContext(sources)

	route, err := uc.router.Route(ctx, prompt)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{Route: route, Queries: queries, Sources: sources}
	switch route {
	case domain.RouteQuiz:
		attempt, err := uc.quizzes.GenerateFromContext(ctx, prompt, contextBlock)
		if err != nil {
			return nil, err
		}
		answer.Quiz = attempt
	default:
		text, err := uc.engine.GenerateText(ctx, buildAnswerPrompt(prompt, contextBlock))
		if err != nil {
			return nil, fmt.Errorf("generate answer: %w", err)
		}
		answer.Text = strings.TrimSpace(text)
	}
	return answer, nil
}
