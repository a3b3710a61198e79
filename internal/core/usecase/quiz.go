package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/core/schema"
)

type QuizUseCase struct {
	engine     *StructuredGenerator
	normalizer ports.Normalizer
	store      ports.QuizStore
	opts       domain.QuizOptions
	now        func() time.Time
}

func NewQuizUseCase(
	engine *StructuredGenerator,
	normalizer ports.Normalizer,
	store ports.QuizStore,
	opts domain.QuizOptions,
) *QuizUseCase {
	if opts.QuestionCount <= 0 {
		opts.QuestionCount = 10
	}
	if opts.ChoiceCount <= 0 {
		opts.ChoiceCount = 4
	}
	return &QuizUseCase{
		engine:     engine,
		normalizer: normalizer,
		store:      store,
		opts:       opts,
		now:        time.Now,
	}
}

// GenerateFromContent builds a quiz from the current selection or document,
// falling back to the selected document set.
func (uc *QuizUseCase) GenerateFromContent(ctx context.Context, content ports.ContentProvider) (*domain.QuizAttempt, error) {
	text, err := uc.loadContent(ctx, content)
	if err != nil {
		return nil, err
	}
	return uc.generate(ctx, "", buildQuizPrompt(text, uc.opts))
}

// GenerateFromContext builds a quiz for request grounded on retrieved notes.
func (uc *QuizUseCase) GenerateFromContext(ctx context.Context, request, contextBlock string) (*domain.QuizAttempt, error) {
	if strings.TrimSpace(contextBlock) == "" {
		return nil, domain.WrapError(domain.ErrNoContentSelected, "generate quiz", errors.New("no matching notes"))
	}
	return uc.generate(ctx, request, buildQuizFromContextPrompt(request, contextBlock, uc.opts))
}

func (uc *QuizUseCase) Get(ctx context.Context, id string) (*domain.QuizAttempt, error) {
	attempt, err := uc.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	return attempt, nil
}

// Submit grades selections once. The attempt is immutable afterwards.
func (uc *QuizUseCase) Submit(ctx context.Context, id string, selections []int) (*domain.QuizAttempt, error) {
	attempt, err := uc.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get quiz: %w", err)
	}
	if len(selections) > len(attempt.Quiz.Questions) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit quiz",
			fmt.Errorf("got %d selections for %d questions", len(selections), len(attempt.Quiz.Questions)))
	}
	for i, sel := range selections {
		if sel < 0 || sel > uc.opts.ChoiceCount {
			return nil, domain.WrapError(domain.ErrInvalidInput, "submit quiz",
				fmt.Errorf("selection %d out of range: %d", i+1, sel))
		}
	}

	if _, err := attempt.Submit(selections, uc.now()); err != nil {
		return nil, err
	}
	if err := uc.store.MarkSubmitted(ctx, attempt); err != nil {
		return nil, fmt.Errorf("store submission: %w", err)
	}
	return attempt, nil
}

func (uc *QuizUseCase) loadContent(ctx context.Context, content ports.ContentProvider) (string, error) {
	if content == nil {
		return "", domain.WrapError(domain.ErrNoContentSelected, "load content", errors.New("no content provider"))
	}

	text, err := content.CurrentSelectionOrDocument(ctx)
	if err != nil {
		return "", fmt.Errorf("read current content: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		docs, err := content.SelectedDocumentSet(ctx)
		if err != nil {
			return "", fmt.Errorf("read selected documents: %w", err)
		}
		text = strings.Join(nonEmpty(docs), "\n\n")
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrNoContentSelected, "load content", errors.New("selection and documents are empty"))
	}

	if uc.normalizer != nil {
		text = uc.normalizer.Normalize(text)
	}
	return text, nil
}

func (uc *QuizUseCase) generate(ctx context.Context, request, prompt string) (*domain.QuizAttempt, error) {
	var quiz domain.Quiz
	err := uc.engine.GenerateJSON(ctx, StructuredTask{
		Name:      "quiz",
		Prompt:    prompt,
		ShapeHint: quizShapeHint(uc.opts),
		Schema:    schema.Quiz(uc.opts.QuestionCount, uc.opts.ChoiceCount),
	}, &quiz)
	if err != nil {
		return nil, fmt.Errorf("generate quiz: %w", err)
	}
	if err := quiz.Validate(uc.opts); err != nil {
		payload, _ := json.Marshal(quiz)
		return nil, domain.NewSchemaViolation(err.Error(), string(payload))
	}

	attempt := &domain.QuizAttempt{
		ID:        uuid.NewString(),
		Prompt:    request,
		Quiz:      quiz,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.store.Save(ctx, attempt); err != nil {
		return nil, fmt.Errorf("save quiz: %w", err)
	}
	return attempt, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}
