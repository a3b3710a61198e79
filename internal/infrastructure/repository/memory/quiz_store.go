package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

// QuizStore keeps quiz attempts in process memory. Callers always get a copy.
type QuizStore struct {
	mu       sync.RWMutex
	attempts map[string]domain.QuizAttempt
}

func NewQuizStore() *QuizStore {
	return &QuizStore{attempts: make(map[string]domain.QuizAttempt)}
}

func (s *QuizStore) Save(_ context.Context, attempt *domain.QuizAttempt) error {
	if attempt == nil || attempt.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save quiz", fmt.Errorf("attempt id is empty"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts[attempt.ID] = clone(*attempt)
	return nil
}

func (s *QuizStore) Get(_ context.Context, id string) (*domain.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attempt, ok := s.attempts[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrQuizNotFound, "get quiz", fmt.Errorf("id=%s", id))
	}
	out := clone(attempt)
	return &out, nil
}

func (s *QuizStore) MarkSubmitted(_ context.Context, attempt *domain.QuizAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.attempts[attempt.ID]
	if !ok {
		return domain.WrapError(domain.ErrQuizNotFound, "mark submitted", fmt.Errorf("id=%s", attempt.ID))
	}
	if stored.Submitted() {
		return domain.WrapError(domain.ErrQuizAlreadySubmitted, "mark submitted", fmt.Errorf("id=%s", attempt.ID))
	}
	s.attempts[attempt.ID] = clone(*attempt)
	return nil
}

func clone(a domain.QuizAttempt) domain.QuizAttempt {
	out := a
	out.Quiz.Questions = make([]domain.Question, len(a.Quiz.Questions))
	for i, q := range a.Quiz.Questions {
		choices := make(map[string]string, len(q.Choices))
		for k, v := range q.Choices {
			choices[k] = v
		}
		q.Choices = choices
		out.Quiz.Questions[i] = q
	}
	if a.Selections != nil {
		out.Selections = append([]int(nil), a.Selections...)
	}
	if a.Result != nil {
		result := *a.Result
		result.Feedback = append([]domain.QuestionFeedback(nil), a.Result.Feedback...)
		out.Result = &result
	}
	if a.SubmittedAt != nil {
		at := *a.SubmittedAt
		out.SubmittedAt = &at
	}
	return out
}
