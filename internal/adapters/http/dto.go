package httpadapter

import (
	"time"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
)

type indexRequest struct {
	Collection string `json:"collection" validate:"omitempty,max=128"`
}

type askRequest struct {
	Prompt string `json:"prompt" validate:"required,max=8000"`
}

type createQuizRequest struct {
	Selection string   `json:"selection" validate:"max=200000"`
	Note      string   `json:"note" validate:"omitempty,max=1024"`
	Notes     []string `json:"notes" validate:"max=64,dive,required,max=1024"`
}

type submitQuizRequest struct {
	Selections []int `json:"selections" validate:"required,max=200,dive,min=0,max=26"`
}

type choiceView struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Text  string `json:"text"`
}

type questionView struct {
	Number  int          `json:"number"`
	Text    string       `json:"text"`
	Choices []choiceView `json:"choices"`
	Answer  string       `json:"answer,omitempty"`
}

type quizView struct {
	ID          string              `json:"id"`
	Prompt      string              `json:"prompt,omitempty"`
	Questions   []questionView      `json:"questions"`
	Submitted   bool                `json:"submitted"`
	Selections  []int               `json:"selections,omitempty"`
	Result      *domain.GradeResult `json:"result,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	SubmittedAt *time.Time          `json:"submitted_at,omitempty"`
}

// newQuizView hides answer keys until the attempt is submitted.
func newQuizView(attempt *domain.QuizAttempt) quizView {
	view := quizView{
		ID:          attempt.ID,
		Prompt:      attempt.Prompt,
		Questions:   make([]questionView, 0, len(attempt.Quiz.Questions)),
		Submitted:   attempt.Submitted(),
		Selections:  attempt.Selections,
		Result:      attempt.Result,
		CreatedAt:   attempt.CreatedAt,
		SubmittedAt: attempt.SubmittedAt,
	}
	for i, q := range attempt.Quiz.Questions {
		qv := questionView{Number: i + 1, Text: q.Text}
		for _, key := range q.ChoiceKeys() {
			qv.Choices = append(qv.Choices, choiceView{Key: key, Label: domain.ChoiceLabel(key), Text: q.Choices[key]})
		}
		if view.Submitted {
			qv.Answer = q.AnswerKey
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

type askResponse struct {
	Route   domain.RouteDecision    `json:"route"`
	Text    string                  `json:"text,omitempty"`
	Quiz    *quizView               `json:"quiz,omitempty"`
	Queries []string                `json:"queries"`
	Sources []domain.ScoredDocument `json:"sources"`
}

func newAskResponse(answer *domain.Answer) askResponse {
	resp := askResponse{
		Route:   answer.Route,
		Text:    answer.Text,
		Queries: answer.Queries,
		Sources: answer.Sources,
	}
	if answer.Quiz != nil {
		view := newQuizView(answer.Quiz)
		resp.Quiz = &view
	}
	return resp
}
