package domain

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type Question struct {
	Text      string            `json:"text"`
	Choices   map[string]string `json:"choices"`
	AnswerKey string            `json:"answer"`
}

type Quiz struct {
	Questions []Question `json:"questions"`
}

// ChoiceKeys returns the choice keys in numeric order ("1", "2", ...).
func (q Question) ChoiceKeys() []string {
	keys := make([]string, 0, len(q.Choices))
	for k := range q.Choices {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		ni, errI := strconv.Atoi(keys[i])
		nj, errJ := strconv.Atoi(keys[j])
		if errI != nil || errJ != nil {
			return keys[i] < keys[j]
		}
		return ni < nj
	})
	return keys
}

// Validate checks the question against the configured choice count.
func (q Question) Validate(choiceCount int) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is empty")
	}
	if len(q.Choices) != choiceCount {
		return fmt.Errorf("expected %d choices, got %d", choiceCount, len(q.Choices))
	}
	for i := 1; i <= choiceCount; i++ {
		text, ok := q.Choices[strconv.Itoa(i)]
		if !ok {
			return fmt.Errorf("missing choice key %q", strconv.Itoa(i))
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("choice %d is empty", i)
		}
	}
	if _, ok := q.Choices[q.AnswerKey]; !ok {
		return fmt.Errorf("answer key %q is not a choice", q.AnswerKey)
	}
	return nil
}

// Validate checks question and choice counts of a parsed quiz.
func (q Quiz) Validate(opts QuizOptions) error {
	if len(q.Questions) != opts.QuestionCount {
		return fmt.Errorf("expected %d questions, got %d", opts.QuestionCount, len(q.Questions))
	}
	for i, question := range q.Questions {
		if err := question.Validate(opts.ChoiceCount); err != nil {
			return fmt.Errorf("question %d: %w", i+1, err)
		}
	}
	return nil
}

// ChoiceLabel maps a 1-based choice key to its display letter: "1" -> "A".
func ChoiceLabel(key string) string {
	n, err := strconv.Atoi(strings.TrimSpace(key))
	if err != nil || n < 1 || n > 26 {
		return key
	}
	return string(rune('A' + n - 1))
}

type QuestionFeedback struct {
	Number    int    `json:"number"`
	Selected  string `json:"selected,omitempty"`
	AnswerKey string `json:"answer"`
	Correct   bool   `json:"correct"`
	Message   string `json:"message"`
}

type GradeResult struct {
	Correct  int                `json:"correct"`
	Total    int                `json:"total"`
	Score    int                `json:"score"`
	Summary  string             `json:"summary"`
	Feedback []QuestionFeedback `json:"feedback"`
}

// Grade scores 1-based choice selections, one per question. A zero or
// missing selection counts as unanswered.
func (q Quiz) Grade(selections []int) GradeResult {
	total := len(q.Questions)
	result := GradeResult{
		Total:    total,
		Feedback: make([]QuestionFeedback, 0, total),
	}

	for i, question := range q.Questions {
		fb := QuestionFeedback{Number: i + 1, AnswerKey: question.AnswerKey}
		if i < len(selections) && selections[i] > 0 {
			fb.Selected = strconv.Itoa(selections[i])
		}
		if fb.Selected != "" && fb.Selected == question.AnswerKey {
			fb.Correct = true
			result.Correct++
			fb.Message = fmt.Sprintf("Question %d answered correctly!", i+1)
		} else {
			fb.Message = fmt.Sprintf("Question %d answered incorrectly! Correct answer: %s", i+1, ChoiceLabel(question.AnswerKey))
		}
		result.Feedback = append(result.Feedback, fb)
	}

	if total > 0 {
		result.Score = int(math.Round(100 * float64(result.Correct) / float64(total)))
	}
	result.Summary = fmt.Sprintf("Score: %d%% - Answered %d out of %d correctly", result.Score, result.Correct, total)
	return result
}

// QuizAttempt is a generated quiz together with its single submission.
type QuizAttempt struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt,omitempty"`
	Quiz        Quiz         `json:"quiz"`
	Selections  []int        `json:"selections,omitempty"`
	Result      *GradeResult `json:"result,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	SubmittedAt *time.Time   `json:"submitted_at,omitempty"`
}

func (a *QuizAttempt) Submitted() bool {
	return a.SubmittedAt != nil
}

// Submit grades the attempt and locks it. Later submissions are rejected.
func (a *QuizAttempt) Submit(selections []int, now time.Time) (GradeResult, error) {
	if a.Submitted() {
		return GradeResult{}, WrapError(ErrQuizAlreadySubmitted, "submit quiz", fmt.Errorf("id=%s", a.ID))
	}
	result := a.Quiz.Grade(selections)
	a.Selections = append([]int(nil), selections...)
	a.Result = &result
	submittedAt := now.UTC()
	a.SubmittedAt = &submittedAt
	return result, nil
}
