package domain

import "encoding/json"

// GenerationRequest is handed to the inference backend as is. Format is either
// nil (free text), the literal "json" or a schema document.
type GenerationRequest struct {
	ModelID string
	Prompt  string
	Format  json.RawMessage
}

func (r GenerationRequest) Constrained() bool {
	return len(r.Format) > 0
}

// GenerationMode selects how the expected output shape is communicated.
type GenerationMode string

const (
	ModeUnstructured GenerationMode = "unstructured"
	ModeSchema       GenerationMode = "schema"
)

type QuizOptions struct {
	QuestionCount int `json:"question_count"`
	ChoiceCount   int `json:"choice_count"`
}
