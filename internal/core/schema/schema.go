// Package schema builds the machine-readable output shapes handed to the
// generation backend and validates parsed model output against them.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
)

// Quiz returns the schema of a quiz with exactly questionCount questions, each
// carrying choices keyed "1".."choiceCount" and an answer among those keys.
func Quiz(questionCount, choiceCount int) *openapi3.Schema {
	keys := ChoiceKeys(choiceCount)

	choices := openapi3.NewObjectSchema().
		WithMinProperties(int64(choiceCount)).
		WithMaxProperties(int64(choiceCount))
	for _, key := range keys {
		choices = choices.WithProperty(key, openapi3.NewStringSchema().WithMinLength(1))
	}
	choices.Required = keys
	choices.AdditionalProperties = openapi3.AdditionalProperties{Has: openapi3.BoolPtr(false)}

	enum := make([]any, 0, len(keys))
	for _, key := range keys {
		enum = append(enum, key)
	}

	question := openapi3.NewObjectSchema().
		WithProperty("text", openapi3.NewStringSchema().WithMinLength(1)).
		WithProperty("choices", choices).
		WithProperty("answer", openapi3.NewStringSchema().WithEnum(enum...))
	question.Required = []string{"text", "choices", "answer"}

	questions := openapi3.NewArraySchema().
		WithItems(question).
		WithMinItems(int64(questionCount)).
		WithMaxItems(int64(questionCount))

	root := openapi3.NewObjectSchema().WithProperty("questions", questions)
	root.Required = []string{"questions"}
	return root
}

// Route closes the output to the given literals.
func Route(values ...string) *openapi3.Schema {
	enum := make([]any, 0, len(values))
	for _, v := range values {
		enum = append(enum, v)
	}
	return openapi3.NewStringSchema().WithEnum(enum...)
}

// Queries describes {"queries": [count strings]}.
func Queries(count int) *openapi3.Schema {
	list := openapi3.NewArraySchema().
		WithItems(openapi3.NewStringSchema().WithMinLength(1)).
		WithMinItems(int64(count)).
		WithMaxItems(int64(count))
	root := openapi3.NewObjectSchema().WithProperty("queries", list)
	root.Required = []string{"queries"}
	return root
}

// ChoiceKeys returns "1".."n".
func ChoiceKeys(n int) []string {
	keys := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		keys = append(keys, strconv.Itoa(i))
	}
	return keys
}

// Encode renders a schema as the raw JSON sent in a generation request.
func Encode(s *openapi3.Schema) (json.RawMessage, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return raw, nil
}

// Validate decodes payload generically and checks it against s.
func Validate(s *openapi3.Schema, payload []byte) error {
	var value any
	if err := json.Unmarshal(payload, &value); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if err := s.VisitJSON(value); err != nil {
		return err
	}
	return nil
}
