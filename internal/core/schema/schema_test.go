package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func quizPayload(questions, choices int, answer string) []byte {
	var b strings.Builder
	b.WriteString(`{"questions":[`)
	for i := 0; i < questions; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf(`{"text":"question %d","choices":{`, i+1))
		for c := 1; c <= choices; c++ {
			if c > 1 {
				b.WriteString(",")
			}
			b.WriteString(fmt.Sprintf(`"%d":"choice %d"`, c, c))
		}
		b.WriteString(fmt.Sprintf(`},"answer":"%s"}`, answer))
	}
	b.WriteString(`]}`)
	return []byte(b.String())
}

func TestQuizSchemaAcceptsWellFormedPayload(t *testing.T) {
	if err := Validate(Quiz(10, 4), quizPayload(10, 4, "3")); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestQuizSchemaRejectsWrongQuestionCount(t *testing.T) {
	if err := Validate(Quiz(10, 4), quizPayload(9, 4, "1")); err == nil {
		t.Fatalf("expected question count violation")
	}
}

func TestQuizSchemaRejectsExtraChoice(t *testing.T) {
	if err := Validate(Quiz(2, 4), quizPayload(2, 5, "1")); err == nil {
		t.Fatalf("expected choice count violation")
	}
}

func TestQuizSchemaRejectsAnswerOutsideChoices(t *testing.T) {
	if err := Validate(Quiz(2, 4), quizPayload(2, 4, "5")); err == nil {
		t.Fatalf("expected answer enum violation")
	}
}

func TestQuizSchemaRejectsEmptyQuestions(t *testing.T) {
	if err := Validate(Quiz(10, 4), []byte(`{"questions": []}`)); err == nil {
		t.Fatalf("expected violation for empty questions")
	}
}

func TestEncodeQuizSchemaWireShape(t *testing.T) {
	raw, err := Encode(Quiz(3, 2))
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("decode encoded schema: %v", err)
	}
	if decoded["type"] != "object" {
		t.Fatalf("expected object root type, got %v", decoded["type"])
	}
	props, _ := decoded["properties"].(map[string]any)
	questions, _ := props["questions"].(map[string]any)
	if questions["minItems"] != float64(3) || questions["maxItems"] != float64(3) {
		t.Fatalf("expected item bounds of 3, got %v/%v", questions["minItems"], questions["maxItems"])
	}
}

func TestRouteSchemaClosesEnum(t *testing.T) {
	s := Route("generate", "quiz")
	if err := Validate(s, []byte(`"quiz"`)); err != nil {
		t.Fatalf("expected quiz to validate, got %v", err)
	}
	if err := Validate(s, []byte(`"summarize"`)); err == nil {
		t.Fatalf("expected enum violation")
	}
}

func TestQueriesSchema(t *testing.T) {
	s := Queries(2)
	if err := Validate(s, []byte(`{"queries":["a","b"]}`)); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if err := Validate(s, []byte(`{"queries":["a"]}`)); err == nil {
		t.Fatalf("expected count violation")
	}
}
