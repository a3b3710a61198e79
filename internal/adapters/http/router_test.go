package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return out
}

func TestReindexRunsInlineWithoutQueue(t *testing.T) {
	indexer := &indexerFake{}
	handler := newTestHandler(testConfig(), Deps{Indexer: indexer})

	res := doJSON(t, handler, http.MethodPost, "/v1/index", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if len(indexer.collections) != 1 || indexer.collections[0] != "alpine-vault" {
		t.Fatalf("expected default collection, got %v", indexer.collections)
	}
	if body := decodeBody(t, res); body["chunks"] != float64(7) || body["collection"] != "alpine-vault" {
		t.Fatalf("unexpected report %v", body)
	}
}

func TestReindexPublishesWhenQueueConfigured(t *testing.T) {
	indexer := &indexerFake{}
	queue := &queueFake{}
	handler := newTestHandler(testConfig(), Deps{Indexer: indexer, Queue: queue})

	res := doJSON(t, handler, http.MethodPost, "/v1/index", map[string]string{"collection": "physics"})
	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if len(queue.published) != 1 || queue.published[0] != "physics" || len(indexer.collections) != 0 {
		t.Fatalf("expected publish only, got queue=%v indexer=%v", queue.published, indexer.collections)
	}
}

func TestReindexMapsUnavailableTo503(t *testing.T) {
	queue := &queueFake{err: domain.WrapError(domain.ErrServiceUnavailable, "nats publish", errors.New("no servers"))}
	res := doJSON(t, newTestHandler(testConfig(), Deps{Queue: queue}), http.MethodPost, "/v1/index", nil)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if body := decodeBody(t, res); body["kind"] != "service_unavailable" || body["request_id"] == "" {
		t.Fatalf("unexpected error body %v", body)
	}
}

func TestAskReturnsRoutedAnswerWithoutAnswerKeys(t *testing.T) {
	answer := &domain.Answer{
		Route:   domain.RouteQuiz,
		Quiz:    sampleAttempt(),
		Queries: []string{"quiz me on the alps"},
		Sources: []domain.ScoredDocument{{Text: "Mont Blanc is 4808 m", FusedScore: 0.016}},
	}
	handler := newTestHandler(testConfig(), Deps{Assistant: assistantFake{answer: answer}})

	res := doJSON(t, handler, http.MethodPost, "/v1/ask", map[string]string{"prompt": "quiz me on the alps"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var body askResponse
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Route != domain.RouteQuiz || body.Quiz == nil || len(body.Quiz.Questions) != 2 {
		t.Fatalf("unexpected answer %+v", body)
	}
	if body.Quiz.Questions[0].Answer != "" {
		t.Fatalf("answer key leaked before submission")
	}
	if body.Quiz.Questions[0].Choices[1].Label != "B" || body.Quiz.Questions[0].Choices[1].Text != "Mont Blanc" {
		t.Fatalf("unexpected choices %+v", body.Quiz.Questions[0].Choices)
	}
}

func TestAskValidatesPrompt(t *testing.T) {
	handler := newTestHandler(testConfig(), Deps{Assistant: assistantFake{}})
	for _, body := range []any{map[string]string{}, map[string]any{"prompt": "x", "extra": true}} {
		res := doJSON(t, handler, http.MethodPost, "/v1/ask", body)
		if res.Code != http.StatusBadRequest {
			t.Fatalf("body %v: expected 400, got %d", body, res.Code)
		}
	}
}

func TestAskMapsGenerationFailures(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.WrapError(domain.ErrUnrecognizedRoute, "route", errors.New(`"summarize"`)), http.StatusBadGateway},
		{domain.WrapError(domain.ErrMalformedOutput, "quiz", errors.New("no braces")), http.StatusBadGateway},
		{domain.NewSchemaViolation("expected 10 questions", "{}"), http.StatusBadGateway},
		{domain.WrapError(domain.ErrNoContentSelected, "quiz", errors.New("empty context")), http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		handler := newTestHandler(testConfig(), Deps{Assistant: assistantFake{err: tc.err}})
		res := doJSON(t, handler, http.MethodPost, "/v1/ask", map[string]string{"prompt": "hello"})
		if res.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, res.Code)
		}
	}
}

func TestCreateQuizUsesSelection(t *testing.T) {
	quizzes := &quizServiceFake{attempt: sampleAttempt()}
	handler := newTestHandler(testConfig(), Deps{Quizzes: quizzes})

	res := doJSON(t, handler, http.MethodPost, "/v1/quizzes", map[string]string{"selection": "Alps notes"})
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	static, ok := quizzes.content.(ports.StaticContent)
	if !ok || static.Selection != "Alps notes" {
		t.Fatalf("unexpected content provider %#v", quizzes.content)
	}
}

func TestCreateQuizWithoutContentIs422(t *testing.T) {
	quizzes := &quizServiceFake{err: domain.WrapError(domain.ErrNoContentSelected, "generate quiz", errors.New("nothing selected"))}
	res := doJSON(t, newTestHandler(testConfig(), Deps{Quizzes: quizzes}), http.MethodPost, "/v1/quizzes", map[string]string{})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", res.Code)
	}
}

func TestGetQuizBindsID(t *testing.T) {
	handler := newTestHandler(testConfig(), Deps{Quizzes: &quizServiceFake{attempt: sampleAttempt()}})

	if res := doJSON(t, handler, http.MethodGet, "/v1/quizzes/not-a-uuid", nil); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", res.Code)
	}
	missing := "00000000-0000-4000-8000-000000000000"
	if res := doJSON(t, handler, http.MethodGet, "/v1/quizzes/"+missing, nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	res := doJSON(t, handler, http.MethodGet, "/v1/quizzes/"+testQuizID, nil)
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), "Highest Alpine peak?") {
		t.Fatalf("unexpected response %d %s", res.Code, res.Body.String())
	}
}

func TestSubmitQuizGradesOnce(t *testing.T) {
	quizzes := &quizServiceFake{attempt: sampleAttempt()}
	handler := newTestHandler(testConfig(), Deps{Quizzes: quizzes})
	path := "/v1/quizzes/" + testQuizID + "/submit"

	res := doJSON(t, handler, http.MethodPost, path, map[string]any{"selections": []int{2, 2}})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var view quizView
	if err := json.Unmarshal(res.Body.Bytes(), &view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !view.Submitted || view.Result == nil || view.Result.Score != 50 {
		t.Fatalf("unexpected graded view %+v", view)
	}
	if view.Questions[0].Answer != "2" {
		t.Fatalf("answer keys must be shown after submission")
	}
	if view.Result.Summary != "Score: 50% - Answered 1 out of 2 correctly" {
		t.Fatalf("unexpected summary %q", view.Result.Summary)
	}

	again := doJSON(t, handler, http.MethodPost, path, map[string]any{"selections": []int{2, 1}})
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409 on second submit, got %d", again.Code)
	}
}

func TestSubmitQuizValidatesSelections(t *testing.T) {
	handler := newTestHandler(testConfig(), Deps{Quizzes: &quizServiceFake{attempt: sampleAttempt()}})
	path := "/v1/quizzes/" + testQuizID + "/submit"
	for _, body := range []any{map[string]any{}, map[string]any{"selections": []int{-1}}} {
		if res := doJSON(t, handler, http.MethodPost, path, body); res.Code != http.StatusBadRequest {
			t.Fatalf("body %v: expected 400, got %d", body, res.Code)
		}
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	handler := newTestHandler(testConfig(), Deps{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK || res.Header().Get(requestIDHeader) != "req-42" {
		t.Fatalf("unexpected response %d %q", res.Code, res.Header().Get(requestIDHeader))
	}
}
