package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/vault-quizbot/internal/config"
	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/vault-quizbot/internal/observability/metrics"
)

const (
	serviceName     = "api"
	maxRequestBytes = 4 << 20
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Deps are the inbound ports served over HTTP. Queue and Metrics are
// optional: without a queue reindexing runs inside the request.
type Deps struct {
	Indexer   ports.VaultIndexer
	Queue     ports.IndexQueue
	Assistant ports.Assistant
	Quizzes   ports.QuizService
	Vault     *localfs.Vault
	Metrics   *metrics.HTTPServerMetrics
}

type Router struct {
	cfg  config.Config
	deps Deps
}

func NewRouter(cfg config.Config, deps Deps) *Router {
	return &Router{cfg: cfg, deps: deps}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}
	mux.HandleFunc("POST /v1/index", rt.reindex)
	mux.HandleFunc("POST /v1/ask", rt.ask)
	mux.HandleFunc("POST /v1/quizzes", rt.createQuiz)
	mux.HandleFunc("GET /v1/quizzes/{quizID}", rt.getQuiz)
	mux.HandleFunc("POST /v1/quizzes/{quizID}/submit", rt.submitQuiz)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = recoverMiddleware(handler)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) reindex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if !rt.decode(w, r, &req, true) {
		return
	}
	collection := strings.TrimSpace(req.Collection)
	if collection == "" {
		collection = rt.cfg.Collection
	}

	if rt.deps.Queue != nil {
		if err := rt.deps.Queue.PublishIndexRequested(r.Context(), collection); err != nil {
			rt.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued", "collection": collection})
		return
	}

	report, err := rt.deps.Indexer.IndexVault(r.Context(), collection)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if !rt.decode(w, r, &req, false) {
		return
	}

	started := time.Now()
	answer, err := rt.deps.Assistant.Ask(r.Context(), req.Prompt)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordAsk(serviceName, string(answer.Route), len(answer.Sources), time.Since(started))
	}
	writeJSON(w, http.StatusOK, newAskResponse(answer))
}

func (rt *Router) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !rt.decode(w, r, &req, false) {
		return
	}

	var content ports.ContentProvider = ports.StaticContent{Selection: req.Selection}
	if rt.deps.Vault != nil {
		content = localfs.Content{
			Vault:     rt.deps.Vault,
			Selection: req.Selection,
			Active:    req.Note,
			Notes:     req.Notes,
		}
	}

	attempt, err := rt.deps.Quizzes.GenerateFromContent(r.Context(), content)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newQuizView(attempt))
}

func (rt *Router) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := bindQuizID(r)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	attempt, err := rt.deps.Quizzes.Get(r.Context(), quizID)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newQuizView(attempt))
}

func (rt *Router) submitQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, err := bindQuizID(r)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	var req submitQuizRequest
	if !rt.decode(w, r, &req, false) {
		return
	}

	attempt, err := rt.deps.Quizzes.Submit(r.Context(), quizID, req.Selections)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	if rt.deps.Metrics != nil && attempt.Result != nil {
		rt.deps.Metrics.RecordQuizSubmission(serviceName, attempt.Result.Score)
	}
	writeJSON(w, http.StatusOK, newQuizView(attempt))
}

func bindQuizID(r *http.Request) (string, error) {
	var quizID string
	err := runtime.BindStyledParameterWithOptions("simple", "quizID", r.PathValue("quizID"), &quizID, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind quiz id", err)
	}
	if _, err := uuid.Parse(quizID); err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "bind quiz id", fmt.Errorf("quiz id %q is not a uuid", quizID))
	}
	return quizID, nil
}

// decode reads and validates a JSON body. allowEmpty accepts a missing body.
func (rt *Router) decode(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if !(allowEmpty && errors.Is(err, io.EOF)) {
			rt.fail(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", err))
			return false
		}
	}
	if err := validate.Struct(dst); err != nil {
		rt.fail(w, r, domain.WrapError(domain.ErrInvalidInput, "validate request", err))
		return false
	}
	return true
}

func (rt *Router) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("http_handler_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeError(w, r, status, errorKind(err), err.Error())
}

func writeError(w http.ResponseWriter, r *http.Request, status int, kind, message string) {
	writeJSON(w, status, map[string]string{
		"error":      message,
		"kind":       kind,
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
