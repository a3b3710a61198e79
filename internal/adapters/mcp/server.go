// Package mcpadapter exposes the assistant as MCP tools over stdio.
package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/storage/localfs"
)

type Deps struct {
	Indexer    ports.VaultIndexer
	Assistant  ports.Assistant
	Quizzes    ports.QuizService
	Vault      *localfs.Vault
	Collection string
}

type Server struct {
	deps Deps
	mcp  *server.MCPServer
}

func New(version string, deps Deps) *Server {
	s := &Server{
		deps: deps,
		mcp:  server.NewMCPServer("vault-quizbot", version, server.WithToolCapabilities(false)),
	}

	s.mcp.AddTool(mcp.NewTool("ask",
		mcp.WithDescription("Answer a request from the indexed vault, or build a quiz when the request asks for one."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("User request")),
	), s.handleAsk)

	s.mcp.AddTool(mcp.NewTool("generate_quiz",
		mcp.WithDescription("Generate a multiple choice quiz from a text selection or vault notes."),
		mcp.WithString("selection", mcp.Description("Inline text to quiz on")),
		mcp.WithString("note", mcp.Description("Vault-relative path of the active note")),
		mcp.WithArray("notes", mcp.Description("Vault-relative note paths"), mcp.WithStringItems()),
	), s.handleGenerateQuiz)

	s.mcp.AddTool(mcp.NewTool("submit_quiz",
		mcp.WithDescription("Grade a generated quiz. Each quiz accepts one submission."),
		mcp.WithString("quiz_id", mcp.Required(), mcp.Description("Quiz id returned by generate_quiz")),
		mcp.WithArray("selections", mcp.Required(), mcp.Description("1-based choice per question, 0 for unanswered"), mcp.WithNumberItems()),
	), s.handleSubmitQuiz)

	s.mcp.AddTool(mcp.NewTool("reindex",
		mcp.WithDescription("Rebuild the vault index from scratch."),
		mcp.WithString("collection", mcp.Description("Collection name, defaults to the configured one")),
	), s.handleReindex)

	return s
}

func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) handleAsk(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := s.deps.Assistant.Ask(ctx, prompt)
	if err != nil {
		return toolError("ask", err), nil
	}
	if answer.Route == domain.RouteQuiz && answer.Quiz != nil {
		return jsonResult(renderQuiz(answer.Quiz))
	}
	return mcp.NewToolResultText(answer.Text), nil
}

func (s *Server) handleGenerateQuiz(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content := localfs.Content{
		Vault:     s.deps.Vault,
		Selection: req.GetString("selection", ""),
		Active:    req.GetString("note", ""),
		Notes:     req.GetStringSlice("notes", nil),
	}
	attempt, err := s.deps.Quizzes.GenerateFromContent(ctx, content)
	if err != nil {
		return toolError("generate_quiz", err), nil
	}
	return jsonResult(renderQuiz(attempt))
}

func (s *Server) handleSubmitQuiz(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	quizID, err := req.RequireString("quiz_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	selections := req.GetIntSlice("selections", nil)
	attempt, err := s.deps.Quizzes.Submit(ctx, quizID, selections)
	if err != nil {
		return toolError("submit_quiz", err), nil
	}
	return jsonResult(attempt.Result)
}

func (s *Server) handleReindex(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	collection := strings.TrimSpace(req.GetString("collection", ""))
	if collection == "" {
		collection = s.deps.Collection
	}
	report, err := s.deps.Indexer.IndexVault(ctx, collection)
	if err != nil {
		return toolError("reindex", err), nil
	}
	return jsonResult(report)
}

type renderedQuestion struct {
	Number  int      `json:"number"`
	Text    string   `json:"text"`
	Choices []string `json:"choices"`
}

type renderedQuiz struct {
	ID        string             `json:"id"`
	Questions []renderedQuestion `json:"questions"`
}

// renderQuiz lists choices as "A. text" lines and leaves out answer keys.
func renderQuiz(attempt *domain.QuizAttempt) renderedQuiz {
	out := renderedQuiz{ID: attempt.ID}
	for i, q := range attempt.Quiz.Questions {
		rq := renderedQuestion{Number: i + 1, Text: q.Text}
		for _, key := range q.ChoiceKeys() {
			rq.Choices = append(rq.Choices, fmt.Sprintf("%s. %s", domain.ChoiceLabel(key), q.Choices[key]))
		}
		out.Questions = append(out.Questions, rq)
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

func toolError(tool string, err error) *mcp.CallToolResult {
	slog.Warn("mcp_tool_failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(err.Error())
}
