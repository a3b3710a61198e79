// Package extractor picks a text extractor by file extension.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/vault-quizbot/internal/infrastructure/extractor/xlsx"
)

type Router struct {
	byExt    map[string]ports.TextExtractor
	fallback ports.TextExtractor
}

// NewRouter serves .pdf and .xlsx with their binary extractors and every
// other extension as UTF-8 text.
func NewRouter() *Router {
	text := plaintext.NewExtractor()
	return &Router{
		byExt: map[string]ports.TextExtractor{
			".pdf":  pdf.NewExtractor(),
			".xlsx": xlsx.NewExtractor(),
		},
		fallback: text,
	}
}

func (r *Router) Register(ext string, extractor ports.TextExtractor) {
	r.byExt[strings.ToLower(ext)] = extractor
}

func (r *Router) Extract(ctx context.Context, path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := r.byExt[ext]
	if !ok {
		extractor = r.fallback
	}
	if extractor == nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract", fmt.Errorf("no extractor for %q", ext))
	}
	return extractor.Extract(ctx, path)
}
