package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kirillkom/vault-quizbot/internal/core/domain"
	"github.com/kirillkom/vault-quizbot/internal/core/ports"
)

const maxNoteBytes = 8 << 20

// Vault gives read-only access to notes below a root directory.
type Vault struct {
	root      string
	extractor ports.TextExtractor
}

func New(root string, extractor ports.TextExtractor) (*Vault, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("vault root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve vault root: %w", err)
	}
	return &Vault{root: abs, extractor: extractor}, nil
}

func (v *Vault) Root() string {
	return v.root
}

// Resolve maps a vault-relative note path to an absolute one and refuses
// paths that leave the vault.
func (v *Vault) Resolve(rel string) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve note", errors.New("empty path"))
	}
	if filepath.IsAbs(rel) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve note", fmt.Errorf("absolute path %q", rel))
	}
	full := filepath.Join(v.root, filepath.Clean(rel))
	inside, err := filepath.Rel(v.root, full)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve note", fmt.Errorf("path %q escapes the vault", rel))
	}
	return full, nil
}

// Open returns a reader over one note.
func (v *Vault) Open(_ context.Context, rel string) (io.ReadCloser, error) {
	path, err := v.Resolve(rel)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open note: %w", err)
	}
	return f, nil
}

// ReadNote returns the text of one note through the configured extractor.
func (v *Vault) ReadNote(ctx context.Context, rel string) (string, error) {
	path, err := v.Resolve(rel)
	if err != nil {
		return "", err
	}
	if v.extractor != nil {
		return v.extractor.Extract(ctx, path)
	}

	f, err := v.Open(ctx, rel)
	if err != nil {
		return "", err
	}
	defer f.Close()
	raw, err := io.ReadAll(io.LimitReader(f, maxNoteBytes))
	if err != nil {
		return "", fmt.Errorf("read note: %w", err)
	}
	return string(raw), nil
}

// Content implements ports.ContentProvider for a caller that names a
// selection and/or vault notes explicitly. The selection wins over the
// active note; Notes form the selected document set.
type Content struct {
	Vault     *Vault
	Selection string
	Active    string
	Notes     []string
}

func (c Content) CurrentSelectionOrDocument(ctx context.Context) (string, error) {
	if strings.TrimSpace(c.Selection) != "" {
		return c.Selection, nil
	}
	if strings.TrimSpace(c.Active) == "" || c.Vault == nil {
		return "", nil
	}
	return c.Vault.ReadNote(ctx, c.Active)
}

func (c Content) SelectedDocumentSet(ctx context.Context) ([]string, error) {
	if len(c.Notes) == 0 || c.Vault == nil {
		return nil, nil
	}
	out := make([]string, 0, len(c.Notes))
	for _, rel := range c.Notes {
		text, err := c.Vault.ReadNote(ctx, rel)
		if err != nil {
			return nil, err
		}
		out = append(out, text)
	}
	return out, nil
}
