package ports

import "context"

// ContentProvider gives access to whatever the host currently has open. An
// empty string or nil slice means nothing is available.
type ContentProvider interface {
	CurrentSelectionOrDocument(ctx context.Context) (string, error)
	SelectedDocumentSet(ctx context.Context) ([]string, error)
}

// StaticContent is a ContentProvider over fixed values, used when the caller
// passes content inline.
type StaticContent struct {
	Selection string
	Documents []string
}

func (s StaticContent) CurrentSelectionOrDocument(context.Context) (string, error) {
	return s.Selection, nil
}

func (s StaticContent) SelectedDocumentSet(context.Context) ([]string, error) {
	return s.Documents, nil
}
