package documents

import (
	"context"

	"research-backend/internal/shared/apperr"
)

var (
	ErrNotFound = apperr.ErrNotFound
	// ErrUnsupportedFormat is returned for uploads that are not PDFs.
	ErrUnsupportedFormat = apperr.Validation("Only PDF files are supported")
)

// Repo persists documents. Every read and delete is scoped to the owner;
// a document owned by someone else is reported as ErrNotFound.
type Repo interface {
	Create(ctx context.Context, doc Document) error
	Get(ctx context.Context, ownerID, id string) (Document, error)
	// List returns owned documents matching f, newest first.
	List(ctx context.Context, ownerID string, f Filter, limit int) ([]Document, error)
	// Search matches query against title or text content, newest first.
	Search(ctx context.Context, ownerID, query string, f Filter, limit int) ([]Document, error)
	Delete(ctx context.Context, ownerID, id string) error
	Summarize(ctx context.Context, ownerID string) (Summary, error)
}

// ChatPurger removes the chat transcript attached to a document.
type ChatPurger interface {
	DeleteByDocument(ctx context.Context, ownerID, documentID string) error
}
