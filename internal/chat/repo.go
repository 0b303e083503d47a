package chat

import (
	"context"
	"errors"

	"research-backend/internal/shared/apperr"
)

var (
	ErrNotFound         = apperr.ErrNotFound
	ErrGenerationFailed = apperr.ErrGenerationFailed
	ErrNotConfigured    = apperr.ErrConfiguration
	ErrEmptyQuestion    = apperr.Validation("question is required")

	errDocumentUnavailable = errors.New("document file is unavailable")
)

// Repo persists chat messages.
type Repo interface {
	Append(ctx context.Context, msg Message) error
	// History returns the oldest limit messages for the document and owner,
	// in chronological order.
	History(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error)
	// Latest returns the newest limit messages, in chronological order.
	Latest(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error)
	DeleteByDocument(ctx context.Context, ownerID, documentID string) error
	Count(ctx context.Context, ownerID string) (Counts, error)
}
