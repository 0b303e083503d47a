package users

import (
	"context"

	"research-backend/internal/shared/apperr"
)

var (
	ErrNotFound       = apperr.ErrUserNotFound
	ErrDuplicateEmail = apperr.ErrDuplicateIdentity
)

// Repo persists users. Create must fail with ErrDuplicateEmail when the
// exact email is already registered.
type Repo interface {
	Create(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
