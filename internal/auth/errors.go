package auth

import "research-backend/internal/shared/apperr"

var (
	ErrDuplicateEmail     = apperr.ErrDuplicateIdentity
	ErrInvalidCredentials = apperr.ErrInvalidCredentials
	ErrInvalidToken       = apperr.ErrInvalidToken
	ErrTokenExpired       = apperr.ErrTokenExpired
	ErrUserNotFound       = apperr.ErrUserNotFound
)
