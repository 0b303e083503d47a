package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds shared by the feature packages. Handlers map them to HTTP
// statuses with errors.Is; feature packages wrap causes with Wrap.
var (
	ErrValidation         = errors.New("validation error")
	ErrDuplicateIdentity  = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserNotFound       = errors.New("user not found")
	ErrNotFound           = errors.New("not found")
	ErrGenerationFailed   = errors.New("generation failed")
	ErrConfiguration      = errors.New("configuration error")
	ErrStorage            = errors.New("storage error")
)

// Wrap annotates err with an operation name while keeping kind matchable.
func Wrap(kind error, operation string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", operation, kind)
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// Storage wraps a persistence failure. Errors that already carry a known
// kind (not found, duplicate) pass through untouched.
func Storage(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrDuplicateIdentity) || errors.Is(err, ErrStorage) {
		return err
	}
	return Wrap(ErrStorage, operation, err)
}

// Detail returns the text of the cause passed to Wrap, or "" when err was
// wrapped without one.
func Detail(err error) string {
	for err != nil {
		if multi, ok := err.(interface{ Unwrap() []error }); ok {
			errs := multi.Unwrap()
			if len(errs) > 1 {
				return errs[len(errs)-1].Error()
			}
			if len(errs) == 0 {
				return ""
			}
			err = errs[0]
			continue
		}
		err = errors.Unwrap(err)
	}
	return ""
}

// Validation builds a validation error with a client-safe message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Message returns the client-facing text of a validation error.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": ")
}
