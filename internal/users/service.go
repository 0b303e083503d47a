package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"research-backend/internal/shared/apperr"
)

const defaultStoreTimeout = 10 * time.Second

type Service struct {
	Repo         Repo
	StoreTimeout time.Duration
	Now          func() time.Time
}

func NewService(repo Repo, storeTimeout time.Duration) *Service {
	return &Service{Repo: repo, StoreTimeout: storeTimeout, Now: time.Now}
}

// Create stores a new user with a generated id.
func (s *Service) Create(ctx context.Context, email, name, passwordHash string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC().Truncate(time.Millisecond),
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	if err := s.Repo.Create(ctx, user); err != nil {
		return User{}, apperr.Storage("users.create", err)
	}
	return user, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	user, err := s.Repo.GetByID(ctx, userID)
	return user, apperr.Storage("users.get", err)
}

func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	user, err := s.Repo.GetByEmail(ctx, email)
	return user, apperr.Storage("users.get_by_email", err)
}

// FindOrCreate returns the user registered under email, creating a
// password-less account when none exists.
func (s *Service) FindOrCreate(ctx context.Context, email, name string) (User, bool, error) {
	user, err := s.GetByEmail(ctx, email)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, false, err
	}
	user, err = s.Create(ctx, email, name, "")
	if errors.Is(err, ErrDuplicateEmail) {
		// Lost a race with a concurrent sign-in.
		user, err = s.GetByEmail(ctx, email)
		return user, false, err
	}
	return user, err == nil, err
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.StoreTimeout
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
