package auth

import (
	"context"
	"errors"
	"strings"

	"research-backend/internal/shared/apperr"
	sharedauth "research-backend/internal/shared/auth"
	"research-backend/internal/shared/server/middleware"
	"research-backend/internal/users"
)

// Session is a freshly issued token and the user it identifies.
type Session struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}

// Service registers users, verifies credentials and resolves tokens.
type Service struct {
	Users  *users.Service
	Tokens *sharedauth.TokenIssuer
}

func NewService(usersSvc *users.Service, tokens *sharedauth.TokenIssuer) *Service {
	return &Service{Users: usersSvc, Tokens: tokens}
}

// Register creates an account for an unused email and signs the user in.
func (s *Service) Register(ctx context.Context, email, password, name string) (Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" || strings.TrimSpace(name) == "" {
		return Session{}, apperr.Validation("email, password and name are required")
	}

	if _, err := s.Users.GetByEmail(ctx, email); err == nil {
		return Session{}, ErrDuplicateEmail
	} else if !errors.Is(err, users.ErrNotFound) {
		return Session{}, err
	}

	hash, err := sharedauth.HashPassword(password)
	if err != nil {
		return Session{}, err
	}
	user, err := s.Users.Create(ctx, email, name, hash)
	if err != nil {
		return Session{}, err
	}
	return s.issue(user)
}

// Login checks credentials. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	user, err := s.Users.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, users.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if !sharedauth.CheckPassword(user.PasswordHash, password) {
		return Session{}, ErrInvalidCredentials
	}
	return s.issue(user)
}

// IssueFor signs a token for an already resolved user.
func (s *Service) IssueFor(user users.User) (Session, error) {
	return s.issue(user)
}

// Authenticate resolves a bearer token to the user it was issued for.
func (s *Service) Authenticate(ctx context.Context, token string) (users.User, error) {
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return users.User{}, err
	}
	return s.Users.GetByID(ctx, claims.UserID)
}

// Authenticator adapts the service to the gateway's auth middleware.
func (s *Service) Authenticator() middleware.Authenticator {
	return principalResolver{svc: s}
}

func (s *Service) issue(user users.User) (Session, error) {
	token, _, err := s.Tokens.Sign(user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}

type principalResolver struct {
	svc *Service
}

func (r principalResolver) Authenticate(ctx context.Context, token string) (middleware.Principal, error) {
	user, err := r.svc.Authenticate(ctx, token)
	if err != nil {
		return middleware.Principal{}, err
	}
	return middleware.Principal{ID: user.ID, Email: user.Email, Name: user.Name}, nil
}
