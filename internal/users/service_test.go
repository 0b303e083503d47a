package users

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"research-backend/internal/shared/apperr"
)

func TestServiceCreateAndLookup(t *testing.T) {
	svc := NewService(NewMemoryRepo(), time.Second)
	ctx := context.Background()

	user, err := svc.Create(ctx, "test@example.com", " Test User ", "hash")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == "" || user.Name != "Test User" || user.CreatedAt.IsZero() {
		t.Fatalf("unexpected user %+v", user)
	}

	if _, err := svc.Create(ctx, "test@example.com", "Other", "hash"); !errors.Is(err, apperr.ErrDuplicateIdentity) {
		t.Fatalf("expected duplicate identity, got %v", err)
	}
	// Emails are exact-match identity keys.
	if _, err := svc.Create(ctx, "Test@example.com", "Other", "hash"); err != nil {
		t.Fatalf("expected differently-cased email to register, got %v", err)
	}

	byID, err := svc.GetByID(ctx, user.ID)
	if err != nil || byID.Email != "test@example.com" {
		t.Fatalf("GetByID = %+v, %v", byID, err)
	}
	if _, err := svc.GetByID(ctx, "missing"); !errors.Is(err, apperr.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestFindOrCreate(t *testing.T) {
	svc := NewService(NewMemoryRepo(), time.Second)
	ctx := context.Background()

	first, created, err := svc.FindOrCreate(ctx, "g@example.com", "Google User")
	if err != nil || !created {
		t.Fatalf("FindOrCreate first = %v, %v", created, err)
	}
	if first.PasswordHash != "" {
		t.Fatal("google-created users must not carry a password hash")
	}
	second, created, err := svc.FindOrCreate(ctx, "g@example.com", "Renamed")
	if err != nil || created {
		t.Fatalf("FindOrCreate second = %v, %v", created, err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, second.ID)
	}
}

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	raw, err := json.Marshal(User{ID: "u1", Email: "a@example.com", Name: "Ada", PasswordHash: "secret-hash"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "secret-hash") || strings.Contains(string(raw), "password") {
		t.Fatalf("password hash leaked: %s", raw)
	}
	if !strings.Contains(string(raw), `"created_at"`) {
		t.Fatalf("expected snake_case created_at: %s", raw)
	}
}
