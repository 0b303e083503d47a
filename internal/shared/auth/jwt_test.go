package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"research-backend/internal/shared/apperr"
)

const testSecret = "test-secret-0123456789-abcdefghijkl"

func TestSignAndVerifyRoundTrip(t *testing.T) {
	issuer, err := NewTokenIssuer(testSecret, 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	token, exp, err := issuer.Sign("user-1")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if d := time.Until(exp); d < DefaultTokenTTL-time.Minute || d > DefaultTokenTTL {
		t.Fatalf("expected ~7 day expiry, got %s", d)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected user id %q", claims.UserID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, time.Hour)
	past := issuer.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })

	token, _, err := past.Sign("user-1")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, apperr.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, 0)
	other, _ := NewTokenIssuer(strings.Repeat("x", 40), 0)

	token, _, err := other.Sign("user-1")
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, apperr.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsMalformedAndUnsignedTokens(t *testing.T) {
	issuer, _ := NewTokenIssuer(testSecret, 0)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	noneToken, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	for _, raw := range []string{"", "not-a-token", "a.b.c", noneToken} {
		if _, err := issuer.Verify(raw); !errors.Is(err, apperr.ErrInvalidToken) {
			t.Fatalf("Verify(%q) = %v, want ErrInvalidToken", raw, err)
		}
	}
}

func TestNewTokenIssuerRequiresSecret(t *testing.T) {
	if _, err := NewTokenIssuer("  ", 0); !errors.Is(err, apperr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
