package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimitSeparatesGroupsAndPrincipals(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(userIDKey, c.GetHeader("X-Test-User"))
		c.Next()
	})
	r.POST("/api/chat/ask", RateLimit("ask", RateLimitRule{PerMinute: 2}, limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/auth/login", RateLimit("auth", RateLimitRule{PerMinute: 10}, limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	do := func(path, user string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.Header.Set("X-Test-User", user)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		return resp.Code
	}

	for i := 0; i < 2; i++ {
		if code := do("/api/chat/ask", "alice"); code != http.StatusOK {
			t.Fatalf("ask %d expected 200, got %d", i+1, code)
		}
	}
	if code := do("/api/chat/ask", "alice"); code != http.StatusTooManyRequests {
		t.Fatalf("third ask expected 429, got %d", code)
	}
	if code := do("/api/chat/ask", "bob"); code != http.StatusOK {
		t.Fatalf("other principal expected 200, got %d", code)
	}
	if code := do("/api/auth/login", "alice"); code != http.StatusOK {
		t.Fatalf("other group expected 200, got %d", code)
	}

	now = now.Add(31 * time.Second)
	if code := do("/api/chat/ask", "alice"); code != http.StatusOK {
		t.Fatalf("expected bucket to refill, got %d", code)
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.GET("/api/limited", RateLimit("default", RateLimitRule{PerMinute: 1}, limiter), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, httptest.NewRequest(http.MethodGet, "/api/limited", nil))
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, httptest.NewRequest(http.MethodGet, "/api/limited", nil))
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	retryAfter, err := strconv.Atoi(resp2.Header().Get("Retry-After"))
	if err != nil || retryAfter < 59 || retryAfter > 61 {
		t.Fatalf("expected Retry-After near 60s, got %q", resp2.Header().Get("Retry-After"))
	}

	var payload struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" {
		t.Fatalf("expected rate_limited, got %q", payload.Error.Code)
	}
	if _, ok := payload.Error.Details["retry_after_ms"]; !ok {
		t.Fatalf("expected retry_after_ms in details")
	}
}

func TestRateLimitDisabledRule(t *testing.T) {
	limiter := NewRateLimiter(nil)
	for i := 0; i < 100; i++ {
		if ok, _ := limiter.Allow("k", RateLimitRule{}); !ok {
			t.Fatal("disabled rule must always allow")
		}
	}
}
