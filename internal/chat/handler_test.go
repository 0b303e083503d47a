package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"research-backend/internal/llm"
	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/server/middleware"
)

type tokenAuthenticator struct{}

func (tokenAuthenticator) Authenticate(ctx context.Context, token string) (middleware.Principal, error) {
	id, ok := strings.CutPrefix(token, "token-")
	if !ok || id == "" {
		return middleware.Principal{}, apperr.ErrInvalidToken
	}
	return middleware.Principal{ID: id}, nil
}

func newTestRouter(t *testing.T, f *fixture) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api")
	api.Use(middleware.Auth(tokenAuthenticator{}))
	NewHandler(f.chat).RegisterRoutes(api, func(c *gin.Context) { c.Next() })
	return r
}

func send(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer token-"+user)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestAskAndHistoryOverHTTP(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(t, f)

	resp := send(r, http.MethodPost, "/api/chat/ask", "u1", `{"document_id":"`+f.doc.ID+`","question":"Which company?"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("ask expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var ask askResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &ask); err != nil || ask.Answer != "Acme Corp" {
		t.Fatalf("unexpected ask response %s", resp.Body.String())
	}

	resp = send(r, http.MethodGet, "/api/chat/"+f.doc.ID, "u1", "")
	var msgs []map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(msgs) != 2 || msgs[0]["role"] != RoleUser || msgs[1]["role"] != RoleAssistant {
		t.Fatalf("unexpected history %s", resp.Body.String())
	}
	for _, field := range []string{"id", "document_id", "user_id", "role", "content", "timestamp"} {
		if _, ok := msgs[0][field]; !ok {
			t.Fatalf("missing field %q", field)
		}
	}
}

func TestAskErrorsOverHTTP(t *testing.T) {
	f := newFixture(t)
	r := newTestRouter(t, f)

	tests := []struct {
		name    string
		user    string
		body    string
		setup   func()
		status  int
		code    string
		message string
	}{
		{name: "foreign document", user: "u2", body: `{"document_id":"` + f.doc.ID + `","question":"q"}`, status: http.StatusNotFound, code: "not_found"},
		{name: "missing document id", user: "u1", body: `{"question":"q"}`, status: http.StatusBadRequest, code: "validation_error"},
		{name: "empty question", user: "u1", body: `{"document_id":"` + f.doc.ID + `","question":" "}`, status: http.StatusBadRequest, code: "validation_error"},
		{
			name: "provider failure", user: "u1", body: `{"document_id":"` + f.doc.ID + `","question":"q"}`,
			setup:  func() { f.llm.err = errors.New("quota exceeded for model") },
			status: http.StatusInternalServerError, code: "generation_failed", message: "Error processing question: quota exceeded for model",
		},
		{
			name: "no api key", user: "u1", body: `{"document_id":"` + f.doc.ID + `","question":"q"}`,
			setup:  func() { f.chat.LLM = llm.UnconfiguredClient{} },
			status: http.StatusInternalServerError, code: "llm_not_configured",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			resp := send(r, http.MethodPost, "/api/chat/ask", tt.user, tt.body)
			if resp.Code != tt.status || !strings.Contains(resp.Body.String(), `"code":"`+tt.code+`"`) {
				t.Fatalf("expected %d/%s, got %d: %s", tt.status, tt.code, resp.Code, resp.Body.String())
			}
			if tt.message != "" {
				var body struct {
					Error struct {
						Message string `json:"message"`
					} `json:"error"`
				}
				if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil || body.Error.Message != tt.message {
					t.Fatalf("expected message %q, got %s", tt.message, resp.Body.String())
				}
			}
		})
	}
}
