package openai

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"research-backend/internal/llm"
)

type capturedRequest struct {
	Model    string `json:"model"`
	User     string `json:"user"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewClient(Config{APIKey: "test-key", Model: "test-model", BaseURL: srv.URL + "/"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{Model: "gpt-4o-mini"})
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestCompleteSendsTranscriptAndFile(t *testing.T) {
	var got capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  Acme Corp  "}}],"usage":{"total_tokens":12}}`))
	})

	answer, err := client.Complete(t.Context(), llm.Request{
		SystemPrompt: "You are a research assistant.",
		SessionID:    "doc_d1_u1",
		History: []llm.Message{
			{Role: llm.RoleUser, Content: "hello"},
			{Role: llm.RoleAssistant, Content: "hi"},
		},
		Question: "Which company?",
		File:     &llm.File{Name: "report.pdf", MimeType: "application/pdf", Data: []byte("%PDF-1.4")},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if answer != "Acme Corp" {
		t.Fatalf("unexpected answer %q", answer)
	}
	if got.Model != "test-model" || got.User != "doc_d1_u1" {
		t.Fatalf("unexpected model/user %q %q", got.Model, got.User)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got.Messages))
	}
	roles := []string{"system", "user", "assistant", "user"}
	for i, role := range roles {
		if got.Messages[i].Role != role {
			t.Fatalf("message %d role = %q, want %q", i, got.Messages[i].Role, role)
		}
	}

	var parts []contentPart
	if err := json.Unmarshal(got.Messages[3].Content, &parts); err != nil {
		t.Fatalf("last message content is not a part list: %v", err)
	}
	if len(parts) != 2 || parts[0].Type != "file" || parts[1].Type != "text" {
		t.Fatalf("unexpected parts %+v", parts)
	}
	wantData := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString([]byte("%PDF-1.4"))
	if parts[0].File == nil || parts[0].File.FileData != wantData || parts[0].File.Filename != "report.pdf" {
		t.Fatalf("unexpected file part %+v", parts[0].File)
	}
	if parts[1].Text != "Which company?" {
		t.Fatalf("unexpected question %q", parts[1].Text)
	}
}

func TestCompleteWithoutFileSendsPlainText(t *testing.T) {
	var got capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})
	if _, err := client.Complete(t.Context(), llm.Request{Question: "ping"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(got.Messages) != 1 || string(got.Messages[0].Content) != `"ping"` {
		t.Fatalf("unexpected messages %+v", got.Messages)
	}
}

func TestCompleteErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "status error",
			status: http.StatusTooManyRequests,
			body:   `{"error":{"message":"rate limited","type":"requests"}}`,
			check: func(t *testing.T, err error) {
				var se *StatusError
				if !errors.As(err, &se) || se.StatusCode != http.StatusTooManyRequests || se.Message != "rate limited" {
					t.Fatalf("unexpected error %v", err)
				}
			},
		},
		{
			name:   "empty content",
			status: http.StatusOK,
			body:   `{"choices":[{"message":{"content":"   "}}]}`,
			check: func(t *testing.T, err error) {
				if !errors.Is(err, llm.ErrEmptyAnswer) {
					t.Fatalf("expected ErrEmptyAnswer, got %v", err)
				}
			},
		},
		{
			name:   "missing choices",
			status: http.StatusOK,
			body:   `{"choices":[]}`,
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "missing choices") {
					t.Fatalf("unexpected error %v", err)
				}
			},
		},
		{
			name:   "error field",
			status: http.StatusOK,
			body:   `{"error":{"message":"bad model","type":"invalid_request_error"}}`,
			check: func(t *testing.T, err error) {
				if err == nil || !strings.Contains(err.Error(), "bad model") {
					t.Fatalf("unexpected error %v", err)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Complete(t.Context(), llm.Request{Question: "q"})
			tt.check(t, err)
		})
	}
}
