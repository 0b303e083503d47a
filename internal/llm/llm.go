package llm

import (
	"context"
	"errors"
	"fmt"

	"research-backend/internal/shared/apperr"
)

// Roles used in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one prior turn of the conversation.
type Message struct {
	Role    string
	Content string
}

// File is a document attached to the question.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Request carries everything the model needs to answer a question.
type Request struct {
	SystemPrompt string
	SessionID    string
	History      []Message
	Question     string
	File         *File
}

// Client abstracts LLM providers.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Configurable is implemented by clients that know up front whether they
// can serve requests.
type Configurable interface {
	Configured() bool
}

// Configured reports whether c can serve requests. Clients that do not
// implement Configurable are assumed ready.
func Configured(c Client) bool {
	if c == nil {
		return false
	}
	if cc, ok := c.(Configurable); ok {
		return cc.Configured()
	}
	return true
}

// ErrNotConfigured is returned when no API key was provided.
var ErrNotConfigured = fmt.Errorf("%w: LLM API key not configured", apperr.ErrConfiguration)

// ErrEmptyAnswer is returned when the provider answered with no text.
var ErrEmptyAnswer = errors.New("LLM returned an empty answer")

// UnconfiguredClient fails every call with ErrNotConfigured so the process
// can start without a key.
type UnconfiguredClient struct{}

// Configured always reports false.
func (UnconfiguredClient) Configured() bool { return false }

// Complete returns ErrNotConfigured.
func (UnconfiguredClient) Complete(ctx context.Context, req Request) (string, error) {
	_ = ctx
	_ = req
	return "", ErrNotConfigured
}

// StaticClient answers every question with a fixed text. It backs the
// "stub" provider used for local development.
type StaticClient struct {
	Answer string
}

// Complete returns the configured answer.
func (c StaticClient) Complete(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.Answer != "" {
		return c.Answer, nil
	}
	return "stub answer: " + req.Question, nil
}
