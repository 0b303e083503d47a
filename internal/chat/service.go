package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"research-backend/internal/documents"
	"research-backend/internal/llm"
	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/telemetry"
)

const (
	// HistoryLimit caps the returned transcript (oldest first) and the
	// context sent to the model (most recent turns).
	HistoryLimit = 100

	defaultStoreTimeout = 10 * time.Second
)

// DocumentReader is the slice of the documents service chat depends on.
type DocumentReader interface {
	Get(ctx context.Context, ownerID, id string) (documents.Document, error)
	ReadFile(ctx context.Context, ownerID, id string) ([]byte, documents.Document, error)
}

// Service answers questions about a document and keeps its transcript.
type Service struct {
	Repo         Repo
	Documents    DocumentReader
	LLM          llm.Client
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
	Now          func() time.Time
}

// SessionID is the conversation key handed to the model for a document and
// its owner.
func SessionID(documentID, ownerID string) string {
	return fmt.Sprintf("doc_%s_%s", documentID, ownerID)
}

// SystemPrompt is the instruction sent ahead of every question.
func SystemPrompt(title string) string {
	return fmt.Sprintf("You are a research assistant analyzing documents. The document title is '%s'. Provide accurate, detailed answers based on the document content.", title)
}

// Ask records the question, asks the model with the original PDF and the
// prior transcript, and records the answer. Without a configured model
// nothing is recorded; when the model fails the question stays recorded
// without an answer.
func (s *Service) Ask(ctx context.Context, ownerID, documentID, question string) (string, error) {
	doc, err := s.Documents.Get(ctx, ownerID, documentID)
	if err != nil {
		return "", err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	if !llm.Configured(s.LLM) {
		s.Metrics.RecordQuestion("not_configured")
		telemetry.Warn("chat.llm_not_configured", map[string]any{
			"user_id":     ownerID,
			"document_id": documentID,
		})
		return "", llm.ErrNotConfigured
	}

	prior, err := s.latest(ctx, ownerID, documentID)
	if err != nil {
		return "", err
	}
	if err := s.append(ctx, ownerID, documentID, RoleUser, question); err != nil {
		return "", err
	}

	answer, err := s.complete(ctx, ownerID, doc, prior, question)
	if err != nil {
		outcome := "failed"
		if errors.Is(err, apperr.ErrConfiguration) {
			outcome = "not_configured"
		}
		s.Metrics.RecordQuestion(outcome)
		telemetry.Warn("chat.ask_failed", map[string]any{
			"user_id":     ownerID,
			"document_id": documentID,
			"error":       err.Error(),
		})
		return "", err
	}

	if err := s.append(ctx, ownerID, documentID, RoleAssistant, answer); err != nil {
		return "", err
	}
	s.Metrics.RecordQuestion("answered")
	return answer, nil
}

func (s *Service) complete(ctx context.Context, ownerID string, doc documents.Document, prior []Message, question string) (string, error) {
	data, _, err := s.Documents.ReadFile(ctx, ownerID, doc.ID)
	if err != nil {
		telemetry.Warn("chat.read_file_failed", map[string]any{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return "", apperr.Wrap(ErrGenerationFailed, "chat.ask.read_file", errDocumentUnavailable)
	}

	history := make([]llm.Message, 0, len(prior))
	for _, m := range prior {
		history = append(history, llm.Message{Role: m.Role, Content: m.Content})
	}
	answer, err := s.LLM.Complete(ctx, llm.Request{
		SystemPrompt: SystemPrompt(doc.Title),
		SessionID:    SessionID(doc.ID, ownerID),
		History:      history,
		Question:     question,
		File:         &llm.File{Name: doc.Filename, MimeType: "application/pdf", Data: data},
	})
	if errors.Is(err, apperr.ErrConfiguration) {
		return "", err
	}
	if err != nil {
		return "", apperr.Wrap(ErrGenerationFailed, "chat.ask", err)
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return "", apperr.Wrap(ErrGenerationFailed, "chat.ask", llm.ErrEmptyAnswer)
	}
	return answer, nil
}

// History returns the transcript of an owned document, oldest first.
func (s *Service) History(ctx context.Context, ownerID, documentID string) ([]Message, error) {
	if _, err := s.Documents.Get(ctx, ownerID, documentID); err != nil {
		return nil, err
	}
	return s.history(ctx, ownerID, documentID)
}

// Counts reports the owner's message totals.
func (s *Service) Counts(ctx context.Context, ownerID string) (Counts, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	c, err := s.Repo.Count(ctx, ownerID)
	return c, apperr.Storage("chat.count", err)
}

// DeleteByDocument removes a document's transcript.
func (s *Service) DeleteByDocument(ctx context.Context, ownerID, documentID string) error {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	return apperr.Storage("chat.delete", s.Repo.DeleteByDocument(ctx, ownerID, documentID))
}

func (s *Service) history(ctx context.Context, ownerID, documentID string) ([]Message, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	msgs, err := s.Repo.History(ctx, ownerID, documentID, HistoryLimit)
	if err != nil {
		return nil, apperr.Storage("chat.history", err)
	}
	return msgs, nil
}

// latest returns the most recent turns in chronological order.
func (s *Service) latest(ctx context.Context, ownerID, documentID string) ([]Message, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	msgs, err := s.Repo.Latest(ctx, ownerID, documentID, HistoryLimit)
	if err != nil {
		return nil, apperr.Storage("chat.latest", err)
	}
	return msgs, nil
}

func (s *Service) append(ctx context.Context, ownerID, documentID, role, content string) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	msg := Message{
		ID:         id.String(),
		DocumentID: documentID,
		UserID:     ownerID,
		Role:       role,
		Content:    content,
		Timestamp:  s.now().UTC().Truncate(time.Millisecond),
	}
	return apperr.Storage("chat.append", s.Repo.Append(ctx, msg))
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

var _ documents.ChatPurger = (*Service)(nil)
