package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"research-backend/internal/documents"
	"research-backend/internal/extract"
	"research-backend/internal/extract/pdftest"
	"research-backend/internal/llm"
	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/storage/object/local"
)

type stubLLM struct {
	answer string
	err    error
	reqs   []llm.Request
}

func (s *stubLLM) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.reqs = append(s.reqs, req)
	return s.answer, s.err
}

type fixture struct {
	chat *Service
	docs *documents.Service
	llm  *stubLLM
	doc  documents.Document
	pdf  []byte
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := local.New(t.TempDir())
	if err != nil {
		t.Fatalf("local.New: %v", err)
	}
	clock := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	now := func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	repo := NewMemoryRepo()
	docs := &documents.Service{
		Repo:      documents.NewMemoryRepo(),
		Store:     store,
		Extractor: extract.NewPDF(),
		Chats:     repo,
		Now:       now,
	}
	stub := &stubLLM{answer: "Acme Corp"}
	svc := &Service{Repo: repo, Documents: docs, LLM: stub, Now: now}

	pdf := pdftest.Build("Quarterly Report for Acme Corp")
	doc, err := docs.Upload(context.Background(), documents.UploadInput{
		OwnerID:  "u1",
		Filename: "report.pdf",
		Title:    "Quarterly Report",
		Body:     bytes.NewReader(pdf),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	return &fixture{chat: svc, docs: docs, llm: stub, doc: doc, pdf: pdf}
}

func TestAskStoresBothMessagesInOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	answer, err := f.chat.Ask(ctx, "u1", f.doc.ID, "  Which company?  ")
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if answer != "Acme Corp" {
		t.Fatalf("unexpected answer %q", answer)
	}

	msgs, err := f.chat.History(ctx, "u1", f.doc.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "Which company?" {
		t.Fatalf("unexpected first message %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant || msgs[1].Content != "Acme Corp" {
		t.Fatalf("unexpected second message %+v", msgs[1])
	}
	if !msgs[0].Timestamp.Before(msgs[1].Timestamp) {
		t.Fatal("expected chronological order")
	}
}

func TestAskSendsDocumentContextToModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.chat.Ask(ctx, "u1", f.doc.ID, "first"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if _, err := f.chat.Ask(ctx, "u1", f.doc.ID, "second"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if len(f.llm.reqs) != 2 {
		t.Fatalf("expected 2 model calls, got %d", len(f.llm.reqs))
	}

	req := f.llm.reqs[1]
	if req.SessionID != "doc_"+f.doc.ID+"_u1" {
		t.Fatalf("unexpected session id %q", req.SessionID)
	}
	if req.SystemPrompt != SystemPrompt("Quarterly Report") {
		t.Fatalf("unexpected system prompt %q", req.SystemPrompt)
	}
	if req.Question != "second" {
		t.Fatalf("unexpected question %q", req.Question)
	}
	if req.File == nil || !bytes.Equal(req.File.Data, f.pdf) || req.File.MimeType != "application/pdf" {
		t.Fatal("expected original PDF to be attached")
	}
	if len(req.History) != 2 || req.History[0].Content != "first" || req.History[1].Role != llm.RoleAssistant {
		t.Fatalf("unexpected history %+v", req.History)
	}
}

func TestAskFailureKeepsQuestion(t *testing.T) {
	f := newFixture(t)
	f.llm.err = errors.New("upstream 503")
	ctx := context.Background()

	_, err := f.chat.Ask(ctx, "u1", f.doc.ID, "anyone there?")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	msgs, _ := f.chat.History(ctx, "u1", f.doc.ID)
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Fatalf("expected the unanswered question to stay, got %+v", msgs)
	}
}

func TestAskWithoutKeyIsConfigurationError(t *testing.T) {
	f := newFixture(t)
	f.chat.LLM = llm.UnconfiguredClient{}
	_, err := f.chat.Ask(context.Background(), "u1", f.doc.ID, "hello")
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if errors.Is(err, ErrGenerationFailed) {
		t.Fatal("configuration errors must not be reported as generation failures")
	}
	msgs, err := f.chat.History(context.Background(), "u1", f.doc.ID)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("expected no stored messages, got %d (%v)", len(msgs), err)
	}
	counts, _ := f.chat.Counts(context.Background(), "u1")
	if counts.Messages != 0 || counts.Questions != 0 {
		t.Fatalf("expected zero counts, got %+v", counts)
	}
}

func TestAskSendsLatestTurnsToModel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	total := HistoryLimit + 2
	for i := 1; i <= total; i++ {
		role := RoleUser
		if i%2 == 0 {
			role = RoleAssistant
		}
		err := f.chat.Repo.Append(ctx, Message{
			ID:         fmt.Sprintf("m%03d", i),
			DocumentID: f.doc.ID,
			UserID:     "u1",
			Role:       role,
			Content:    fmt.Sprintf("turn %d", i),
			Timestamp:  base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	if _, err := f.chat.Ask(ctx, "u1", f.doc.ID, "latest?"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	got := f.llm.reqs[0].History
	if len(got) != HistoryLimit {
		t.Fatalf("expected %d context turns, got %d", HistoryLimit, len(got))
	}
	if got[0].Content != "turn 3" || got[len(got)-1].Content != fmt.Sprintf("turn %d", total) {
		t.Fatalf("expected newest turns in order, got %q..%q", got[0].Content, got[len(got)-1].Content)
	}

	msgs, err := f.chat.History(ctx, "u1", f.doc.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(msgs) != HistoryLimit || msgs[0].Content != "turn 1" {
		t.Fatalf("expected the oldest %d messages, got %d starting at %q", HistoryLimit, len(msgs), msgs[0].Content)
	}
}

func TestAskEmptyAnswerFails(t *testing.T) {
	f := newFixture(t)
	f.llm.answer = "   "
	_, err := f.chat.Ask(context.Background(), "u1", f.doc.ID, "hello")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestAskValidatesOwnershipThenQuestion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.chat.Ask(ctx, "intruder", f.doc.ID, "   "); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found before validation, got %v", err)
	}
	if _, err := f.chat.Ask(ctx, "u1", f.doc.ID, "   "); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := f.chat.History(ctx, "intruder", f.doc.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found on foreign history, got %v", err)
	}
	if len(f.llm.reqs) != 0 {
		t.Fatal("model must not be called for rejected questions")
	}
}

func TestDocumentDeleteRemovesHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if _, err := f.chat.Ask(ctx, "u1", f.doc.ID, "hello"); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if err := f.docs.Delete(ctx, "u1", f.doc.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	msgs, err := f.chat.Repo.History(ctx, "u1", f.doc.ID, HistoryLimit)
	if err != nil || len(msgs) != 0 {
		t.Fatalf("expected empty transcript after delete, got %d (%v)", len(msgs), err)
	}
	counts, _ := f.chat.Counts(ctx, "u1")
	if counts.Messages != 0 {
		t.Fatalf("expected no messages left, got %+v", counts)
	}
}

func TestCounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, q := range []string{"a", "b", "c"} {
		if _, err := f.chat.Ask(ctx, "u1", f.doc.ID, q); err != nil {
			t.Fatalf("Ask: %v", err)
		}
	}
	f.llm.err = errors.New("down")
	_, _ = f.chat.Ask(ctx, "u1", f.doc.ID, "d")

	counts, err := f.chat.Counts(ctx, "u1")
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Messages != 7 || counts.Questions != 4 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}
