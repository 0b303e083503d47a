package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"research-backend/internal/extract"
	"research-backend/internal/shared/apperr"
	"research-backend/internal/shared/metrics"
	"research-backend/internal/shared/storage/object"
	"research-backend/internal/shared/telemetry"
	"research-backend/internal/shared/util"
)

const (
	// MaxUploadSize caps the accepted PDF size.
	MaxUploadSize = 25 << 20

	ListLimit   = 100
	SearchLimit = 50

	pdfMimeType         = "application/pdf"
	defaultStoreTimeout = 10 * time.Second
)

// ErrTooLarge is returned for uploads above MaxUploadSize.
var ErrTooLarge = apperr.Validation("File exceeds the 25 MB upload limit")

// Extractor turns PDF bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (extract.Result, error)
}

// UploadInput describes a single upload. Title defaults to the file name;
// empty company and industry are stored as absent.
type UploadInput struct {
	OwnerID  string
	Filename string
	Title    string
	Company  string
	Industry string
	Body     io.Reader
}

// Service contains business logic for documents.
type Service struct {
	Repo         Repo
	Store        object.Store
	Extractor    Extractor
	Chats        ChatPurger
	Metrics      *metrics.Metrics
	StoreTimeout time.Duration
	Now          func() time.Time
}

// Upload stores the file, extracts its text and records the document. The
// file is written before the record, so a failure can leave an orphaned
// file but never a record without one.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	if s == nil || s.Repo == nil || s.Store == nil {
		return Document{}, errors.New("documents service not configured")
	}
	if strings.TrimSpace(in.OwnerID) == "" {
		return Document{}, apperr.Validation("owner is required")
	}
	name, err := util.SanitizeFileName(in.Filename)
	if err != nil || !util.HasExtension(name, ".pdf") {
		return Document{}, ErrUnsupportedFormat
	}
	if in.Body == nil {
		return Document{}, apperr.Validation("file is required")
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, MaxUploadSize+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return Document{}, ErrTooLarge
		}
		return Document{}, apperr.Wrap(apperr.ErrValidation, "documents.upload", err)
	}
	if len(data) > MaxUploadSize {
		return Document{}, ErrTooLarge
	}

	id := uuid.NewString()
	key := util.DocumentKey(in.OwnerID, id, name)
	storeCtx, cancel := s.storeContext(ctx)
	size, err := s.Store.Put(storeCtx, key, pdfMimeType, bytes.NewReader(data))
	cancel()
	if err != nil {
		return Document{}, apperr.Storage("documents.upload.put", err)
	}

	result := s.extract(ctx, id, data)
	status := StatusFailed
	if strings.TrimSpace(result.Text) != "" {
		status = StatusReady
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = name
	}
	doc := Document{
		ID:          id,
		UserID:      in.OwnerID,
		Title:       title,
		Filename:    name,
		StorageKey:  key,
		Company:     optional(strings.TrimSpace(in.Company)),
		Industry:    optional(strings.TrimSpace(in.Industry)),
		FileSize:    size,
		PageCount:   result.PageCount,
		UploadDate:  s.now().UTC().Truncate(time.Millisecond),
		TextContent: result.Text,
		Status:      status,
	}

	storeCtx, cancel = s.storeContext(ctx)
	defer cancel()
	if err := s.Repo.Create(storeCtx, doc); err != nil {
		s.removeFile(ctx, key)
		return Document{}, apperr.Storage("documents.upload.create", err)
	}

	s.Metrics.RecordUpload(status, utf8.RuneCountInString(doc.TextContent))
	telemetry.Info("documents.uploaded", map[string]any{
		"user_id":     doc.UserID,
		"document_id": doc.ID,
		"status":      doc.Status,
		"page_count":  doc.PageCount,
		"file_size":   doc.FileSize,
	})
	return doc, nil
}

// extract never fails the upload; unreadable files yield an empty result.
func (s *Service) extract(ctx context.Context, documentID string, data []byte) extract.Result {
	if s.Extractor == nil {
		return extract.Result{}
	}
	result, err := s.Extractor.Extract(ctx, data)
	if err != nil {
		telemetry.Warn("documents.extract_failed", map[string]any{
			"document_id": documentID,
			"error":       err.Error(),
		})
		return extract.Result{}
	}
	return result
}

// Get returns an owned document.
func (s *Service) Get(ctx context.Context, ownerID, id string) (Document, error) {
	if strings.TrimSpace(ownerID) == "" || strings.TrimSpace(id) == "" {
		return Document{}, ErrNotFound
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	doc, err := s.Repo.Get(ctx, ownerID, id)
	return doc, apperr.Storage("documents.get", err)
}

// List returns up to ListLimit owned documents, newest first.
func (s *Service) List(ctx context.Context, ownerID string, f Filter) ([]Document, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	docs, err := s.Repo.List(ctx, ownerID, f.trimmed(), ListLimit)
	if err != nil {
		return nil, apperr.Storage("documents.list", err)
	}
	return docs, nil
}

// Recent returns the owner's n newest documents.
func (s *Service) Recent(ctx context.Context, ownerID string, n int) ([]Document, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	docs, err := s.Repo.List(ctx, ownerID, Filter{}, n)
	if err != nil {
		return nil, apperr.Storage("documents.recent", err)
	}
	return docs, nil
}

// Search returns up to SearchLimit owned documents whose title or text
// contains query. An empty query matches every owned document.
func (s *Service) Search(ctx context.Context, ownerID, query string, f Filter) ([]Document, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	docs, err := s.Repo.Search(ctx, ownerID, strings.TrimSpace(query), f.trimmed(), SearchLimit)
	if err != nil {
		return nil, apperr.Storage("documents.search", err)
	}
	return docs, nil
}

// Delete removes the chat transcript, then the record, then the file. A
// missing file is tolerated.
func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if s.Chats != nil {
		chatCtx, cancel := s.storeContext(ctx)
		err := s.Chats.DeleteByDocument(chatCtx, ownerID, id)
		cancel()
		if err != nil {
			return apperr.Storage("documents.delete.chats", err)
		}
	}

	storeCtx, cancel := s.storeContext(ctx)
	err = s.Repo.Delete(storeCtx, ownerID, id)
	cancel()
	if err != nil {
		return apperr.Storage("documents.delete", err)
	}

	s.removeFile(ctx, doc.StorageKey)
	telemetry.Info("documents.deleted", map[string]any{"user_id": ownerID, "document_id": id})
	return nil
}

// OpenFile streams the original PDF of an owned document. The caller closes
// the reader.
func (s *Service) OpenFile(ctx context.Context, ownerID, id string) (io.ReadCloser, Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, Document{}, err
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if errors.Is(err, object.ErrNotFound) {
		return nil, Document{}, fmt.Errorf("documents.open_file: %w", ErrNotFound)
	}
	if err != nil {
		return nil, Document{}, apperr.Storage("documents.open_file", err)
	}
	return rc, doc, nil
}

// ReadFile loads the original PDF of an owned document into memory.
func (s *Service) ReadFile(ctx context.Context, ownerID, id string) ([]byte, Document, error) {
	rc, doc, err := s.OpenFile(ctx, ownerID, id)
	if err != nil {
		return nil, Document{}, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, Document{}, apperr.Storage("documents.read_file", err)
	}
	return data, doc, nil
}

// Summarize aggregates the owner's documents.
func (s *Service) Summarize(ctx context.Context, ownerID string) (Summary, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	sum, err := s.Repo.Summarize(ctx, ownerID)
	return sum, apperr.Storage("documents.summarize", err)
}

func (s *Service) removeFile(ctx context.Context, key string) {
	if key == "" {
		return
	}
	ctx, cancel := s.storeContext(ctx)
	defer cancel()
	exists, err := s.Store.Exists(ctx, key)
	if err != nil {
		telemetry.Warn("documents.file_lookup_failed", map[string]any{
			"storage_key": key,
			"error":       err.Error(),
		})
		return
	}
	if !exists {
		telemetry.Info("documents.file_already_missing", map[string]any{"storage_key": key})
		return
	}
	if err := s.Store.Delete(ctx, key); err != nil {
		telemetry.Warn("documents.file_delete_failed", map[string]any{
			"storage_key": key,
			"error":       err.Error(),
		})
	}
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

func (f Filter) trimmed() Filter {
	return Filter{Company: strings.TrimSpace(f.Company), Industry: strings.TrimSpace(f.Industry)}
}
