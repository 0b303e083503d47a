package analytics

import (
	"context"
	"time"

	"research-backend/internal/chat"
	"research-backend/internal/documents"
)

const (
	// DistinctLimit caps the company and industry lists in Stats.
	DistinctLimit = 10
	// RecentLimit is the number of documents returned by Recent.
	RecentLimit = 5
)

// DocumentSource is the read side of the documents service.
type DocumentSource interface {
	Summarize(ctx context.Context, ownerID string) (documents.Summary, error)
	Recent(ctx context.Context, ownerID string, n int) ([]documents.Document, error)
}

// ChatSource reports chat totals.
type ChatSource interface {
	Counts(ctx context.Context, ownerID string) (chat.Counts, error)
}

// Stats aggregates an owner's library and chat activity.
type Stats struct {
	TotalDocuments  int64    `json:"total_documents"`
	TotalPages      int64    `json:"total_pages"`
	TotalQueries    int64    `json:"total_queries"`
	TotalQuestions  int64    `json:"total_questions"`
	Companies       []string `json:"companies"`
	TotalCompanies  int      `json:"total_companies"`
	Industries      []string `json:"industries"`
	TotalIndustries int      `json:"total_industries"`
}

// RecentDocument is the short form of a document shown on dashboards.
type RecentDocument struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	UploadDate time.Time `json:"upload_date"`
	PageCount  int       `json:"page_count"`
	Company    *string   `json:"company"`
}

// Service is read-only; it never writes to any store.
type Service struct {
	Documents DocumentSource
	Chats     ChatSource
}

// Stats returns the owner's totals. total_queries counts question/answer
// pairs as half the stored messages; total_questions is the exact number
// of questions asked.
func (s *Service) Stats(ctx context.Context, ownerID string) (Stats, error) {
	sum, err := s.Documents.Summarize(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}
	counts, err := s.Chats.Counts(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		TotalDocuments:  sum.TotalDocuments,
		TotalPages:      sum.TotalPages,
		TotalQueries:    counts.Messages / 2,
		TotalQuestions:  counts.Questions,
		Companies:       head(sum.Companies, DistinctLimit),
		TotalCompanies:  len(sum.Companies),
		Industries:      head(sum.Industries, DistinctLimit),
		TotalIndustries: len(sum.Industries),
	}, nil
}

// Recent returns the owner's five newest documents.
func (s *Service) Recent(ctx context.Context, ownerID string) ([]RecentDocument, error) {
	docs, err := s.Documents.Recent(ctx, ownerID, RecentLimit)
	if err != nil {
		return nil, err
	}
	out := make([]RecentDocument, 0, len(docs))
	for _, doc := range docs {
		out = append(out, RecentDocument{
			ID:         doc.ID,
			Title:      doc.Title,
			UploadDate: doc.UploadDate,
			PageCount:  doc.PageCount,
			Company:    doc.Company,
		})
	}
	return out, nil
}

func head(values []string, n int) []string {
	if values == nil {
		return []string{}
	}
	if len(values) > n {
		return values[:n]
	}
	return values
}
