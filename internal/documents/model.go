package documents

import "time"

// Document statuses. Uploads are extracted synchronously, so processing is
// only the zero-value default and never persisted.
const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Document is an uploaded PDF owned by a single user.
type Document struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	Title       string    `json:"title" bson:"title"`
	Filename    string    `json:"filename" bson:"filename"`
	StorageKey  string    `json:"-" bson:"storage_key"`
	Company     *string   `json:"company" bson:"company"`
	Industry    *string   `json:"industry" bson:"industry"`
	FileSize    int64     `json:"file_size" bson:"file_size"`
	PageCount   int       `json:"page_count" bson:"page_count"`
	UploadDate  time.Time `json:"upload_date" bson:"upload_date"`
	TextContent string    `json:"text_content" bson:"text_content"`
	Status      string    `json:"status" bson:"status"`
}

// Filter narrows list and search results by case-insensitive substring.
// Empty fields match everything.
type Filter struct {
	Company  string
	Industry string
}

// Summary aggregates an owner's documents for analytics.
type Summary struct {
	TotalDocuments int64
	TotalPages     int64
	// Companies and Industries hold every distinct non-null value, sorted.
	Companies  []string
	Industries []string
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
