package chat

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a document's transcript. Messages are append-only
// and ordered by Timestamp; ids are time-ordered to break ties.
type Message struct {
	ID         string    `json:"id" bson:"_id"`
	DocumentID string    `json:"document_id" bson:"document_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	Role       string    `json:"role" bson:"role"`
	Content    string    `json:"content" bson:"content"`
	Timestamp  time.Time `json:"timestamp" bson:"timestamp"`
}

// Counts summarizes an owner's chat activity.
type Counts struct {
	Messages  int64
	Questions int64
}
