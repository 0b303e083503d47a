package chat

import (
	"context"
	"database/sql"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Append(ctx context.Context, msg Message) error {
	const query = `
INSERT INTO chat_messages (id, user_id, document_id, role, content, timestamp)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.DB.ExecContext(ctx, query, msg.ID, msg.UserID, msg.DocumentID, msg.Role, msg.Content, msg.Timestamp)
	return err
}

func (r *PGRepo) History(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error) {
	const query = `
SELECT id, document_id, user_id, role, content, timestamp
FROM chat_messages
WHERE document_id = $1 AND user_id = $2
ORDER BY timestamp ASC, seq ASC
LIMIT $3`
	return r.query(ctx, query, documentID, ownerID, limit)
}

func (r *PGRepo) Latest(ctx context.Context, ownerID, documentID string, limit int) ([]Message, error) {
	const query = `
SELECT id, document_id, user_id, role, content, timestamp
FROM (
	SELECT id, document_id, user_id, role, content, timestamp, seq
	FROM chat_messages
	WHERE document_id = $1 AND user_id = $2
	ORDER BY timestamp DESC, seq DESC
	LIMIT $3
) latest
ORDER BY timestamp ASC, seq ASC`
	return r.query(ctx, query, documentID, ownerID, limit)
}

func (r *PGRepo) query(ctx context.Context, query string, args ...any) ([]Message, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.DocumentID, &m.UserID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepo) DeleteByDocument(ctx context.Context, ownerID, documentID string) error {
	const query = `DELETE FROM chat_messages WHERE document_id = $1 AND user_id = $2`
	_, err := r.DB.ExecContext(ctx, query, documentID, ownerID)
	return err
}

func (r *PGRepo) Count(ctx context.Context, ownerID string) (Counts, error) {
	const query = `
SELECT COUNT(*), COUNT(*) FILTER (WHERE role = 'user')
FROM chat_messages
WHERE user_id = $1`
	var c Counts
	err := r.DB.QueryRowContext(ctx, query, ownerID).Scan(&c.Messages, &c.Questions)
	return c, err
}

var _ Repo = (*PGRepo)(nil)
