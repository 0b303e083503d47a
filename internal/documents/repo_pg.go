package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const documentColumns = `id, user_id, title, filename, storage_key, company, industry, file_size, page_count, upload_date, text_content, status`

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (` + documentColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID,
		doc.UserID,
		doc.Title,
		doc.Filename,
		doc.StorageKey,
		nullString(doc.Company),
		nullString(doc.Industry),
		doc.FileSize,
		doc.PageCount,
		doc.UploadDate,
		doc.TextContent,
		doc.Status,
	)
	return err
}

// Get fetches a document by id for its owner.
func (r *PGRepo) Get(ctx context.Context, ownerID, id string) (Document, error) {
	const query = `
SELECT ` + documentColumns + `
FROM documents
WHERE user_id = $1 AND id = $2
LIMIT 1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, ownerID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return doc, err
}

// List returns the owner's documents newest first.
func (r *PGRepo) List(ctx context.Context, ownerID string, f Filter, limit int) ([]Document, error) {
	where, args := filterClause(ownerID, f)
	return r.query(ctx, where, args, limit)
}

// Search matches query against title or text content.
func (r *PGRepo) Search(ctx context.Context, ownerID, query string, f Filter, limit int) ([]Document, error) {
	where, args := filterClause(ownerID, f)
	if query != "" {
		args = append(args, likePattern(query))
		n := len(args)
		where += fmt.Sprintf(" AND (title ILIKE $%d OR text_content ILIKE $%d)", n, n)
	}
	return r.query(ctx, where, args, limit)
}

// Delete removes the owner's document.
func (r *PGRepo) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM documents WHERE user_id = $1 AND id = $2`
	res, err := r.DB.ExecContext(ctx, query, ownerID, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Summarize aggregates the owner's documents.
func (r *PGRepo) Summarize(ctx context.Context, ownerID string) (Summary, error) {
	const totals = `
SELECT COUNT(*), COALESCE(SUM(page_count), 0)
FROM documents
WHERE user_id = $1`
	var sum Summary
	if err := r.DB.QueryRowContext(ctx, totals, ownerID).Scan(&sum.TotalDocuments, &sum.TotalPages); err != nil {
		return Summary{}, err
	}
	var err error
	if sum.Companies, err = r.distinct(ctx, "company", ownerID); err != nil {
		return Summary{}, err
	}
	if sum.Industries, err = r.distinct(ctx, "industry", ownerID); err != nil {
		return Summary{}, err
	}
	return sum, nil
}

func (r *PGRepo) distinct(ctx context.Context, column, ownerID string) ([]string, error) {
	query := fmt.Sprintf(`
SELECT DISTINCT %[1]s
FROM documents
WHERE user_id = $1 AND %[1]s IS NOT NULL
ORDER BY %[1]s`, column)
	rows, err := r.DB.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *PGRepo) query(ctx context.Context, where string, args []any, limit int) ([]Document, error) {
	query := `
SELECT ` + documentColumns + `
FROM documents
WHERE ` + where + `
ORDER BY upload_date DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf("\nLIMIT $%d", len(args))
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (Document, error) {
	var doc Document
	var company, industry sql.NullString
	err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Filename,
		&doc.StorageKey,
		&company,
		&industry,
		&doc.FileSize,
		&doc.PageCount,
		&doc.UploadDate,
		&doc.TextContent,
		&doc.Status,
	)
	if err != nil {
		return Document{}, err
	}
	if company.Valid {
		doc.Company = &company.String
	}
	if industry.Valid {
		doc.Industry = &industry.String
	}
	return doc, nil
}

func filterClause(ownerID string, f Filter) (string, []any) {
	where := "user_id = $1"
	args := []any{ownerID}
	if f.Company != "" {
		args = append(args, likePattern(f.Company))
		where += fmt.Sprintf(" AND company ILIKE $%d", len(args))
	}
	if f.Industry != "" {
		args = append(args, likePattern(f.Industry))
		where += fmt.Sprintf(" AND industry ILIKE $%d", len(args))
	}
	return where, args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern builds a substring pattern with LIKE wildcards escaped.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
