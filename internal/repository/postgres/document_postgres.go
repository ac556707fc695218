package postgres

import (
	"context"
	"database/sql"
	"strings"

	"rtodocs/internal/model"
	"rtodocs/internal/repository"
)

const documentColumns = `id, user_id, entity_type, entity_id, document_type, file_path, file_name, mime_type,
		size, status, verified_by, verified_at, rejection_reason, created_at, updated_at`

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.UserID,
		&d.EntityType,
		&d.EntityID,
		&d.DocumentType,
		&d.FilePath,
		&d.FileName,
		&d.MimeType,
		&d.Size,
		&d.Status,
		&d.VerifiedBy,
		&d.VerifiedAt,
		&d.RejectionReason,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, user_id, entity_type, entity_id, document_type, file_path, file_name,
			mime_type, size, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.UserID,
		doc.EntityType,
		doc.EntityID,
		doc.DocumentType,
		doc.FilePath,
		doc.FileName,
		doc.MimeType,
		doc.Size,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

// ListByEntity returns documents linked to an entity in upload order.
func (r *DocumentPostgres) ListByEntity(ctx context.Context, entityID string) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE entity_id = $1 ORDER BY created_at ASC, id ASC`
	return r.list(ctx, q, entityID)
}

// ListUserDocuments returns a user's profile-level documents of the given types.
func (r *DocumentPostgres) ListUserDocuments(ctx context.Context, userID string, types []model.DocumentType) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents
		WHERE entity_type = 'USER' AND entity_id = $1 AND document_type = ANY(string_to_array($2, ','))
		ORDER BY created_at ASC, id ASC`
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return r.list(ctx, q, userID, strings.Join(names, ","))
}

// ListByUser returns documents uploaded by a user, newest first.
func (r *DocumentPostgres) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	return r.list(ctx, q, userID)
}

// MarkDecision moves a PENDING document to its terminal status in a single conditional UPDATE.
// Concurrent callers race on the row lock; only the first sees a returned row.
func (r *DocumentPostgres) MarkDecision(ctx context.Context, id string, d model.Decision) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET status = $2, verified_by = $3, verified_at = $4, rejection_reason = $5, updated_at = $4
		WHERE id = $1 AND status = 'PENDING'
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q, id, d.Status, d.VerifiedBy, d.VerifiedAt, d.Reason)
	return scanDocument(row)
}

// Delete removes a document by ID. It does not return an error if the row does not exist.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

func (r *DocumentPostgres) list(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
