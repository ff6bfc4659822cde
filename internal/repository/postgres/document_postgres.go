package postgres

import (
	"context"
	"database/sql"

	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

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

const documentColumns = `id, tenant_id, file_name, storage_path, mime_type, size, extracted_text, uploaded_by, uploaded_at`

// Create inserts a new document row; id and uploaded_at come from the database.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (tenant_id, file_name, storage_path, mime_type, size, extracted_text, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		nullInt64(doc.TenantID),
		doc.FileName,
		doc.StoragePath,
		doc.MimeType,
		doc.Size,
		nullString(doc.ExtractedText),
		nullInt64(doc.UploadedBy),
	)
	return scanDocument(row)
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	return scanDocument(r.db.QueryRowContext(ctx, q, id))
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		d          model.Document
		tenantID   sql.NullInt64
		text       sql.NullString
		uploadedBy sql.NullInt64
	)
	if err := row.Scan(
		&d.ID,
		&tenantID,
		&d.FileName,
		&d.StoragePath,
		&d.MimeType,
		&d.Size,
		&text,
		&uploadedBy,
		&d.UploadedAt,
	); err != nil {
		return nil, err
	}
	d.TenantID = int64Ptr(tenantID)
	d.ExtractedText = stringPtr(text)
	d.UploadedBy = int64Ptr(uploadedBy)
	return &d, nil
}
