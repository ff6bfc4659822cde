package model

import "time"

// Document is an uploaded source file together with its best-effort extracted text.
// Documents are written once and never updated. A Proposal may reference a Document,
// but a Document does not need a Proposal (extraction can yield nothing).
type Document struct {
	ID            int64     `json:"id"`
	TenantID      *int64    `json:"tenant_id"`
	FileName      string    `json:"file_name"`
	StoragePath   string    `json:"storage_path"`
	MimeType      string    `json:"mime_type"`
	Size          int64     `json:"size"`
	ExtractedText *string   `json:"extracted_text,omitempty"`
	UploadedBy    *int64    `json:"uploaded_by"`
	UploadedAt    time.Time `json:"uploaded_at"`
}
