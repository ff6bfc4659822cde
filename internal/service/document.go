package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"safetyagent/internal/extractor"
	"safetyagent/internal/model"
	"safetyagent/internal/repository"
	"safetyagent/internal/storage"
)

var ErrReaderNil = errors.New("reader is nil")

// StoreDocumentInput is the metadata recorded for an uploaded document.
type StoreDocumentInput struct {
	TenantID      *int64
	FileName      string
	StoragePath   string
	MimeType      string
	Size          int64
	ExtractedText *string
	UploadedBy    *int64
}

// DocumentService defines the use cases of the document store.
type DocumentService interface {
	// Store records document metadata. Documents are never updated afterwards.
	Store(ctx context.Context, in StoreDocumentInput) (*model.Document, error)

	// Upload puts the bytes into object storage, extracts text best-effort and stores the metadata.
	// The stored object is removed again if the metadata cannot be saved.
	Upload(ctx context.Context, actor model.Actor, r io.Reader, fileName, mimeType string) (*model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// FileURL returns a time-limited download URL for the document's object.
	FileURL(ctx context.Context, doc *model.Document) (string, error)

	// Open streams the stored object of a document.
	Open(ctx context.Context, id int64) (io.ReadCloser, *model.Document, error)
}

type documentService struct {
	store         storage.Storage
	repo          repository.DocumentRepository
	log           *zap.Logger
	presignExpiry time.Duration
	extractText   func(data []byte, fileName, mimeType string) (string, error)
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, log *zap.Logger, presignExpiry time.Duration) DocumentService {
	if presignExpiry <= 0 {
		presignExpiry = 15 * time.Minute
	}
	return &documentService{
		store:         store,
		repo:          repo,
		log:           log,
		presignExpiry: presignExpiry,
		extractText:   extractor.ExtractText,
	}
}

func (s *documentService) Store(ctx context.Context, in StoreDocumentInput) (*model.Document, error) {
	if strings.TrimSpace(in.FileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}
	if strings.TrimSpace(in.StoragePath) == "" {
		return nil, fmt.Errorf("%w: file path is required", ErrValidation)
	}
	return s.repo.Create(ctx, &model.Document{
		TenantID:      in.TenantID,
		FileName:      in.FileName,
		StoragePath:   in.StoragePath,
		MimeType:      in.MimeType,
		Size:          in.Size,
		ExtractedText: in.ExtractedText,
		UploadedBy:    in.UploadedBy,
	})
}

func (s *documentService) Upload(ctx context.Context, actor model.Actor, r io.Reader, fileName, mimeType string) (doc *model.Document, err error) {
	ctx, span := tracer.Start(ctx, "DocumentService.Upload", trace.WithAttributes(
		attribute.String("document.file_name", fileName),
		attribute.String("document.mime_type", mimeType),
	))
	defer func() { endSpan(span, err) }()

	if r == nil {
		return nil, ErrReaderNil
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, fmt.Errorf("%w: file name is required", ErrValidation)
	}

	// The whole file is needed for text extraction; the handler bounds its size.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	span.SetAttributes(attribute.Int("document.size", len(data)))

	key := storage.ObjectKey(fileName)
	obj, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: mimeType,
		Metadata: map[string]string{
			"original-filename": fileName,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	var text *string
	extracted, xerr := s.extractText(data, fileName, mimeType)
	switch {
	case xerr != nil:
		s.log.Warn("text_extraction_failed",
			zap.String("file_name", fileName),
			zap.String("mime_type", mimeType),
			zap.Error(xerr),
		)
	case extracted != "":
		text = &extracted
	}

	stored, err := s.Store(ctx, StoreDocumentInput{
		TenantID:      actor.TenantID,
		FileName:      fileName,
		StoragePath:   obj.Key,
		MimeType:      mimeType,
		Size:          int64(len(data)),
		ExtractedText: text,
		UploadedBy:    actor.UserID,
	})
	if err != nil {
		if delErr := s.store.Delete(ctx, obj.Key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}

	s.log.Info("document_stored",
		zap.Int64("document_id", stored.ID),
		zap.String("storage_path", stored.StoragePath),
		zap.Int64("size", stored.Size),
		zap.Bool("text_extracted", text != nil),
	)
	return stored, nil
}

func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: document id must be positive", ErrValidation)
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) FileURL(ctx context.Context, doc *model.Document) (string, error) {
	if doc == nil || doc.StoragePath == "" {
		return "", nil
	}
	u, err := s.store.PresignGet(ctx, doc.StoragePath, s.presignExpiry)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", doc.StoragePath, err)
	}
	return u, nil
}

func (s *documentService) Open(ctx context.Context, id int64) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Get(ctx, doc.StoragePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", doc.StoragePath, err)
	}
	return rc, doc, nil
}
