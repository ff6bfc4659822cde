package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safetyagent/internal/model"
	repoMocks "safetyagent/internal/repository/mocks"
	"safetyagent/internal/storage"
	storeMocks "safetyagent/internal/storage/mocks"
)

func newTestDocumentService(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) *documentService {
	return NewDocumentService(mStore, mRepo, zap.NewNop(), time.Minute).(*documentService)
}

func int64p(v int64) *int64 { return &v }

func TestDocumentService_Store(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		in      StoreDocumentInput
		setup   func(mRepo *repoMocks.MockDocumentRepository)
		wantErr error
	}{
		{
			name: "stores metadata with empty extracted text",
			in:   StoreDocumentInput{FileName: "a.bin", StoragePath: "safety-docs/x.bin", Size: 3},
			setup: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("Create", ctx, mock.MatchedBy(func(d *model.Document) bool {
					return d.FileName == "a.bin" && d.ExtractedText == nil && d.ID == 0
				})).Return(&model.Document{ID: 1}, nil)
			},
		},
		{
			name:    "file name is required",
			in:      StoreDocumentInput{StoragePath: "p"},
			setup:   func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr: ErrValidation,
		},
		{
			name:    "file path is required",
			in:      StoreDocumentInput{FileName: "a.txt", StoragePath: "  "},
			setup:   func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr: ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			tt.setup(mRepo)
			svc := newTestDocumentService(nil, mRepo)

			doc, err := svc.Store(ctx, tt.in)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, doc)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	actor := model.Actor{TenantID: int64p(3), UserID: int64p(9)}

	tests := []struct {
		name       string
		fileName   string
		mimeType   string
		body       string
		nilReader  bool
		extract    func([]byte, string, string) (string, error)
		setupMocks func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
		wantErrMsg string
		check      func(t *testing.T, doc *model.Document)
	}{
		{
			name:     "happy path",
			fileName: "fire report.txt",
			mimeType: "text/plain",
			body:     "fire alarm test",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
					return strings.HasPrefix(key, storage.KeyPrefix) && strings.HasSuffix(key, ".txt")
				}), mock.Anything, storage.PutObjectOptions{
					Size:        15,
					ContentType: "text/plain",
					Metadata:    map[string]string{"original-filename": "fire report.txt"},
				}).Return(func(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
					return storage.ObjectInfo{Key: key, Size: opt.Size}
				}, nil)

				mRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
					return d.FileName == "fire report.txt" &&
						strings.HasPrefix(d.StoragePath, storage.KeyPrefix) &&
						d.Size == 15 &&
						d.ExtractedText != nil && *d.ExtractedText == "fire alarm test" &&
						*d.TenantID == 3 && *d.UploadedBy == 9
				})).Return(func() *model.Document {
					text := "fire alarm test"
					return &model.Document{ID: 10, FileName: "fire report.txt", ExtractedText: &text}
				}(), nil)
			},
			check: func(t *testing.T, doc *model.Document) {
				assert.Equal(t, int64(10), doc.ID)
			},
		},
		{
			name:     "extraction failure still stores the document",
			fileName: "broken.pdf",
			mimeType: "application/pdf",
			body:     "not a pdf",
			extract: func([]byte, string, string) (string, error) {
				return "", errors.New("malformed pdf")
			},
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "safety-docs/k.pdf"}, nil)
				mRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *model.Document) bool {
					return d.ExtractedText == nil && d.StoragePath == "safety-docs/k.pdf"
				})).Return(&model.Document{ID: 11}, nil)
			},
		},
		{
			name:       "validation error - nil reader",
			fileName:   "test.txt",
			nilReader:  true,
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrReaderNil,
		},
		{
			name:       "validation error - missing file name",
			body:       "x",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrValidation,
		},
		{
			name:     "storage error",
			fileName: "test.txt",
			body:     "hello",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{}, errors.New("storage fail"))
			},
			wantErrMsg: "upload to storage: storage fail",
		},
		{
			name:     "repository error with successful rollback",
			fileName: "test.txt",
			body:     "hello",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "safety-docs/k.txt"}, nil)
				mRepo.On("Create", mock.Anything, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", mock.Anything, "safety-docs/k.txt").Return(nil)
			},
			wantErrMsg: "db save failed: db fail",
		},
		{
			name:     "repository error with failed rollback",
			fileName: "test.txt",
			body:     "hello",
			setupMocks: func(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository) {
				mStore.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
					Return(storage.ObjectInfo{Key: "safety-docs/k.txt"}, nil)
				mRepo.On("Create", mock.Anything, mock.Anything).
					Return(nil, errors.New("db fail"))
				mStore.On("Delete", mock.Anything, "safety-docs/k.txt").Return(errors.New("delete fail"))
			},
			wantErrMsg: "rollback delete failed: delete fail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mStore := new(storeMocks.MockStorage)
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestDocumentService(mStore, mRepo)
			if tt.extract != nil {
				svc.extractText = tt.extract
			}
			tt.setupMocks(mStore, mRepo)

			var r io.Reader
			if !tt.nilReader {
				r = strings.NewReader(tt.body)
			}

			doc, err := svc.Upload(ctx, actor, r, tt.fileName, tt.mimeType)

			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, doc)
			case tt.wantErrMsg != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErrMsg)
				assert.Nil(t, doc)
			default:
				require.NoError(t, err)
				require.NotNil(t, doc)
				if tt.check != nil {
					tt.check(t, doc)
				}
			}

			mStore.AssertExpectations(t)
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		id         int64
		setupMocks func(mRepo *repoMocks.MockDocumentRepository)
		wantErr    error
	}{
		{
			name: "happy path",
			id:   7,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, int64(7)).Return(&model.Document{ID: 7}, nil)
			},
		},
		{
			name:       "validation - non-positive id",
			id:         0,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {},
			wantErr:    ErrValidation,
		},
		{
			name: "not found - mapping sql.ErrNoRows",
			id:   404,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, int64(404)).Return(nil, sql.ErrNoRows)
			},
			wantErr: ErrNotFound,
		},
		{
			name: "generic repository error",
			id:   5,
			setupMocks: func(mRepo *repoMocks.MockDocumentRepository) {
				mRepo.On("FindByID", ctx, int64(5)).Return(nil, errors.New("db fail"))
			},
			wantErr: errors.New("db fail"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mRepo := new(repoMocks.MockDocumentRepository)
			svc := newTestDocumentService(nil, mRepo)

			tt.setupMocks(mRepo)

			doc, err := svc.Get(ctx, tt.id)

			if tt.wantErr != nil {
				if errors.Is(tt.wantErr, ErrValidation) || errors.Is(tt.wantErr, ErrNotFound) {
					assert.ErrorIs(t, err, tt.wantErr)
				} else {
					assert.Error(t, err)
				}
				assert.Nil(t, doc)
			} else {
				assert.NoError(t, err)
				require.NotNil(t, doc)
				assert.Equal(t, tt.id, doc.ID)
			}
			mRepo.AssertExpectations(t)
		})
	}
}

func TestDocumentService_FileURL(t *testing.T) {
	ctx := context.Background()

	t.Run("presigns the storage path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("PresignGet", ctx, "safety-docs/k.pdf", time.Minute).Return("https://minio/k.pdf?sig", nil)
		svc := newTestDocumentService(mStore, nil)

		u, err := svc.FileURL(ctx, &model.Document{StoragePath: "safety-docs/k.pdf"})

		assert.NoError(t, err)
		assert.Equal(t, "https://minio/k.pdf?sig", u)
		mStore.AssertExpectations(t)
	})

	t.Run("presign error", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mStore.On("PresignGet", ctx, "k", time.Minute).Return("", errors.New("no creds"))
		svc := newTestDocumentService(mStore, nil)

		u, err := svc.FileURL(ctx, &model.Document{StoragePath: "k"})

		assert.Error(t, err)
		assert.Empty(t, u)
	})

	t.Run("nil document", func(t *testing.T) {
		svc := newTestDocumentService(nil, nil)
		u, err := svc.FileURL(ctx, nil)
		assert.NoError(t, err)
		assert.Empty(t, u)
	})
}

func TestDocumentService_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("streams the object", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, int64(7)).Return(&model.Document{ID: 7, StoragePath: "safety-docs/k.txt"}, nil)
		mStore.On("Get", ctx, "safety-docs/k.txt").
			Return(io.NopCloser(strings.NewReader("body")), storage.ObjectInfo{Key: "safety-docs/k.txt"}, nil)
		svc := newTestDocumentService(mStore, mRepo)

		rc, doc, err := svc.Open(ctx, 7)

		require.NoError(t, err)
		defer rc.Close()
		b, _ := io.ReadAll(rc)
		assert.Equal(t, "body", string(b))
		assert.Equal(t, int64(7), doc.ID)
	})

	t.Run("missing object", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mRepo.On("FindByID", ctx, int64(7)).Return(&model.Document{ID: 7, StoragePath: "gone"}, nil)
		mStore.On("Get", ctx, "gone").Return(nil, storage.ObjectInfo{}, errors.New("NoSuchKey"))
		svc := newTestDocumentService(mStore, mRepo)

		rc, doc, err := svc.Open(ctx, 7)

		assert.Error(t, err)
		assert.Nil(t, rc)
		assert.Nil(t, doc)
	})
}
