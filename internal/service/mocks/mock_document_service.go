package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"safetyagent/internal/model"
	"safetyagent/internal/service"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Store(ctx context.Context, in service.StoreDocumentInput) (*model.Document, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Upload(ctx context.Context, actor model.Actor, r io.Reader, fileName, mimeType string) (*model.Document, error) {
	args := m.Called(ctx, actor, r, fileName, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentService) FileURL(ctx context.Context, doc *model.Document) (string, error) {
	args := m.Called(ctx, doc)
	return args.String(0), args.Error(1)
}

func (m *MockDocumentService) Open(ctx context.Context, id int64) (io.ReadCloser, *model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(*model.Document), args.Error(2)
}
