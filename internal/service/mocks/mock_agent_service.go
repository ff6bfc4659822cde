package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"safetyagent/internal/model"
	"safetyagent/internal/service"
)

type MockAgentService struct {
	mock.Mock
}

func (m *MockAgentService) ProposeFromText(ctx context.Context, actor model.Actor, text string) (*service.ProposeResult, error) {
	args := m.Called(ctx, actor, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProposeResult), args.Error(1)
}

func (m *MockAgentService) ProposeFromDocument(ctx context.Context, actor model.Actor, in service.UploadInput) (*service.ProposeResult, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProposeResult), args.Error(1)
}
