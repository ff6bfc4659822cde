package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"safetyagent/internal/model"
)

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Append(ctx context.Context, e *model.AuditLogEntry) (*model.AuditLogEntry, error) {
	args := m.Called(ctx, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditLogEntry), args.Error(1)
}

func (m *MockAuditRepository) ListByProposal(ctx context.Context, proposalID int64) ([]model.AuditLogEntry, error) {
	args := m.Called(ctx, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditLogEntry), args.Error(1)
}
