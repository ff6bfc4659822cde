package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"safetyagent/internal/model"
	"safetyagent/internal/service"
)

type MockProposalService struct {
	mock.Mock
}

func (m *MockProposalService) Create(ctx context.Context, actor model.Actor, in service.CreateProposalInput) (*model.Proposal, error) {
	args := m.Called(ctx, actor, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *MockProposalService) List(ctx context.Context, status string) ([]model.Proposal, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Proposal), args.Error(1)
}

func (m *MockProposalService) Get(ctx context.Context, id int64) (*service.ProposalDetail, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProposalDetail), args.Error(1)
}

func (m *MockProposalService) Approve(ctx context.Context, id int64, actor model.Actor) (*service.ApproveResult, error) {
	args := m.Called(ctx, id, actor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ApproveResult), args.Error(1)
}

func (m *MockProposalService) Reject(ctx context.Context, id int64, actor model.Actor, reason string) (*model.Proposal, error) {
	args := m.Called(ctx, id, actor, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *MockProposalService) AuditTrail(ctx context.Context, id int64) ([]model.AuditLogEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditLogEntry), args.Error(1)
}
