package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

type MockProposalRepository struct {
	mock.Mock
}

func (m *MockProposalRepository) Create(ctx context.Context, p *model.Proposal, items []model.ProposedItem) (*model.Proposal, error) {
	args := m.Called(ctx, p, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *MockProposalRepository) FindByID(ctx context.Context, id int64) (*model.Proposal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}

func (m *MockProposalRepository) List(ctx context.Context, status model.ProposalStatus) ([]model.Proposal, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Proposal), args.Error(1)
}

func (m *MockProposalRepository) ListItems(ctx context.Context, proposalID int64) ([]model.ProposalItem, error) {
	args := m.Called(ctx, proposalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ProposalItem), args.Error(1)
}

func (m *MockProposalRepository) Apply(ctx context.Context, proposalID int64, approverID *int64, at time.Time, rows []repository.RowInsert) error {
	args := m.Called(ctx, proposalID, approverID, at, rows)
	return args.Error(0)
}

func (m *MockProposalRepository) Reject(ctx context.Context, proposalID int64, rejecterID *int64, at time.Time, reason string) (*model.Proposal, error) {
	args := m.Called(ctx, proposalID, rejecterID, at, reason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Proposal), args.Error(1)
}
