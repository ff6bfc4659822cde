package service

import (
	"context"
	"fmt"

	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

// AuditService is the append-only audit trail.
type AuditService interface {
	// Append writes one entry. proposalID, actorID and message are optional.
	Append(ctx context.Context, proposalID *int64, action string, actorID *int64, message *string) (*model.AuditLogEntry, error)
	// List returns the entries of a proposal, oldest first.
	List(ctx context.Context, proposalID int64) ([]model.AuditLogEntry, error)
}

type auditService struct {
	repo repository.AuditRepository
}

func NewAuditService(repo repository.AuditRepository) AuditService {
	return &auditService{repo: repo}
}

func (s *auditService) Append(ctx context.Context, proposalID *int64, action string, actorID *int64, message *string) (*model.AuditLogEntry, error) {
	if action == "" {
		return nil, fmt.Errorf("%w: audit action is required", ErrValidation)
	}
	e, err := s.repo.Append(ctx, &model.AuditLogEntry{
		ProposalID: proposalID,
		Action:     action,
		ActorID:    actorID,
		Message:    message,
	})
	if err != nil {
		return nil, fmt.Errorf("append audit entry: %w", err)
	}
	return e, nil
}

func (s *auditService) List(ctx context.Context, proposalID int64) ([]model.AuditLogEntry, error) {
	return s.repo.ListByProposal(ctx, proposalID)
}
