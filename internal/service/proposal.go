package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"safetyagent/internal/metrics"
	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

const approvedMessage = "Approved"

// CreateProposalInput is a batch of candidate writes submitted for review.
type CreateProposalInput struct {
	Title       string
	Description string
	DocumentID  *int64
	Items       []model.ProposedItem
	// Source labels the origin for metrics: "manual", "text" or "document".
	Source string
}

// ProposalDetail is a proposal with its items in insertion order.
type ProposalDetail struct {
	Proposal *model.Proposal      `json:"proposal"`
	Items    []model.ProposalItem `json:"items"`
}

// ApproveResult reports what approval did to each item.
type ApproveResult struct {
	ProposalID int64                `json:"proposal_id"`
	Status     model.ProposalStatus `json:"status"`
	Applied    int                  `json:"applied"`
	Skipped    int                  `json:"skipped"`
	Outcomes   []model.ItemOutcome  `json:"outcomes"`
}

// ProposalService is the proposal ledger: creation, queries and the one-way
// pending -> approved | rejected transitions.
type ProposalService interface {
	Create(ctx context.Context, actor model.Actor, in CreateProposalInput) (*model.Proposal, error)
	List(ctx context.Context, status string) ([]model.Proposal, error)
	Get(ctx context.Context, id int64) (*ProposalDetail, error)
	Approve(ctx context.Context, id int64, actor model.Actor) (*ApproveResult, error)
	Reject(ctx context.Context, id int64, actor model.Actor, reason string) (*model.Proposal, error)
	AuditTrail(ctx context.Context, id int64) ([]model.AuditLogEntry, error)
}

type proposalService struct {
	repo    repository.ProposalRepository
	gate    *WriteGate
	audit   AuditService
	metrics *metrics.Workflow
	log     *zap.Logger
	now     func() time.Time
}

// NewProposalService constructs the proposal ledger. m may be nil.
func NewProposalService(repo repository.ProposalRepository, gate *WriteGate, audit AuditService, m *metrics.Workflow, log *zap.Logger) ProposalService {
	return &proposalService{
		repo:    repo,
		gate:    gate,
		audit:   audit,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

func (s *proposalService) Create(ctx context.Context, actor model.Actor, in CreateProposalInput) (p *model.Proposal, err error) {
	ctx, span := tracer.Start(ctx, "ProposalService.Create", trace.WithAttributes(
		attribute.Int("proposal.items", len(in.Items)),
		attribute.String("proposal.source", in.Source),
	))
	defer func() { endSpan(span, err) }()

	// Title is optional and items are stored as given; the write gate skips
	// and reports whatever it cannot apply.
	p, err = s.repo.Create(ctx, &model.Proposal{
		TenantID:    actor.TenantID,
		Title:       in.Title,
		Description: in.Description,
		Status:      model.StatusPending,
		DocumentID:  in.DocumentID,
		SubmittedBy: actor.UserID,
	}, in.Items)
	if err != nil {
		if errors.Is(err, repository.ErrDocumentNotFound) {
			return nil, fmt.Errorf("%v: %w", err, ErrNotFound)
		}
		return nil, fmt.Errorf("create proposal: %w", err)
	}
	span.SetAttributes(attribute.Int64("proposal.id", p.ID))

	source := in.Source
	if source == "" {
		source = "manual"
	}
	s.metrics.ProposalCreated(source)

	msg := fmt.Sprintf("Submitted %d item(s)", len(in.Items))
	s.appendAudit(ctx, p.ID, model.AuditSubmitted, actor.UserID, &msg)

	s.log.Info("proposal_submitted",
		zap.Int64("proposal_id", p.ID),
		zap.String("source", source),
		zap.Int("items", len(in.Items)),
	)
	return p, nil
}

func (s *proposalService) List(ctx context.Context, status string) ([]model.Proposal, error) {
	st := model.ProposalStatus(strings.ToLower(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.repo.List(ctx, st)
}

func (s *proposalService) Get(ctx context.Context, id int64) (*ProposalDetail, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return &ProposalDetail{Proposal: p, Items: items}, nil
}

func (s *proposalService) Approve(ctx context.Context, id int64, actor model.Actor) (res *ApproveResult, err error) {
	ctx, span := tracer.Start(ctx, "ProposalService.Approve", trace.WithAttributes(attribute.Int64("proposal.id", id)))
	defer func() {
		s.metrics.Decision("approve", decisionResult(err))
		endSpan(span, err)
	}()

	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != model.StatusPending {
		return nil, notPending(id, p.Status)
	}

	items, err := s.repo.ListItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	rows, outcomes := s.gate.Plan(items)

	if err := s.repo.Apply(ctx, id, actor.UserID, s.now().UTC(), rows); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("proposal %d: %w", id, ErrNotFound)
		case errors.Is(err, repository.ErrNotPending):
			return nil, fmt.Errorf("proposal %d is no longer pending: %w", id, ErrInvalidStateTransition)
		}
		s.log.Error("proposal_apply_failed", zap.Int64("proposal_id", id), zap.Error(err))
		return nil, fmt.Errorf("apply proposal %d: %w", id, err)
	}

	msg := approvedMessage
	s.appendAudit(ctx, id, model.AuditApproved, actor.UserID, &msg)

	res = &ApproveResult{ProposalID: id, Status: model.StatusApproved, Outcomes: outcomes}
	for _, o := range outcomes {
		label := "applied"
		if o.Applied {
			res.Applied++
		} else {
			res.Skipped++
			label = o.Reason
		}
		s.metrics.Item(o.TargetCollection, label)
	}
	span.SetAttributes(attribute.Int("proposal.applied", res.Applied), attribute.Int("proposal.skipped", res.Skipped))

	s.log.Info("proposal_approved",
		zap.Int64("proposal_id", id),
		zap.Int("applied", res.Applied),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *proposalService) Reject(ctx context.Context, id int64, actor model.Actor, reason string) (p *model.Proposal, err error) {
	ctx, span := tracer.Start(ctx, "ProposalService.Reject", trace.WithAttributes(attribute.Int64("proposal.id", id)))
	defer func() {
		s.metrics.Decision("reject", decisionResult(err))
		endSpan(span, err)
	}()

	if id <= 0 {
		return nil, fmt.Errorf("%w: proposal id must be positive", ErrValidation)
	}

	p, err = s.repo.Reject(ctx, id, actor.UserID, s.now().UTC(), reason)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, fmt.Errorf("proposal %d: %w", id, ErrNotFound)
		case errors.Is(err, repository.ErrNotPending):
			return nil, fmt.Errorf("proposal %d is no longer pending: %w", id, ErrInvalidStateTransition)
		}
		return nil, fmt.Errorf("reject proposal %d: %w", id, err)
	}

	s.appendAudit(ctx, id, model.AuditRejected, actor.UserID, &reason)

	s.log.Info("proposal_rejected", zap.Int64("proposal_id", id))
	return p, nil
}

func (s *proposalService) AuditTrail(ctx context.Context, id int64) ([]model.AuditLogEntry, error) {
	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}
	return s.audit.List(ctx, id)
}

func (s *proposalService) find(ctx context.Context, id int64) (*model.Proposal, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: proposal id must be positive", ErrValidation)
	}
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("proposal %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return p, nil
}

// appendAudit runs after the transition has committed. A failure here cannot undo
// the transition, so it is logged rather than returned.
func (s *proposalService) appendAudit(ctx context.Context, id int64, action string, actorID *int64, msg *string) {
	if _, err := s.audit.Append(ctx, &id, action, actorID, msg); err != nil {
		s.log.Error("audit_append_failed",
			zap.Int64("proposal_id", id),
			zap.String("action", action),
			zap.Error(err),
		)
	}
}

func notPending(id int64, status model.ProposalStatus) error {
	return fmt.Errorf("proposal %d is %s: %w", id, status, ErrInvalidStateTransition)
}

func decisionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrInvalidStateTransition):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "invalid"
	}
	return "error"
}
