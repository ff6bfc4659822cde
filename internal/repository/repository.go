// Package repository defines the data access contracts of the safety agent.
// Implementations live in subpackages (postgres) and hold no business rules
// beyond the transactional guarantees documented on each method.
package repository

import (
	"context"
	"errors"
	"time"

	"safetyagent/internal/model"
)

// ErrNotPending is returned when a transition is attempted on a proposal that is
// already approved or rejected.
var ErrNotPending = errors.New("proposal is not pending")

// ErrDocumentNotFound is returned when a proposal references a document that does not exist.
var ErrDocumentNotFound = errors.New("referenced document does not exist")

// DocumentRepository persists uploaded document metadata. Documents are append-only.
type DocumentRepository interface {
	// Create inserts a document row and returns it with database-assigned id and timestamp.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns sql.ErrNoRows when the document does not exist.
	FindByID(ctx context.Context, id int64) (*model.Document, error)
}

// RowInsert is one allow-listed row the write gate wants inserted into a live collection.
// Columns and Values are parallel and already filtered.
type RowInsert struct {
	ItemID     int64
	Collection string
	Columns    []string
	Values     []any
}

// ProposalRepository persists proposals and their items and owns their status transitions.
type ProposalRepository interface {
	// Create stores the proposal in pending state together with all items, atomically.
	// An unknown DocumentID yields ErrDocumentNotFound.
	Create(ctx context.Context, p *model.Proposal, items []model.ProposedItem) (*model.Proposal, error)

	// FindByID returns sql.ErrNoRows when the proposal does not exist.
	FindByID(ctx context.Context, id int64) (*model.Proposal, error)

	// List returns proposals newest first; an empty status returns all of them.
	List(ctx context.Context, status model.ProposalStatus) ([]model.Proposal, error)

	// ListItems returns the proposal's items in insertion order.
	ListItems(ctx context.Context, proposalID int64) ([]model.ProposalItem, error)

	// Apply inserts rows and flips the proposal to approved in one transaction.
	// It returns sql.ErrNoRows for an unknown proposal and ErrNotPending when the
	// proposal is no longer pending; in both cases, and on any insert failure,
	// nothing is written.
	Apply(ctx context.Context, proposalID int64, approverID *int64, at time.Time, rows []RowInsert) error

	// Reject marks a pending proposal rejected. Errors as for Apply.
	Reject(ctx context.Context, proposalID int64, rejecterID *int64, at time.Time, reason string) (*model.Proposal, error)
}

// AuditRepository appends to and reads the audit trail. Entries are never updated.
type AuditRepository interface {
	Append(ctx context.Context, e *model.AuditLogEntry) (*model.AuditLogEntry, error)
	ListByProposal(ctx context.Context, proposalID int64) ([]model.AuditLogEntry, error)
}
