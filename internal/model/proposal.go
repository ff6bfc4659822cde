package model

import (
	"encoding/json"
	"time"
)

// ProposalStatus is the lifecycle state of a Proposal.
// Only pending proposals can move; approved and rejected are terminal.
type ProposalStatus string

const (
	StatusPending  ProposalStatus = "pending"
	StatusApproved ProposalStatus = "approved"
	StatusRejected ProposalStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ProposalStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s ProposalStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Action is the kind of write a ProposalItem asks for.
type Action string

// ActionInsert is the only action the write gate applies.
const ActionInsert Action = "INSERT"

// Payload is the untrusted field/value map produced by an extractor.
// It stays untyped until the write gate filters it through the allow-list.
type Payload map[string]any

// DecodePayload parses a serialized payload. Empty input decodes to an empty payload.
func DecodePayload(raw []byte) (Payload, error) {
	p := Payload{}
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	if p == nil {
		p = Payload{}
	}
	return p, nil
}

// Encode serializes the payload as JSON text. A nil payload encodes as "{}".
func (p Payload) Encode() ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(p))
}

// ProposedItem is a candidate write before it is persisted.
type ProposedItem struct {
	TargetCollection string  `json:"target_collection" validate:"required,max=128"`
	Action           Action  `json:"action" validate:"required,max=16"`
	Payload          Payload `json:"payload"`
}

// Proposal is a reviewable batch of candidate writes awaiting a human decision.
type Proposal struct {
	ID              int64          `json:"id"`
	TenantID        *int64         `json:"tenant_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Status          ProposalStatus `json:"status"`
	DocumentID      *int64         `json:"document_id"`
	SubmittedBy     *int64         `json:"submitted_by"`
	SubmittedAt     time.Time      `json:"submitted_at"`
	ApprovedBy      *int64         `json:"approved_by"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	RejectedBy      *int64         `json:"rejected_by"`
	RejectedAt      *time.Time     `json:"rejected_at"`
	RejectionReason *string        `json:"rejection_reason"`
}

// ProposalItem is one persisted candidate write owned by a Proposal.
type ProposalItem struct {
	ID               int64   `json:"id"`
	ProposalID       int64   `json:"proposal_id"`
	TargetCollection string  `json:"target_collection"`
	Action           Action  `json:"action"`
	Payload          Payload `json:"payload"`
}

// Skip reasons reported by the write gate.
const (
	SkipUnknownCollection = "unknown_collection"
	SkipUnsupportedAction = "unsupported_action"
	SkipNoAllowedFields   = "no_allowed_fields"
)

// ItemOutcome tells the approver what happened to a single item on approval.
type ItemOutcome struct {
	ItemID           int64    `json:"item_id"`
	TargetCollection string   `json:"target_collection"`
	Applied          bool     `json:"applied"`
	Reason           string   `json:"reason,omitempty"`
	Fields           []string `json:"fields,omitempty"`
}
