package model

import "time"

// Audit action tags.
const (
	AuditSubmitted = "submitted"
	AuditApproved  = "approved"
	AuditRejected  = "rejected"
)

// AuditLogEntry is an append-only record of a workflow transition.
type AuditLogEntry struct {
	ID         int64     `json:"id"`
	ProposalID *int64    `json:"proposal_id"`
	Action     string    `json:"action"`
	ActorID    *int64    `json:"actor_id"`
	Message    *string   `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// Actor is the caller identity supplied by the auth layer. Both ids may be absent.
type Actor struct {
	TenantID *int64 `json:"tenant_id"`
	UserID   *int64 `json:"user_id"`
}
