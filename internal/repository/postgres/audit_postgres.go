package postgres

import (
	"context"
	"database/sql"

	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

// AuditPostgres is the append-only audit trail backed by the audit_log table.
type AuditPostgres struct {
	db *sql.DB
}

func NewAuditPostgres(db *sql.DB) *AuditPostgres {
	return &AuditPostgres{db: db}
}

var _ repository.AuditRepository = (*AuditPostgres)(nil)

func (r *AuditPostgres) Append(ctx context.Context, e *model.AuditLogEntry) (*model.AuditLogEntry, error) {
	const q = `
		INSERT INTO audit_log (proposal_id, action, actor_id, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, proposal_id, action, actor_id, message, created_at`
	return scanAudit(r.db.QueryRowContext(ctx, q,
		nullInt64(e.ProposalID),
		e.Action,
		nullInt64(e.ActorID),
		nullString(e.Message),
	))
}

func (r *AuditPostgres) ListByProposal(ctx context.Context, proposalID int64) ([]model.AuditLogEntry, error) {
	const q = `
		SELECT id, proposal_id, action, actor_id, message, created_at
		FROM audit_log
		WHERE proposal_id = $1
		ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.AuditLogEntry, 0)
	for rows.Next() {
		e, err := scanAudit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanAudit(row rowScanner) (*model.AuditLogEntry, error) {
	var (
		e          model.AuditLogEntry
		proposalID sql.NullInt64
		actorID    sql.NullInt64
		message    sql.NullString
	)
	if err := row.Scan(&e.ID, &proposalID, &e.Action, &actorID, &message, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.ProposalID = int64Ptr(proposalID)
	e.ActorID = int64Ptr(actorID)
	e.Message = stringPtr(message)
	return &e, nil
}
