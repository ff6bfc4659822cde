package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"safetyagent/internal/database"
	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

// ProposalPostgres is a PostgreSQL implementation of repository.ProposalRepository.
type ProposalPostgres struct {
	db *sql.DB
}

// NewProposalPostgres creates a new ProposalPostgres repository.
func NewProposalPostgres(db *sql.DB) *ProposalPostgres {
	return &ProposalPostgres{db: db}
}

var _ repository.ProposalRepository = (*ProposalPostgres)(nil)

const proposalColumns = `id, tenant_id, title, description, status, document_id, submitted_by, submitted_at,
		approved_by, approved_at, rejected_by, rejected_at, rejection_reason`

// Create inserts the proposal as pending and all of its items in one transaction.
func (r *ProposalPostgres) Create(ctx context.Context, p *model.Proposal, items []model.ProposedItem) (*model.Proposal, error) {
	const qProposal = `
		INSERT INTO proposals (tenant_id, title, description, status, document_id, submitted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + proposalColumns
	const qItem = `
		INSERT INTO proposal_items (proposal_id, target_collection, action, payload)
		VALUES ($1, $2, $3, $4)`

	var created *model.Proposal
	err := database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		out, err := scanProposal(tx.QueryRowContext(ctx, qProposal,
			nullInt64(p.TenantID),
			p.Title,
			p.Description,
			string(model.StatusPending),
			nullInt64(p.DocumentID),
			nullInt64(p.SubmittedBy),
		))
		if err != nil {
			if isForeignKeyViolation(err, documentFK) {
				return repository.ErrDocumentNotFound
			}
			return err
		}
		for i, it := range items {
			payload, err := it.Payload.Encode()
			if err != nil {
				return fmt.Errorf("encode payload of item %d: %w", i, err)
			}
			if _, err := tx.ExecContext(ctx, qItem, out.ID, it.TargetCollection, string(it.Action), string(payload)); err != nil {
				return err
			}
		}
		created = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// FindByID fetches a single proposal by its ID.
func (r *ProposalPostgres) FindByID(ctx context.Context, id int64) (*model.Proposal, error) {
	const q = `SELECT ` + proposalColumns + ` FROM proposals WHERE id = $1`
	return scanProposal(r.db.QueryRowContext(ctx, q, id))
}

// List returns proposals ordered newest-submitted first, optionally filtered by exact status.
func (r *ProposalPostgres) List(ctx context.Context, status model.ProposalStatus) ([]model.Proposal, error) {
	q := `SELECT ` + proposalColumns + ` FROM proposals`
	var args []any
	if status != "" {
		q += ` WHERE status = $1`
		args = append(args, string(status))
	}
	q += ` ORDER BY submitted_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.Proposal, 0)
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListItems returns the items of a proposal in insertion order.
func (r *ProposalPostgres) ListItems(ctx context.Context, proposalID int64) ([]model.ProposalItem, error) {
	const q = `
		SELECT id, proposal_id, target_collection, action, payload
		FROM proposal_items
		WHERE proposal_id = $1
		ORDER BY id ASC`
	rows, err := r.db.QueryContext(ctx, q, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.ProposalItem, 0)
	for rows.Next() {
		var (
			it     model.ProposalItem
			action string
			raw    []byte
		)
		if err := rows.Scan(&it.ID, &it.ProposalID, &it.TargetCollection, &action, &raw); err != nil {
			return nil, err
		}
		it.Action = model.Action(action)
		if it.Payload, err = model.DecodePayload(raw); err != nil {
			return nil, fmt.Errorf("decode payload of item %d: %w", it.ID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Apply locks the proposal row, checks it is still pending, inserts every row and
// flips the status, all in one transaction. Concurrent approvals of the same
// proposal serialize on the row lock; the loser sees ErrNotPending and writes nothing.
func (r *ProposalPostgres) Apply(ctx context.Context, proposalID int64, approverID *int64, at time.Time, rows []repository.RowInsert) error {
	const qLock = `SELECT status FROM proposals WHERE id = $1 FOR UPDATE`
	const qApprove = `
		UPDATE proposals
		SET status = $2, approved_by = $3, approved_at = $4
		WHERE id = $1 AND status = $5`

	return database.WithTx(ctx, r.db, nil, func(tx *sql.Tx) error {
		var status string
		if err := tx.QueryRowContext(ctx, qLock, proposalID).Scan(&status); err != nil {
			return err
		}
		if model.ProposalStatus(status) != model.StatusPending {
			return repository.ErrNotPending
		}

		for _, row := range rows {
			if _, err := tx.ExecContext(ctx, insertStatement(row.Collection, row.Columns), row.Values...); err != nil {
				return fmt.Errorf("insert item %d into %s: %w", row.ItemID, row.Collection, err)
			}
		}

		res, err := tx.ExecContext(ctx, qApprove,
			proposalID,
			string(model.StatusApproved),
			nullInt64(approverID),
			at,
			string(model.StatusPending),
		)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n != 1 {
			return repository.ErrNotPending
		}
		return nil
	})
}

// Reject marks a pending proposal rejected with a single conditional update.
func (r *ProposalPostgres) Reject(ctx context.Context, proposalID int64, rejecterID *int64, at time.Time, reason string) (*model.Proposal, error) {
	const q = `
		UPDATE proposals
		SET status = $2, rejected_by = $3, rejected_at = $4, rejection_reason = $5
		WHERE id = $1 AND status = $6
		RETURNING ` + proposalColumns

	p, err := scanProposal(r.db.QueryRowContext(ctx, q,
		proposalID,
		string(model.StatusRejected),
		nullInt64(rejecterID),
		at,
		reason,
		string(model.StatusPending),
	))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	// Nothing updated: either the proposal is missing or it is already terminal.
	if _, ferr := r.FindByID(ctx, proposalID); ferr != nil {
		return nil, ferr
	}
	return nil, repository.ErrNotPending
}

// insertStatement builds a parameterized INSERT with quoted identifiers.
// Collection and column names come from the allow-list, never from raw payload keys.
func insertStatement(collection string, cols []string) string {
	quoted := make([]string, len(cols))
	params := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
		params[i] = "$" + strconv.Itoa(i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		pgx.Identifier{collection}.Sanitize(),
		strings.Join(quoted, ", "),
		strings.Join(params, ", "),
	)
}

func scanProposal(row rowScanner) (*model.Proposal, error) {
	var (
		p           model.Proposal
		status      string
		tenantID    sql.NullInt64
		documentID  sql.NullInt64
		submittedBy sql.NullInt64
		approvedBy  sql.NullInt64
		approvedAt  sql.NullTime
		rejectedBy  sql.NullInt64
		rejectedAt  sql.NullTime
		reason      sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&tenantID,
		&p.Title,
		&p.Description,
		&status,
		&documentID,
		&submittedBy,
		&p.SubmittedAt,
		&approvedBy,
		&approvedAt,
		&rejectedBy,
		&rejectedAt,
		&reason,
	); err != nil {
		return nil, err
	}
	p.Status = model.ProposalStatus(status)
	p.TenantID = int64Ptr(tenantID)
	p.DocumentID = int64Ptr(documentID)
	p.SubmittedBy = int64Ptr(submittedBy)
	p.ApprovedBy = int64Ptr(approvedBy)
	p.ApprovedAt = timePtr(approvedAt)
	p.RejectedBy = int64Ptr(rejectedBy)
	p.RejectedAt = timePtr(rejectedAt)
	p.RejectionReason = stringPtr(reason)
	return &p, nil
}
