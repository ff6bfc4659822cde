package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"safetyagent/internal/model"
	"safetyagent/internal/repository"
)

var proposalRowColumns = []string{
	"id", "tenant_id", "title", "description", "status", "document_id", "submitted_by", "submitted_at",
	"approved_by", "approved_at", "rejected_by", "rejected_at", "rejection_reason",
}

func pendingRow(rows *sqlmock.Rows, id int64, at time.Time) *sqlmock.Rows {
	return rows.AddRow(id, nil, "Safety Agent Text", "Proposed 1 change(s) from user text.", "pending", nil, int64(9), at, nil, nil, nil, nil, nil)
}

func newProposalRepo(t *testing.T) (*ProposalPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewProposalPostgres(db), mock
}

func TestProposalPostgres_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	submitter := int64(9)

	items := []model.ProposedItem{
		{TargetCollection: "FireSafety", Action: model.ActionInsert, Payload: model.Payload{"Location": "Warehouse"}},
		{TargetCollection: "Bogus", Action: model.ActionInsert, Payload: model.Payload{}},
	}

	t.Run("stores proposal and items in one transaction", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO proposals").
			WithArgs(nil, "Safety Agent Text", "Proposed 2 change(s) from user text.", "pending", nil, submitter).
			WillReturnRows(pendingRow(sqlmock.NewRows(proposalRowColumns), 5, now))
		mock.ExpectExec("INSERT INTO proposal_items").
			WithArgs(int64(5), "FireSafety", "INSERT", `{"Location":"Warehouse"}`).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO proposal_items").
			WithArgs(int64(5), "Bogus", "INSERT", `{}`).
			WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectCommit()

		p, err := repo.Create(ctx, &model.Proposal{
			Title:       "Safety Agent Text",
			Description: "Proposed 2 change(s) from user text.",
			SubmittedBy: &submitter,
		}, items)

		require.NoError(t, err)
		assert.Equal(t, int64(5), p.ID)
		assert.Equal(t, model.StatusPending, p.Status)
		assert.Nil(t, p.ApprovedAt)
		assert.Nil(t, p.RejectedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("item failure rolls back the proposal", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO proposals").
			WillReturnRows(pendingRow(sqlmock.NewRows(proposalRowColumns), 6, now))
		mock.ExpectExec("INSERT INTO proposal_items").
			WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		p, err := repo.Create(ctx, &model.Proposal{Title: "t"}, items)

		assert.EqualError(t, err, "disk full")
		assert.Nil(t, p)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown document", func(t *testing.T) {
		repo, mock := newProposalRepo(t)
		docID := int64(404)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO proposals").
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "proposals_document_id_fkey"})
		mock.ExpectRollback()

		p, err := repo.Create(ctx, &model.Proposal{Title: "t", DocumentID: &docID}, items)

		assert.ErrorIs(t, err, repository.ErrDocumentNotFound)
		assert.Nil(t, p)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("other foreign key violations pass through", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO proposals").
			WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "proposals_tenant_id_fkey"})
		mock.ExpectRollback()

		_, err := repo.Create(ctx, &model.Proposal{Title: "t"}, nil)

		assert.NotErrorIs(t, err, repository.ErrDocumentNotFound)
		var pgErr *pgconn.PgError
		assert.ErrorAs(t, err, &pgErr)
	})
}

func TestProposalPostgres_List(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("all statuses", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		rows := sqlmock.NewRows(proposalRowColumns)
		pendingRow(rows, 2, now)
		rows.AddRow(int64(1), int64(4), "Safety Agent Import", "d", "approved", int64(3), nil, now.Add(-time.Hour), int64(8), now, nil, nil, nil)

		mock.ExpectQuery(regexp.QuoteMeta("FROM proposals ORDER BY submitted_at DESC, id DESC")).
			WithoutArgs().
			WillReturnRows(rows)

		list, err := repo.List(ctx, "")

		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(2), list[0].ID)
		assert.Equal(t, model.StatusApproved, list[1].Status)
		require.NotNil(t, list[1].ApprovedAt)
		assert.Equal(t, int64(3), *list[1].DocumentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("filtered by status", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta("FROM proposals WHERE status = $1 ORDER BY")).
			WithArgs("rejected").
			WillReturnRows(sqlmock.NewRows(proposalRowColumns))

		list, err := repo.List(ctx, model.StatusRejected)

		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProposalPostgres_ListItems(t *testing.T) {
	repo, mock := newProposalRepo(t)

	rows := sqlmock.NewRows([]string{"id", "proposal_id", "target_collection", "action", "payload"}).
		AddRow(int64(1), int64(5), "FireSafety", "INSERT", []byte(`{"Location":"A","Extra":{"k":1}}`)).
		AddRow(int64(2), int64(5), "HealthHazards", "INSERT", []byte(`{}`))

	mock.ExpectQuery("FROM proposal_items").
		WithArgs(int64(5)).
		WillReturnRows(rows)

	items, err := repo.ListItems(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, model.ActionInsert, items[0].Action)
	assert.Equal(t, "A", items[0].Payload["Location"])
	assert.Equal(t, map[string]any{"k": float64(1)}, items[0].Payload["Extra"])
	assert.Empty(t, items[1].Payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProposalPostgres_Apply(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	approver := int64(42)

	lockQuery := regexp.QuoteMeta("SELECT status FROM proposals WHERE id = $1 FOR UPDATE")
	fireInsert := regexp.QuoteMeta(`INSERT INTO "FireSafety" ("InspectionDate", "Location") VALUES ($1, $2)`)
	healthInsert := regexp.QuoteMeta(`INSERT INTO "HealthHazards" ("RiskLevel") VALUES ($1)`)

	rows := []repository.RowInsert{
		{ItemID: 1, Collection: "FireSafety", Columns: []string{"InspectionDate", "Location"}, Values: []any{"2026-03-01", "Warehouse"}},
		{ItemID: 2, Collection: "HealthHazards", Columns: []string{"RiskLevel"}, Values: []any{"TBD"}},
	}

	t.Run("inserts rows and approves", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
		mock.ExpectExec(fireInsert).WithArgs("2026-03-01", "Warehouse").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(healthInsert).WithArgs("TBD").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("UPDATE proposals").
			WithArgs(int64(5), "approved", approver, at, "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Apply(ctx, 5, &approver, at, rows)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nothing to insert still approves", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
		mock.ExpectExec("UPDATE proposals").
			WithArgs(int64(5), "approved", nil, at, "pending").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		assert.NoError(t, repo.Apply(ctx, 5, nil, at, nil))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown proposal", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(99)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		err := repo.Apply(ctx, 99, &approver, at, rows)

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already decided proposal writes nothing", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("approved"))
		mock.ExpectRollback()

		err := repo.Apply(ctx, 5, &approver, at, rows)

		assert.ErrorIs(t, err, repository.ErrNotPending)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed insert rolls back everything", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
		mock.ExpectExec(fireInsert).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(healthInsert).
			WillReturnError(errors.New(`null value in column "Location"`))
		mock.ExpectRollback()

		err := repo.Apply(ctx, 5, &approver, at, rows)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "insert item 2 into HealthHazards")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("status changed under the lock", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectBegin()
		mock.ExpectQuery(lockQuery).WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("pending"))
		mock.ExpectExec("UPDATE proposals").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.Apply(ctx, 5, &approver, at, nil)

		assert.ErrorIs(t, err, repository.ErrNotPending)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestProposalPostgres_Reject(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rejecter := int64(42)

	t.Run("pending proposal is rejected", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		rows := sqlmock.NewRows(proposalRowColumns).
			AddRow(int64(5), nil, "t", "d", "rejected", nil, nil, at.Add(-time.Hour), nil, nil, rejecter, at, "duplicate")
		mock.ExpectQuery("UPDATE proposals").
			WithArgs(int64(5), "rejected", rejecter, at, "duplicate", "pending").
			WillReturnRows(rows)

		p, err := repo.Reject(ctx, 5, &rejecter, at, "duplicate")

		require.NoError(t, err)
		assert.Equal(t, model.StatusRejected, p.Status)
		assert.Equal(t, "duplicate", *p.RejectionReason)
		assert.Equal(t, at, *p.RejectedAt)
		assert.Nil(t, p.ApprovedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("terminal proposal", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectQuery("UPDATE proposals").
			WillReturnRows(sqlmock.NewRows(proposalRowColumns))
		mock.ExpectQuery("SELECT (.+) FROM proposals WHERE id = ?").
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows(proposalRowColumns).
				AddRow(int64(5), nil, "t", "d", "approved", nil, nil, at, rejecter, at, nil, nil, nil))

		p, err := repo.Reject(ctx, 5, &rejecter, at, "")

		assert.ErrorIs(t, err, repository.ErrNotPending)
		assert.Nil(t, p)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown proposal", func(t *testing.T) {
		repo, mock := newProposalRepo(t)

		mock.ExpectQuery("UPDATE proposals").
			WillReturnRows(sqlmock.NewRows(proposalRowColumns))
		mock.ExpectQuery("SELECT (.+) FROM proposals WHERE id = ?").
			WithArgs(int64(77)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.Reject(ctx, 77, nil, at, "")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestInsertStatement_QuotesIdentifiers(t *testing.T) {
	got := insertStatement(`Fire"Safety`, []string{"Location", "Risk Level"})
	assert.Equal(t, `INSERT INTO "Fire""Safety" ("Location", "Risk Level") VALUES ($1, $2)`, got)
}
