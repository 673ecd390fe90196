package sqlxrepos

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/leave"
)

const leaveColumns = `id, account_id, role, date, message, status, decided_by, decided_at, created_at, updated_at`

type leaveRow struct {
	ID        string      `db:"id"`
	AccountID string      `db:"account_id"`
	Role      string      `db:"role"`
	Date      core.Date   `db:"date"`
	Message   string      `db:"message"`
	Status    string      `db:"status"`
	DecidedBy null.String `db:"decided_by"`
	DecidedAt null.Time   `db:"decided_at"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func newLeaveRow(l leave.Leave) leaveRow {
	return leaveRow{
		ID:        l.ID,
		AccountID: l.AccountID,
		Role:      string(l.Role),
		Date:      l.Date,
		Message:   l.Message,
		Status:    string(l.Status),
		DecidedBy: null.NewString(l.DecidedBy, l.DecidedBy != ""),
		DecidedAt: null.TimeFromPtr(l.DecidedAt),
		CreatedAt: l.CreatedAt.UTC(),
		UpdatedAt: l.UpdatedAt.UTC(),
	}
}

func (row leaveRow) leave() leave.Leave {
	l := leave.Leave{
		ID:        row.ID,
		AccountID: row.AccountID,
		Role:      account.Role(row.Role),
		Date:      row.Date,
		Message:   row.Message,
		Status:    leave.Status(row.Status),
		DecidedBy: row.DecidedBy.String,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.DecidedAt.Valid {
		t := row.DecidedAt.Time.UTC()
		l.DecidedAt = &t
	}
	return l
}

type leaveRepository struct {
	baseRepository
}

var _ leave.Repository = (*leaveRepository)(nil) // interface compliance check

func NewLeaveRepository(exec core.DBExecutor) leave.Repository {
	return &leaveRepository{baseRepository{exec: exec}}
}

func (repo leaveRepository) CreateLeave(ctx context.Context, l leave.Leave, exec ...core.DBExecutor) (leave.Leave, error) {
	l.ID = uuid.New().String()
	q := `INSERT INTO leave_request (` + leaveColumns + `)
		VALUES (:id, :account_id, :role, :date, :message, :status, :decided_by, :decided_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newLeaveRow(l)); err != nil {
		return leave.Leave{}, errors.Wrap(err, "inserting leave request")
	}
	return l, nil
}

func (repo leaveRepository) QueryLeaves(
	ctx context.Context,
	filter leave.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]leave.Leave, error) {
	q := `SELECT ` + leaveColumns + ` FROM leave_request WHERE true`
	args := make([]interface{}, 0, 2)
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		q += ` AND account_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += ` AND status = $` + strconv.Itoa(len(args))
	}
	q += orderBy(ordering, leave.OrderingFields, "created_at DESC, id")

	var rows []leaveRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying leave requests")
	}
	leaves := make([]leave.Leave, 0, len(rows))
	for _, row := range rows {
		leaves = append(leaves, row.leave())
	}
	return leaves, nil
}

func (repo leaveRepository) GetLeave(ctx context.Context, id string, exec ...core.DBExecutor) (leave.Leave, error) {
	var row leaveRow
	q := `SELECT ` + leaveColumns + ` FROM leave_request WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return leave.Leave{}, trapNoRowsErr(err, leave.ErrNotFound, "getting leave request")
	}
	return row.leave(), nil
}

func (repo leaveRepository) DecideLeave(ctx context.Context, l leave.Leave, exec ...core.DBExecutor) (leave.Leave, error) {
	q := `UPDATE leave_request SET
		status = :status, decided_by = :decided_by, decided_at = :decided_at, updated_at = :updated_at
		WHERE id = :id AND status = 'pending'`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newLeaveRow(l))
	if err != nil {
		return leave.Leave{}, errors.Wrap(err, "deciding leave request")
	}
	if err = checkAffected(res, leave.ErrAlreadyDecided); err != nil {
		return leave.Leave{}, err
	}
	return l, nil
}
