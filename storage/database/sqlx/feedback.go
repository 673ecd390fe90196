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
	"github.com/trezcool/shule/core/feedback"
)

const feedbackColumns = `id, account_id, role, message, reply, replied_at, created_at, updated_at`

type feedbackRow struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	Role      string    `db:"role"`
	Message   string    `db:"message"`
	Reply     string    `db:"reply"`
	RepliedAt null.Time `db:"replied_at"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func newFeedbackRow(f feedback.Feedback) feedbackRow {
	return feedbackRow{
		ID:        f.ID,
		AccountID: f.AccountID,
		Role:      string(f.Role),
		Message:   f.Message,
		Reply:     f.Reply,
		RepliedAt: null.TimeFromPtr(f.RepliedAt),
		CreatedAt: f.CreatedAt.UTC(),
		UpdatedAt: f.UpdatedAt.UTC(),
	}
}

func (row feedbackRow) feedback() feedback.Feedback {
	f := feedback.Feedback{
		ID:        row.ID,
		AccountID: row.AccountID,
		Role:      account.Role(row.Role),
		Message:   row.Message,
		Reply:     row.Reply,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if row.RepliedAt.Valid {
		t := row.RepliedAt.Time.UTC()
		f.RepliedAt = &t
	}
	return f
}

type feedbackRepository struct {
	baseRepository
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(exec core.DBExecutor) feedback.Repository {
	return &feedbackRepository{baseRepository{exec: exec}}
}

func (repo feedbackRepository) CreateFeedback(ctx context.Context, f feedback.Feedback, exec ...core.DBExecutor) (feedback.Feedback, error) {
	f.ID = uuid.New().String()
	q := `INSERT INTO feedback (` + feedbackColumns + `)
		VALUES (:id, :account_id, :role, :message, :reply, :replied_at, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newFeedbackRow(f)); err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "inserting feedback")
	}
	return f, nil
}

func (repo feedbackRepository) QueryFeedback(
	ctx context.Context,
	filter feedback.QueryFilter,
	ordering []core.DBOrdering,
	exec ...core.DBExecutor,
) ([]feedback.Feedback, error) {
	q := `SELECT ` + feedbackColumns + ` FROM feedback WHERE true`
	var args []interface{}
	if filter.AccountID != "" {
		args = append(args, filter.AccountID)
		q += ` AND account_id = $` + strconv.Itoa(len(args))
	}
	if filter.Answered != nil {
		if *filter.Answered {
			q += ` AND reply <> ''`
		} else {
			q += ` AND reply = ''`
		}
	}
	q += orderBy(ordering, feedback.OrderingFields, "created_at DESC, id")

	var rows []feedbackRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying feedback")
	}
	list := make([]feedback.Feedback, 0, len(rows))
	for _, row := range rows {
		list = append(list, row.feedback())
	}
	return list, nil
}

func (repo feedbackRepository) GetFeedback(ctx context.Context, id string, exec ...core.DBExecutor) (feedback.Feedback, error) {
	var row feedbackRow
	q := `SELECT ` + feedbackColumns + ` FROM feedback WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return feedback.Feedback{}, trapNoRowsErr(err, feedback.ErrNotFound, "getting feedback")
	}
	return row.feedback(), nil
}

func (repo feedbackRepository) UpdateFeedback(ctx context.Context, f feedback.Feedback, exec ...core.DBExecutor) (feedback.Feedback, error) {
	q := `UPDATE feedback SET reply = :reply, replied_at = :replied_at, updated_at = :updated_at WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newFeedbackRow(f))
	if err != nil {
		return feedback.Feedback{}, errors.Wrap(err, "updating feedback")
	}
	if err = checkAffected(res, feedback.ErrNotFound); err != nil {
		return feedback.Feedback{}, err
	}
	return f, nil
}
