package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/result"
)

const resultColumns = `id, student_id, subject_id, exam_marks, assignment_marks, created_at, updated_at`

type resultRow struct {
	ID              string    `db:"id"`
	StudentID       string    `db:"student_id"`
	SubjectID       string    `db:"subject_id"`
	ExamMarks       float64   `db:"exam_marks"`
	AssignmentMarks float64   `db:"assignment_marks"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (row resultRow) result() result.Result {
	return result.Result{
		ID:              row.ID,
		StudentID:       row.StudentID,
		SubjectID:       row.SubjectID,
		ExamMarks:       row.ExamMarks,
		AssignmentMarks: row.AssignmentMarks,
		CreatedAt:       row.CreatedAt.UTC(),
		UpdatedAt:       row.UpdatedAt.UTC(),
	}
}

type resultRepository struct {
	baseRepository
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(exec core.DBExecutor) result.Repository {
	return &resultRepository{baseRepository{exec: exec}}
}

func (repo resultRepository) QueryResults(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]result.Result, error) {
	var rows []resultRow
	q := `SELECT ` + resultColumns + ` FROM result WHERE student_id = $1 ORDER BY created_at, id`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, studentID); err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	results := make([]result.Result, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.result())
	}
	return results, nil
}

func (repo resultRepository) UpsertResult(ctx context.Context, r result.Result, exec ...core.DBExecutor) (result.Result, error) {
	q := `INSERT INTO result (` + resultColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT ON CONSTRAINT result_student_subject_key DO UPDATE SET
			exam_marks = EXCLUDED.exam_marks,
			assignment_marks = EXCLUDED.assignment_marks,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + resultColumns

	var row resultRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q,
		uuid.New().String(), r.StudentID, r.SubjectID, r.ExamMarks, r.AssignmentMarks, r.CreatedAt.UTC(), r.UpdatedAt.UTC())
	if err != nil {
		return result.Result{}, errors.Wrap(err, "upserting result")
	}
	return row.result(), nil
}
