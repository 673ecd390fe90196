package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/attendance"
)

type sessionRow struct {
	ID         string      `db:"id"`
	SubjectID  string      `db:"subject_id"`
	Date       core.Date   `db:"date"`
	SemesterID null.String `db:"semester_id"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

func (row sessionRow) session() attendance.Session {
	return attendance.Session{
		ID:         row.ID,
		SubjectID:  row.SubjectID,
		Date:       row.Date,
		SemesterID: row.SemesterID.String,
		CreatedAt:  row.CreatedAt.UTC(),
		UpdatedAt:  row.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	baseRepository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(exec core.DBExecutor) attendance.Repository {
	return &attendanceRepository{baseRepository{exec: exec}}
}

func (repo attendanceRepository) QuerySummary(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) ([]attendance.SubjectSummary, error) {
	q := `SELECT s.id AS subject_id, s.name AS subject_name,
			COUNT(r.id) FILTER (WHERE r.present) AS present,
			COUNT(r.id) FILTER (WHERE NOT r.present) AS absent
		FROM subject s
		LEFT JOIN attendance_session a ON a.subject_id = s.id
		LEFT JOIN attendance_record r ON r.session_id = a.id AND r.student_id = $1
		WHERE s.course_id = $2
		GROUP BY s.id, s.name
		ORDER BY s.name, s.id`

	summary := make([]attendance.SubjectSummary, 0)
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &summary, q, studentID, courseID); err != nil {
		return nil, errors.Wrap(err, "querying attendance summary")
	}
	return summary, nil
}

func (repo attendanceRepository) QueryRecords(
	ctx context.Context,
	studentID, subjectID string,
	start, end core.Date,
	exec ...core.DBExecutor,
) ([]attendance.RecordView, error) {
	q := `SELECT a.id AS session_id, a.subject_id, a.date, r.present
		FROM attendance_record r
		JOIN attendance_session a ON a.id = r.session_id
		WHERE r.student_id = $1 AND a.subject_id = $2 AND a.date BETWEEN $3 AND $4
		ORDER BY a.date, a.created_at, a.id`

	records := make([]attendance.RecordView, 0)
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &records, q, studentID, subjectID, start, end); err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return records, nil
}

func (repo attendanceRepository) CreateSession(ctx context.Context, s attendance.Session, exec ...core.DBExecutor) (attendance.Session, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO attendance_session (id, subject_id, date, semester_id, created_at, updated_at)
		VALUES (:id, :subject_id, :date, :semester_id, :created_at, :updated_at)`
	row := sessionRow{
		ID:         s.ID,
		SubjectID:  s.SubjectID,
		Date:       s.Date,
		SemesterID: null.NewString(s.SemesterID, s.SemesterID != ""),
		CreatedAt:  s.CreatedAt.UTC(),
		UpdatedAt:  s.UpdatedAt.UTC(),
	}
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return attendance.Session{}, errors.Wrap(err, "inserting attendance session")
	}
	return s, nil
}

func (repo attendanceRepository) CreateRecords(ctx context.Context, records []attendance.Record, exec ...core.DBExecutor) ([]attendance.Record, error) {
	q := `INSERT INTO attendance_record (id, session_id, student_id, present, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	e := repo.getExec(exec)
	created := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		r.ID = uuid.New().String()
		if _, err := e.ExecContext(ctx, q, r.ID, r.SessionID, r.StudentID, r.Present, r.CreatedAt.UTC(), r.UpdatedAt.UTC()); err != nil {
			if pqErr, ok := pqError(err); ok && pqErr.Code == uniqueViolation {
				return nil, attendance.ErrDuplicateRecord
			}
			return nil, errors.Wrap(err, "inserting attendance record")
		}
		created = append(created, r)
	}
	return created, nil
}

func (repo attendanceRepository) QuerySessions(ctx context.Context, subjectID string, exec ...core.DBExecutor) ([]attendance.Session, error) {
	var rows []sessionRow
	q := `SELECT id, subject_id, date, semester_id, created_at, updated_at
		FROM attendance_session WHERE subject_id = $1 ORDER BY date DESC, created_at DESC, id`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, subjectID); err != nil {
		return nil, errors.Wrap(err, "querying attendance sessions")
	}
	sessions := make([]attendance.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.session())
	}
	return sessions, nil
}
