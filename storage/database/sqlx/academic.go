package sqlxrepos

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
)

type courseRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type subjectRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CourseID  string    `db:"course_id"`
	StaffID   string    `db:"staff_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type semesterRow struct {
	ID        string    `db:"id"`
	StartDate core.Date `db:"start_date"`
	EndDate   core.Date `db:"end_date"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (row courseRow) course() academic.Course {
	return academic.Course{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt.UTC(), UpdatedAt: row.UpdatedAt.UTC()}
}

func (row subjectRow) subject() academic.Subject {
	return academic.Subject{
		ID:        row.ID,
		Name:      row.Name,
		CourseID:  row.CourseID,
		StaffID:   row.StaffID,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (row semesterRow) semester() academic.Semester {
	return academic.Semester{
		ID:        row.ID,
		StartDate: row.StartDate,
		EndDate:   row.EndDate,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

type academicRepository struct {
	baseRepository
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(exec core.DBExecutor) academic.Repository {
	return &academicRepository{baseRepository{exec: exec}}
}

func (repo academicRepository) CreateCourse(ctx context.Context, c academic.Course, exec ...core.DBExecutor) (academic.Course, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO course (id, name, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	if _, err := repo.getExec(exec).ExecContext(ctx, q, c.ID, c.Name, c.CreatedAt.UTC(), c.UpdatedAt.UTC()); err != nil {
		return academic.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo academicRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]academic.Course, error) {
	var rows []courseRow
	q := `SELECT id, name, created_at, updated_at FROM course ORDER BY name, id`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	courses := make([]academic.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, row.course())
	}
	return courses, nil
}

func (repo academicRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (academic.Course, error) {
	var row courseRow
	q := `SELECT id, name, created_at, updated_at FROM course WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return academic.Course{}, trapNoRowsErr(err, academic.ErrCourseNotFound, "getting course")
	}
	return row.course(), nil
}

func (repo academicRepository) CreateSubject(ctx context.Context, s academic.Subject, exec ...core.DBExecutor) (academic.Subject, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO subject (id, name, course_id, staff_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.getExec(exec).ExecContext(ctx, q, s.ID, s.Name, s.CourseID, s.StaffID, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	if err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == foreignKeyViolation {
			return academic.Subject{}, academic.ErrCourseNotFound
		}
		return academic.Subject{}, errors.Wrap(err, "inserting subject")
	}
	return s, nil
}

func (repo academicRepository) QuerySubjects(ctx context.Context, filter academic.SubjectFilter, exec ...core.DBExecutor) ([]academic.Subject, error) {
	q := `SELECT id, name, course_id, staff_id, created_at, updated_at FROM subject WHERE true`
	args := make([]interface{}, 0, 2)
	if filter.CourseID != "" {
		args = append(args, filter.CourseID)
		q += ` AND course_id = $` + strconv.Itoa(len(args))
	}
	if filter.StaffID != "" {
		args = append(args, filter.StaffID)
		q += ` AND staff_id = $` + strconv.Itoa(len(args))
	}
	q += ` ORDER BY name, id`

	var rows []subjectRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == invalidTextRepresentation {
			return []academic.Subject{}, nil
		}
		return nil, errors.Wrap(err, "querying subjects")
	}
	subjects := make([]academic.Subject, 0, len(rows))
	for _, row := range rows {
		subjects = append(subjects, row.subject())
	}
	return subjects, nil
}

func (repo academicRepository) GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (academic.Subject, error) {
	var row subjectRow
	q := `SELECT id, name, course_id, staff_id, created_at, updated_at FROM subject WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return academic.Subject{}, trapNoRowsErr(err, academic.ErrSubjectNotFound, "getting subject")
	}
	return row.subject(), nil
}

func (repo academicRepository) CreateSemester(ctx context.Context, s academic.Semester, exec ...core.DBExecutor) (academic.Semester, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO semester (id, start_date, end_date, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := repo.getExec(exec).ExecContext(ctx, q, s.ID, s.StartDate, s.EndDate, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
	if err != nil {
		return academic.Semester{}, errors.Wrap(err, "inserting semester")
	}
	return s, nil
}

func (repo academicRepository) QuerySemesters(ctx context.Context, exec ...core.DBExecutor) ([]academic.Semester, error) {
	var rows []semesterRow
	q := `SELECT id, start_date, end_date, created_at, updated_at FROM semester ORDER BY start_date DESC, id`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying semesters")
	}
	semesters := make([]academic.Semester, 0, len(rows))
	for _, row := range rows {
		semesters = append(semesters, row.semester())
	}
	return semesters, nil
}

func (repo academicRepository) GetSemester(ctx context.Context, id string, exec ...core.DBExecutor) (academic.Semester, error) {
	var row semesterRow
	q := `SELECT id, start_date, end_date, created_at, updated_at FROM semester WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return academic.Semester{}, trapNoRowsErr(err, academic.ErrSemesterNotFound, "getting semester")
	}
	return row.semester(), nil
}
