package academic

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

var (
	// errors
	ErrCourseNotFound   = errors.New("course not found")
	ErrSubjectNotFound  = errors.New("subject not found")
	ErrSemesterNotFound = errors.New("semester not found")
	errNotStaff         = errors.New("the subject owner must be a staff account")
	errEndBeforeStart   = errors.New("end date must be on or after the start date")
)

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		CreateSubject(ctx context.Context, s Subject, exec ...core.DBExecutor) (Subject, error)
		QuerySubjects(ctx context.Context, filter SubjectFilter, exec ...core.DBExecutor) ([]Subject, error)
		GetSubject(ctx context.Context, id string, exec ...core.DBExecutor) (Subject, error)
		CreateSemester(ctx context.Context, s Semester, exec ...core.DBExecutor) (Semester, error)
		QuerySemesters(ctx context.Context, exec ...core.DBExecutor) ([]Semester, error)
		GetSemester(ctx context.Context, id string, exec ...core.DBExecutor) (Semester, error)
	}

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		ListCourses(ctx context.Context) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		CreateSubject(ctx context.Context, ns NewSubject) (Subject, error)
		ListSubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error)
		GetSubject(ctx context.Context, id string) (Subject, error)
		CreateSemester(ctx context.Context, ns NewSemester) (Semester, error)
		ListSemesters(ctx context.Context) ([]Semester, error)
		GetSemester(ctx context.Context, id string) (Semester, error)
		// Enrol checks the course and semester exist before placing the student in them.
		Enrol(ctx context.Context, accountID string, e account.Enrolment) (account.StudentProfile, error)
	}

	service struct {
		repo     Repository
		accSvc   account.Service
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, accSvc account.Service, validate *validator.Validate) Service {
	return &service{repo: repo, accSvc: accSvc, validate: validate}
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	nc.Clean()
	if err := svc.validate.Struct(nc); err != nil {
		return Course{}, err
	}
	now := time.Now().UTC()
	c, err := svc.repo.CreateCourse(ctx, Course{Name: nc.Name, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		return Course{}, core.NewPersistenceError(err, "creating course")
	}
	return c, nil
}

func (svc *service) ListCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryCourses(ctx)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *service) CreateSubject(ctx context.Context, ns NewSubject) (Subject, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Subject{}, err
	}

	if _, err := svc.repo.GetCourse(ctx, ns.CourseID); err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return Subject{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return Subject{}, errors.Wrap(err, "finding course")
	}
	staff, err := svc.accSvc.GetByID(ctx, ns.StaffID)
	if err != nil && errors.Cause(err) != account.ErrNotFound {
		return Subject{}, errors.Wrap(err, "finding staff account")
	}
	if err != nil || !staff.IsStaff() {
		return Subject{}, core.NewValidationError(errNotStaff, core.FieldError{Field: "staff_id", Error: errNotStaff.Error()})
	}

	now := time.Now().UTC()
	s, err := svc.repo.CreateSubject(ctx, Subject{
		Name:      ns.Name,
		CourseID:  ns.CourseID,
		StaffID:   staff.ID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Subject{}, core.NewPersistenceError(err, "creating subject")
	}
	return s, nil
}

func (svc *service) ListSubjects(ctx context.Context, filter SubjectFilter) ([]Subject, error) {
	return svc.repo.QuerySubjects(ctx, filter)
}

func (svc *service) GetSubject(ctx context.Context, id string) (Subject, error) {
	return svc.repo.GetSubject(ctx, id)
}

func (svc *service) CreateSemester(ctx context.Context, ns NewSemester) (Semester, error) {
	if err := svc.validate.Struct(ns); err != nil {
		return Semester{}, err
	}
	start, _ := core.ParseDate(ns.StartDate) // validated above
	end, _ := core.ParseDate(ns.EndDate)
	if end.Before(start) {
		return Semester{}, core.NewValidationError(errEndBeforeStart, core.FieldError{Field: "end_date", Error: errEndBeforeStart.Error()})
	}

	now := time.Now().UTC()
	s, err := svc.repo.CreateSemester(ctx, Semester{
		StartDate: core.NewDate(start),
		EndDate:   core.NewDate(end),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Semester{}, core.NewPersistenceError(err, "creating semester")
	}
	return s, nil
}

func (svc *service) ListSemesters(ctx context.Context) ([]Semester, error) {
	return svc.repo.QuerySemesters(ctx)
}

func (svc *service) GetSemester(ctx context.Context, id string) (Semester, error) {
	return svc.repo.GetSemester(ctx, id)
}

func (svc *service) Enrol(ctx context.Context, accountID string, e account.Enrolment) (account.StudentProfile, error) {
	e.Clean()
	if err := svc.validate.Struct(e); err != nil {
		return account.StudentProfile{}, err
	}

	if _, err := svc.repo.GetCourse(ctx, e.CourseID); err != nil {
		if errors.Cause(err) == ErrCourseNotFound {
			return account.StudentProfile{}, core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
		}
		return account.StudentProfile{}, errors.Wrap(err, "finding course")
	}
	if e.SemesterID != "" {
		if _, err := svc.repo.GetSemester(ctx, e.SemesterID); err != nil {
			if errors.Cause(err) == ErrSemesterNotFound {
				return account.StudentProfile{}, core.NewValidationError(err, core.FieldError{Field: "semester_id", Error: err.Error()})
			}
			return account.StudentProfile{}, errors.Wrap(err, "finding semester")
		}
	}
	return svc.accSvc.EnrolStudent(ctx, accountID, e)
}
