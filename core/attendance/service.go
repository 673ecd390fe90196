package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
)

var (
	// errors
	ErrNotSubjectStaff  = errors.New("only the subject's staff can take its attendance")
	ErrDuplicateRecord  = errors.New("attendance already taken for this student in this session")
	errStartAfterEnd    = errors.New("start date must be on or before the end date")
	errDuplicateStudent = errors.New("student marked more than once")
	errNotEnrolled      = errors.New("student is not enrolled in the subject's course")
	errOutsideSemester  = errors.New("date is outside the semester")
)

type (
	Repository interface {
		// QuerySummary returns one row per subject of courseID, ordered by subject name then id.
		QuerySummary(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) ([]SubjectSummary, error)
		// QueryRecords returns the student's rows for subjectID with a session date in [start, end], ordered by date.
		QueryRecords(ctx context.Context, studentID, subjectID string, start, end core.Date, exec ...core.DBExecutor) ([]RecordView, error)
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		// CreateRecords reports ErrDuplicateRecord on a (session, student) collision.
		CreateRecords(ctx context.Context, records []Record, exec ...core.DBExecutor) ([]Record, error)
		QuerySessions(ctx context.Context, subjectID string, exec ...core.DBExecutor) ([]Session, error)
	}

	Service interface {
		Summary(ctx context.Context, student account.StudentProfile) ([]SubjectSummary, error)
		InRange(ctx context.Context, student account.StudentProfile, q RangeQuery) ([]RecordView, error)
		Take(ctx context.Context, staff account.Account, ns NewSession) (TakenSession, error)
		ListSessions(ctx context.Context, staff account.Account, subjectID string) ([]Session, error)
	}

	service struct {
		repo        Repository
		tx          core.TxRunner
		accSvc      account.Service
		academicSvc academic.Service
		validate    *validator.Validate
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(
	repo Repository,
	tx core.TxRunner,
	accSvc account.Service,
	academicSvc academic.Service,
	validate *validator.Validate,
) Service {
	return &service{
		repo:        repo,
		tx:          tx,
		accSvc:      accSvc,
		academicSvc: academicSvc,
		validate:    validate,
	}
}

// Summary counts, for every subject of the student's course, the sessions the student attended and missed.
// A student not enrolled in any course gets an empty summary.
func (svc *service) Summary(ctx context.Context, student account.StudentProfile) ([]SubjectSummary, error) {
	if student.CourseID == "" {
		return []SubjectSummary{}, nil
	}
	summary, err := svc.repo.QuerySummary(ctx, student.ID, student.CourseID)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance summary")
	}
	return summary, nil
}

// InRange lists the student's records of one subject between two dates, both included.
func (svc *service) InRange(ctx context.Context, student account.StudentProfile, q RangeQuery) ([]RecordView, error) {
	q.SubjectID = core.CleanString(q.SubjectID)
	if err := svc.validate.Struct(q); err != nil {
		return nil, err
	}
	start, _ := core.ParseDate(q.StartDate) // validated above
	end, _ := core.ParseDate(q.EndDate)
	if start.After(end) {
		return nil, core.NewValidationError(errStartAfterEnd, core.FieldError{Field: "start_date", Error: errStartAfterEnd.Error()})
	}

	if _, err := svc.academicSvc.GetSubject(ctx, q.SubjectID); err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryRecords(ctx, student.ID, q.SubjectID, core.NewDate(start), core.NewDate(end))
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance records")
	}
	return records, nil
}

func (svc *service) ownedSubject(ctx context.Context, staff account.Account, subjectID string) (academic.Subject, error) {
	subject, err := svc.academicSvc.GetSubject(ctx, subjectID)
	if err != nil {
		return academic.Subject{}, err
	}
	if !staff.IsStaff() || subject.StaffID != staff.ID {
		return academic.Subject{}, ErrNotSubjectStaff
	}
	return subject, nil
}

// Take writes a session of subject and one record per mark in a single transaction.
// Only the subject's staff may take it, and every marked student must be enrolled in the subject's course.
func (svc *service) Take(ctx context.Context, staff account.Account, ns NewSession) (TakenSession, error) {
	ns.Clean()
	if err := svc.validate.Struct(ns); err != nil {
		return TakenSession{}, err
	}
	date, _ := core.ParseDate(ns.Date) // validated above

	subject, err := svc.ownedSubject(ctx, staff, ns.SubjectID)
	if err != nil {
		return TakenSession{}, err
	}

	if ns.SemesterID != "" {
		sem, err := svc.academicSvc.GetSemester(ctx, ns.SemesterID)
		if err != nil {
			if errors.Cause(err) == academic.ErrSemesterNotFound {
				return TakenSession{}, core.NewValidationError(err, core.FieldError{Field: "semester_id", Error: err.Error()})
			}
			return TakenSession{}, errors.Wrap(err, "finding semester")
		}
		if !sem.Contains(core.NewDate(date)) {
			return TakenSession{}, core.NewValidationError(errOutsideSemester, core.FieldError{Field: "date", Error: errOutsideSemester.Error()})
		}
	}

	seen := make(map[string]struct{}, len(ns.Marks))
	for i, m := range ns.Marks {
		field := fmt.Sprintf("marks[%d].student_id", i)
		if _, ok := seen[m.StudentID]; ok {
			return TakenSession{}, core.NewValidationError(errDuplicateStudent, core.FieldError{Field: field, Error: errDuplicateStudent.Error()})
		}
		seen[m.StudentID] = struct{}{}

		student, err := svc.accSvc.GetStudent(ctx, account.StudentFilter{ID: m.StudentID})
		if err != nil {
			if errors.Cause(err) == account.ErrProfileNotFound {
				return TakenSession{}, core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
			}
			return TakenSession{}, errors.Wrap(err, "finding student")
		}
		if student.CourseID != subject.CourseID {
			return TakenSession{}, core.NewValidationError(errNotEnrolled, core.FieldError{Field: field, Error: errNotEnrolled.Error()})
		}
	}

	now := time.Now().UTC()
	var taken TakenSession
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		sess, err := svc.repo.CreateSession(ctx, Session{
			SubjectID:  subject.ID,
			Date:       core.NewDate(date),
			SemesterID: ns.SemesterID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, exec)
		if err != nil {
			return err
		}

		records := make([]Record, 0, len(ns.Marks))
		for _, m := range ns.Marks {
			records = append(records, Record{
				SessionID: sess.ID,
				StudentID: m.StudentID,
				Present:   m.Present,
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if records, err = svc.repo.CreateRecords(ctx, records, exec); err != nil {
			return err
		}
		taken = TakenSession{Session: sess, Records: records}
		return nil
	})
	if err != nil {
		if errors.Cause(err) == ErrDuplicateRecord {
			return TakenSession{}, core.NewConflictError(ErrDuplicateRecord)
		}
		return TakenSession{}, core.NewPersistenceError(err, "taking attendance")
	}
	return taken, nil
}

func (svc *service) ListSessions(ctx context.Context, staff account.Account, subjectID string) ([]Session, error) {
	subject, err := svc.ownedSubject(ctx, staff, core.CleanString(subjectID))
	if err != nil {
		return nil, err
	}
	sessions, err := svc.repo.QuerySessions(ctx, subject.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying sessions")
	}
	return sessions, nil
}
