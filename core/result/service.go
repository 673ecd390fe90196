package result

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
)

var (
	// errors
	ErrNotSubjectStaff = errors.New("only the subject's staff can record its results")
	errNotEnrolled     = errors.New("student is not enrolled in the subject's course")
)

type (
	Repository interface {
		QueryResults(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]Result, error)
		// UpsertResult inserts the result or overwrites the marks of the existing (student, subject) one.
		UpsertResult(ctx context.Context, r Result, exec ...core.DBExecutor) (Result, error)
	}

	Service interface {
		GetForStudent(ctx context.Context, student account.StudentProfile) ([]SubjectResult, error)
		Record(ctx context.Context, staff account.Account, nr NewResult) (Result, error)
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

// GetForStudent returns every result of the student, each paired with its subject.
func (svc *service) GetForStudent(ctx context.Context, student account.StudentProfile) ([]SubjectResult, error) {
	results, err := svc.repo.QueryResults(ctx, student.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}

	subjects := make(map[string]academic.Subject)
	views := make([]SubjectResult, 0, len(results))
	for _, r := range results {
		subject, ok := subjects[r.SubjectID]
		if !ok {
			if subject, err = svc.academicSvc.GetSubject(ctx, r.SubjectID); err != nil {
				return nil, errors.Wrap(err, "finding subject")
			}
			subjects[r.SubjectID] = subject
		}
		views = append(views, SubjectResult{Result: r, Subject: subject})
	}
	return views, nil
}

// Record sets the marks of a student in a subject taught by staff.
func (svc *service) Record(ctx context.Context, staff account.Account, nr NewResult) (Result, error) {
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.SubjectID = core.CleanString(nr.SubjectID)
	if err := svc.validate.Struct(nr); err != nil {
		return Result{}, err
	}

	subject, err := svc.academicSvc.GetSubject(ctx, nr.SubjectID)
	if err != nil {
		return Result{}, err
	}
	if !staff.IsStaff() || subject.StaffID != staff.ID {
		return Result{}, ErrNotSubjectStaff
	}
	student, err := svc.accSvc.GetStudent(ctx, account.StudentFilter{ID: nr.StudentID})
	if err != nil {
		return Result{}, err
	}
	if student.CourseID != subject.CourseID {
		return Result{}, core.NewValidationError(errNotEnrolled, core.FieldError{Field: "student_id", Error: errNotEnrolled.Error()})
	}

	now := time.Now().UTC()
	var res Result
	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		res, err = svc.repo.UpsertResult(ctx, Result{
			StudentID:       student.ID,
			SubjectID:       subject.ID,
			ExamMarks:       nr.ExamMarks,
			AssignmentMarks: nr.AssignmentMarks,
			CreatedAt:       now,
			UpdatedAt:       now,
		}, exec)
		return err
	})
	if err != nil {
		return Result{}, core.NewPersistenceError(err, "recording result")
	}
	return res, nil
}
