package testutil

import (
	"context"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/feedback"
	"github.com/trezcool/shule/core/leave"
	"github.com/trezcool/shule/core/result"
	emailsvc "github.com/trezcool/shule/services/email"
	sessionsvc "github.com/trezcool/shule/services/session"
	inmemdb "github.com/trezcool/shule/storage/database/inmem"
)

// Env wires every service on the in-memory store.
type Env struct {
	DB         *inmemdb.DB
	Conf       *core.Config
	Validate   *validator.Validate
	Translator ut.Translator
	Mail       *emailsvc.ConsoleServiceMock
	Sessions   core.SessionStore

	AccountSvc    account.Service
	AcademicSvc   academic.Service
	AttendanceSvc attendance.Service
	LeaveSvc      leave.Service
	FeedbackSvc   feedback.Service
	ResultSvc     result.Service
}

func NewConfig() *core.Config {
	return &core.Config{
		Env:       "TEST",
		TestMode:  true,
		AppName:   "Shule",
		SecretKey: "secret",
		Server: core.ServerConfig{
			Host:               "localhost",
			ShutdownTimeout:    time.Second,
			JWTExpirationDelta: time.Hour,
		},
	}
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	account.InitValidators(validate, translator)
	return validate, translator
}

func NewEnv() *Env {
	db := inmemdb.Open()
	tx := inmemdb.NewTxRunner(db)
	validate, translator := NewValidator()
	mail := emailsvc.NewConsoleServiceMock()

	accSvc := account.NewService(inmemdb.NewAccountRepository(db), tx, validate)
	academicSvc := academic.NewService(inmemdb.NewAcademicRepository(db), accSvc, validate)

	return &Env{
		DB:            db,
		Conf:          NewConfig(),
		Validate:      validate,
		Translator:    translator,
		Mail:          mail,
		Sessions:      sessionsvc.NewMemoryStore(),
		AccountSvc:    accSvc,
		AcademicSvc:   academicSvc,
		AttendanceSvc: attendance.NewService(inmemdb.NewAttendanceRepository(db), tx, accSvc, academicSvc, validate),
		LeaveSvc:      leave.NewService(inmemdb.NewLeaveRepository(db), accSvc, mail, validate),
		FeedbackSvc:   feedback.NewService(inmemdb.NewFeedbackRepository(db), accSvc, mail, validate),
		ResultSvc:     result.NewService(inmemdb.NewResultRepository(db), tx, accSvc, academicSvc, validate),
	}
}

// Reset drops every row and every sent email.
func (e *Env) Reset() {
	e.DB.Reset()
	e.Mail.Reset()
}

// Register creates an account from a `localpart.role@domain` email.
func Register(t *testing.T, svc account.Service, email, pwd string, names ...string) account.Account {
	t.Helper()
	na := account.NewAccount{Email: email, Password: pwd, PasswordConfirm: pwd}
	if len(names) > 0 {
		na.FirstName = names[0]
	}
	if len(names) > 1 {
		na.LastName = names[1]
	}
	acc, _, err := svc.Register(context.Background(), na)
	require.NoError(t, err, "Register(%s)", email)
	return acc
}

func CreateCourse(t *testing.T, svc academic.Service, name string) academic.Course {
	t.Helper()
	course, err := svc.CreateCourse(context.Background(), academic.NewCourse{Name: name})
	require.NoError(t, err, "CreateCourse(%s)", name)
	return course
}

func CreateSubject(t *testing.T, svc academic.Service, name, courseID, staffID string) academic.Subject {
	t.Helper()
	subject, err := svc.CreateSubject(context.Background(), academic.NewSubject{Name: name, CourseID: courseID, StaffID: staffID})
	require.NoError(t, err, "CreateSubject(%s)", name)
	return subject
}

func CreateSemester(t *testing.T, svc academic.Service, start, end string) academic.Semester {
	t.Helper()
	semester, err := svc.CreateSemester(context.Background(), academic.NewSemester{StartDate: start, EndDate: end})
	require.NoError(t, err, "CreateSemester(%s, %s)", start, end)
	return semester
}

// Enrol places the student account in a course (and semester, when not empty).
func Enrol(t *testing.T, svc academic.Service, accountID, courseID, semesterID string) account.StudentProfile {
	t.Helper()
	student, err := svc.Enrol(context.Background(), accountID, account.Enrolment{CourseID: courseID, SemesterID: semesterID})
	require.NoError(t, err, "Enrol(%s)", accountID)
	return student
}

// TakeAttendance records one session of subject on date, marking the given students present or absent.
func TakeAttendance(
	t *testing.T,
	svc attendance.Service,
	staff account.Account,
	subjectID, date string,
	marks map[string]bool,
) attendance.TakenSession {
	t.Helper()
	ns := attendance.NewSession{SubjectID: subjectID, Date: date}
	for studentID, present := range marks {
		ns.Marks = append(ns.Marks, attendance.Mark{StudentID: studentID, Present: present})
	}
	taken, err := svc.Take(context.Background(), staff, ns)
	require.NoError(t, err, "TakeAttendance(%s, %s)", subjectID, date)
	return taken
}
