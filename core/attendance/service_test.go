package attendance_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/tests"
)

type fixture struct {
	env        *testutil.Env
	staff      account.Account
	student    account.StudentProfile
	classmate  account.StudentProfile
	subjectID  string
	semesterID string
}

func setup(t *testing.T) fixture {
	env := testutil.NewEnv()
	staff := testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x")
	a := testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")
	b := testutil.Register(t, env.AccountSvc, "meera.student@school.com", "x")
	course := testutil.CreateCourse(t, env.AcademicSvc, "BCA")
	sem := testutil.CreateSemester(t, env.AcademicSvc, "2021-01-01", "2021-06-30")

	return fixture{
		env:        env,
		staff:      staff,
		student:    testutil.Enrol(t, env.AcademicSvc, a.ID, course.ID, sem.ID),
		classmate:  testutil.Enrol(t, env.AcademicSvc, b.ID, course.ID, sem.ID),
		subjectID:  testutil.CreateSubject(t, env.AcademicSvc, "Maths", course.ID, staff.ID).ID,
		semesterID: sem.ID,
	}
}

func TestSubjectSummary_Percentage(t *testing.T) {
	tests := []struct {
		sum  attendance.SubjectSummary
		want float64
	}{
		{sum: attendance.SubjectSummary{}, want: 0},
		{sum: attendance.SubjectSummary{Present: 3, Absent: 1}, want: 75},
		{sum: attendance.SubjectSummary{Absent: 2}, want: 0},
		{sum: attendance.SubjectSummary{Present: 2}, want: 100},
	}
	for _, tt := range tests {
		if got := tt.sum.Percentage(); got != tt.want {
			t.Errorf("%+v.Percentage() = %v; want %v", tt.sum, got, tt.want)
		}
	}
}

func TestService_Take(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	taken, err := f.env.AttendanceSvc.Take(ctx, f.staff, attendance.NewSession{
		SubjectID:  f.subjectID,
		Date:       "2021-03-01",
		SemesterID: f.semesterID,
		Marks: []attendance.Mark{
			{StudentID: f.student.ID, Present: true},
			{StudentID: f.classmate.ID, Present: false},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, f.semesterID, taken.SemesterID)
	assert.Len(t, taken.Records, 2)

	// a second session on the same day is a separate event
	testutil.TakeAttendance(t, f.env.AttendanceSvc, f.staff, f.subjectID, "2021-03-01", map[string]bool{f.student.ID: true})

	sessions, err := f.env.AttendanceSvc.ListSessions(ctx, f.staff, f.subjectID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	other := testutil.Register(t, f.env.AccountSvc, "ravi.staff@school.com", "x")
	tests := []struct {
		name      string
		staff     account.Account
		ns        attendance.NewSession
		wantCause error
		wantField string
	}{
		{
			name: "not the subject's staff", staff: other, wantCause: attendance.ErrNotSubjectStaff,
			ns: attendance.NewSession{SubjectID: f.subjectID, Date: "2021-03-02", Marks: []attendance.Mark{{StudentID: f.student.ID}}},
		},
		{
			name: "date outside the semester", staff: f.staff, wantField: "date",
			ns: attendance.NewSession{SubjectID: f.subjectID, Date: "2021-08-01", SemesterID: f.semesterID, Marks: []attendance.Mark{{StudentID: f.student.ID}}},
		},
		{
			name: "unknown semester", staff: f.staff, wantField: "semester_id",
			ns: attendance.NewSession{SubjectID: f.subjectID, Date: "2021-03-02", SemesterID: "nope", Marks: []attendance.Mark{{StudentID: f.student.ID}}},
		},
		{
			name: "unknown student", staff: f.staff, wantField: "marks[0].student_id",
			ns: attendance.NewSession{SubjectID: f.subjectID, Date: "2021-03-02", Marks: []attendance.Mark{{StudentID: "nope"}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.env.AttendanceSvc.Take(ctx, tt.staff, tt.ns)
			require.Error(t, err)
			if tt.wantCause != nil {
				assert.Equal(t, tt.wantCause, errors.Cause(err))
				return
			}
			var vErr *core.ValidationError
			if assert.True(t, errors.As(err, &vErr), "err = %v", err) {
				assert.Equal(t, tt.wantField, vErr.Fields[0].Field)
			}
		})
	}

	// rejected sessions leave nothing behind
	sessions, err = f.env.AttendanceSvc.ListSessions(ctx, f.staff, f.subjectID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}

func TestService_SummaryAndRange(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, day := range []struct {
		date    string
		present bool
	}{
		{"2021-03-03", true},
		{"2021-03-01", false},
		{"2021-03-02", true},
		{"2021-04-01", true},
	} {
		testutil.TakeAttendance(t, f.env.AttendanceSvc, f.staff, f.subjectID, day.date, map[string]bool{
			f.student.ID:   day.present,
			f.classmate.ID: true,
		})
	}

	summary, err := f.env.AttendanceSvc.Summary(ctx, f.student)
	require.NoError(t, err)
	if assert.Len(t, summary, 1) {
		assert.Equal(t, 3, summary[0].Present)
		assert.Equal(t, 1, summary[0].Absent)
		assert.Equal(t, 4, summary[0].Total())
		assert.Equal(t, 75.0, summary[0].Percentage())
	}

	records, err := f.env.AttendanceSvc.InRange(ctx, f.student, attendance.RangeQuery{
		SubjectID: f.subjectID,
		StartDate: "2021-03-01",
		EndDate:   "2021-03-03",
	})
	require.NoError(t, err)
	dates := make([]string, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.Date.String())
	}
	assert.Equal(t, []string{"2021-03-01", "2021-03-02", "2021-03-03"}, dates, "inclusive bounds, ordered by date")
	assert.False(t, records[0].Present)

	// a single day range
	records, err = f.env.AttendanceSvc.InRange(ctx, f.student, attendance.RangeQuery{
		SubjectID: f.subjectID,
		StartDate: "2021-04-01",
		EndDate:   "2021-04-01",
	})
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = f.env.AttendanceSvc.InRange(ctx, f.student, attendance.RangeQuery{
		SubjectID: f.subjectID,
		StartDate: "2021-04-02",
		EndDate:   "2021-04-01",
	})
	assert.True(t, core.IsValidation(err), "err = %v", err)

	unenrolled, err := f.env.AttendanceSvc.Summary(ctx, account.StudentProfile{ProfileBase: account.ProfileBase{ID: "x"}})
	require.NoError(t, err)
	assert.Empty(t, unenrolled)
}

func TestService_SummaryWithMissingRows(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	physics := testutil.CreateSubject(t, f.env.AcademicSvc, "Physics", f.student.CourseID, f.staff.ID)

	// the student is only marked in the first session
	testutil.TakeAttendance(t, f.env.AttendanceSvc, f.staff, f.subjectID, "2021-03-01", map[string]bool{
		f.student.ID:   true,
		f.classmate.ID: true,
	})
	testutil.TakeAttendance(t, f.env.AttendanceSvc, f.staff, f.subjectID, "2021-03-02", map[string]bool{
		f.classmate.ID: false,
	})

	sessions, err := f.env.AttendanceSvc.ListSessions(ctx, f.staff, f.subjectID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	summary, err := f.env.AttendanceSvc.Summary(ctx, f.student)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	maths := summary[0]
	assert.Equal(t, f.subjectID, maths.SubjectID)
	assert.Equal(t, 1, maths.Present)
	assert.Equal(t, 0, maths.Absent)
	assert.Less(t, maths.Total(), len(sessions), "a session without a row for the student is not counted")

	// a subject without sessions still gets a zero row
	assert.Equal(t, attendance.SubjectSummary{SubjectID: physics.ID, SubjectName: "Physics"}, summary[1])
	assert.Equal(t, 0.0, summary[1].Percentage())

	classmate, err := f.env.AttendanceSvc.Summary(ctx, f.classmate)
	require.NoError(t, err)
	assert.Equal(t, len(sessions), classmate[0].Total(), "every session has a row for the classmate")
}
