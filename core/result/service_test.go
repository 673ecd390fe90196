package result_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/result"
	"github.com/trezcool/shule/tests"
)

func TestService(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	staff := testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x")
	other := testutil.Register(t, env.AccountSvc, "ravi.staff@school.com", "x")
	acc := testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")
	outsiderAcc := testutil.Register(t, env.AccountSvc, "meera.student@school.com", "x")

	bca := testutil.CreateCourse(t, env.AcademicSvc, "BCA")
	bsc := testutil.CreateCourse(t, env.AcademicSvc, "BSc")
	maths := testutil.CreateSubject(t, env.AcademicSvc, "Maths", bca.ID, staff.ID)
	student := testutil.Enrol(t, env.AcademicSvc, acc.ID, bca.ID, "")
	outsider := testutil.Enrol(t, env.AcademicSvc, outsiderAcc.ID, bsc.ID, "")

	res, err := env.ResultSvc.Record(ctx, staff, result.NewResult{StudentID: student.ID, SubjectID: maths.ID, ExamMarks: 40, AssignmentMarks: 15})
	require.NoError(t, err)
	assert.Equal(t, 55.0, res.Total())

	// recording again overwrites the marks
	again, err := env.ResultSvc.Record(ctx, staff, result.NewResult{StudentID: student.ID, SubjectID: maths.ID, ExamMarks: 45, AssignmentMarks: 18})
	require.NoError(t, err)
	assert.Equal(t, res.ID, again.ID)

	results, err := env.ResultSvc.GetForStudent(ctx, student)
	require.NoError(t, err)
	if assert.Len(t, results, 1) {
		assert.Equal(t, 45.0, results[0].ExamMarks)
		assert.Equal(t, 18.0, results[0].AssignmentMarks)
		assert.Equal(t, "Maths", results[0].Subject.Name)
	}

	tests := []struct {
		name  string
		staff account.Account
		nr    result.NewResult
		check func(t *testing.T, err error)
	}{
		{
			name: "another staff", staff: other,
			nr: result.NewResult{StudentID: student.ID, SubjectID: maths.ID},
			check: func(t *testing.T, err error) {
				assert.Equal(t, result.ErrNotSubjectStaff, errors.Cause(err))
			},
		},
		{
			name: "student of another course", staff: staff,
			nr: result.NewResult{StudentID: outsider.ID, SubjectID: maths.ID},
			check: func(t *testing.T, err error) {
				assert.True(t, core.IsValidation(err), "err = %v", err)
			},
		},
		{
			name: "unknown subject", staff: staff,
			nr: result.NewResult{StudentID: student.ID, SubjectID: "nope"},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
		{
			name: "negative marks", staff: staff,
			nr: result.NewResult{StudentID: student.ID, SubjectID: maths.ID, ExamMarks: -5},
			check: func(t *testing.T, err error) {
				assert.Error(t, err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ResultSvc.Record(ctx, tt.staff, tt.nr)
			tt.check(t, err)
		})
	}

	none, err := env.ResultSvc.GetForStudent(ctx, outsider)
	require.NoError(t, err)
	assert.Empty(t, none)
}
