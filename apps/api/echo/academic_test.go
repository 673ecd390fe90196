package echoapi_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/tests"
)

func Test_academicApi(t *testing.T) {
	env.Reset()
	admin := testutil.Register(t, env.AccountSvc, "hod.hod@school.com", "x")
	staff := testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x")
	student := testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")
	adminToken := getToken(t, admin)

	create := func(t *testing.T, path string, body interface{}, dst interface{}) {
		rec := serve(http.MethodPost, path, adminToken, marshalObj(t, body))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decode(t, rec, dst)
	}

	var course academic.Course
	create(t, "/v1/admin/courses", academic.NewCourse{Name: " BCA "}, &course)
	assert.Equal(t, "BCA", course.Name)

	var subject academic.Subject
	create(t, "/v1/admin/subjects", academic.NewSubject{Name: "Maths", CourseID: course.ID, StaffID: staff.ID}, &subject)
	assert.Equal(t, staff.ID, subject.StaffID)

	var semester academic.Semester
	create(t, "/v1/admin/semesters", academic.NewSemester{StartDate: "2021-01-01", EndDate: "2021-06-30"}, &semester)
	assert.Equal(t, "2021-06-30", semester.EndDate.String())

	runHTTPTests(t, []httpTest{
		{name: "staff are not admins", path: "/v1/admin/courses", token: getToken(t, staff), wantCode: http.StatusForbidden},
		{
			name: "course needs a name", method: http.MethodPost, path: "/v1/admin/courses", token: adminToken,
			body: []byte(`{"name": " "}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name: "subject of an unknown course", method: http.MethodPost, path: "/v1/admin/subjects", token: adminToken,
			body:     marshalObj(t, academic.NewSubject{Name: "Physics", CourseID: "nope", StaffID: staff.ID}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"course_id": "course not found"}),
		},
		{
			name: "subject taught by a student", method: http.MethodPost, path: "/v1/admin/subjects", token: adminToken,
			body:     marshalObj(t, academic.NewSubject{Name: "Physics", CourseID: course.ID, StaffID: student.ID}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"staff_id": "the subject owner must be a staff account"}),
		},
		{
			name: "semester ends before it starts", method: http.MethodPost, path: "/v1/admin/semesters", token: adminToken,
			body:     marshalObj(t, academic.NewSemester{StartDate: "2021-06-30", EndDate: "2021-01-01"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"end_date": "end date must be on or after the start date"}),
		},
		{name: "subject retrieved", path: "/v1/admin/subjects/" + subject.ID, token: adminToken, wantData: marshalObj(t, subject)},
		{
			name: "unknown subject", path: "/v1/admin/subjects/nope", token: adminToken, wantCode: http.StatusNotFound,
			wantData: marshalObj(t, httpErr{Error: "subject not found"}),
		},
		{name: "subjects by course", path: "/v1/admin/subjects?course_id=" + course.ID, token: adminToken, wantData: marshalObj(t, []academic.Subject{subject})},
		{name: "subjects of another course", path: "/v1/admin/subjects?course_id=nope", token: adminToken, wantData: []byte(`[]`)},
		{name: "courses listed", path: "/v1/admin/courses", token: adminToken, wantData: marshalObj(t, []academic.Course{course})},
		{name: "semesters listed", path: "/v1/admin/semesters", token: adminToken, wantData: marshalObj(t, []academic.Semester{semester})},
		{
			name: "enrol in an unknown semester", method: http.MethodPut, path: "/v1/admin/students/" + student.ID, token: adminToken,
			body:     marshalObj(t, account.Enrolment{CourseID: course.ID, SemesterID: "nope"}),
			wantCode: http.StatusBadRequest, wantData: marshalObj(t, map[string]string{"semester_id": "semester not found"}),
		},
		{
			name: "only students enrol", method: http.MethodPut, path: "/v1/admin/students/" + staff.ID, token: adminToken,
			body: marshalObj(t, account.Enrolment{CourseID: course.ID}), wantCode: http.StatusNotFound,
		},
	})

	t.Run("enrol", func(t *testing.T) {
		body := marshalObj(t, account.Enrolment{CourseID: course.ID, SemesterID: semester.ID, Gender: "Male"})
		rec := serve(http.MethodPut, "/v1/admin/students/"+student.ID, adminToken, body)
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var prof account.StudentProfile
		decode(t, rec, &prof)
		assert.Equal(t, course.ID, prof.CourseID)
		assert.Equal(t, semester.ID, prof.SemesterID)
		assert.Equal(t, "Male", prof.Gender)

		rec = serve(http.MethodGet, "/v1/admin/students?course_id="+course.ID, adminToken)
		assert.Equal(t, http.StatusOK, rec.Code)
		var students []account.StudentProfile
		decode(t, rec, &students)
		if assert.Len(t, students, 1) {
			assert.Equal(t, prof.ID, students[0].ID)
		}
	})
}
