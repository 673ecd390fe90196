package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/tests"
)

const (
	tokenCookie = "shule_token"
	flashCookie = "shule_flash"
)

func page(method, path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for _, c := range cookies {
		if c != nil {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// flashOf decodes the flash left by a redirect as "kind|message".
func flashOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	c := findCookie(rec, flashCookie)
	require.NotNil(t, c, "no flash cookie set")
	val, err := url.QueryUnescape(c.Value)
	require.NoError(t, err)
	return val
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, to string) {
	t.Helper()
	assert.Equal(t, http.StatusFound, rec.Code, rec.Body.String())
	assert.Equal(t, to, rec.Header().Get("Location"))
}

// pageLogin logs in through the login form and returns the token cookie.
func pageLogin(t *testing.T, login, pwd string) *http.Cookie {
	t.Helper()
	rec := page(http.MethodPost, "/login", url.Values{"email": {login}, "password": {pwd}})
	require.Equal(t, http.StatusFound, rec.Code)
	c := findCookie(rec, tokenCookie)
	require.NotNil(t, c, "no token cookie set")
	return c
}

func Test_pages_login(t *testing.T) {
	env.Reset()
	testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")
	testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x")

	t.Run("anonymous visitors go to login", func(t *testing.T) {
		for _, path := range []string{"/student_home", "/staff_home", "/admin_home", "/profile", "/student/leave"} {
			assertRedirect(t, page(http.MethodGet, path, nil), "/login")
		}
	})

	t.Run("login form", func(t *testing.T) {
		rec := page(http.MethodGet, "/login", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<title>Login | Shule</title>")
	})

	t.Run("invalid credentials", func(t *testing.T) {
		rec := page(http.MethodPost, "/login", url.Values{"email": {"abhishek"}, "password": {"nope"}})
		assertRedirect(t, rec, "/login")
		assert.Equal(t, "error|Invalid Login Credentials!!", flashOf(t, rec))
		assert.Nil(t, findCookie(rec, tokenCookie))

		// the flash is shown once
		rec = page(http.MethodGet, "/login", nil, findCookie(rec, flashCookie))
		assert.Contains(t, rec.Body.String(), "Invalid Login Credentials!!")
		if c := findCookie(rec, flashCookie); assert.NotNil(t, c) {
			assert.True(t, c.MaxAge < 0)
		}
	})

	t.Run("missing details", func(t *testing.T) {
		rec := page(http.MethodPost, "/login", url.Values{"email": {"abhishek"}})
		assertRedirect(t, rec, "/login")
		assert.Equal(t, "error|Please provide all the details", flashOf(t, rec))
	})

	t.Run("each role lands on its home", func(t *testing.T) {
		for login, home := range map[string]string{"abhishek.student@school.com": "/student_home", "priya": "/staff_home"} {
			rec := page(http.MethodPost, "/login", url.Values{"email": {login}, "password": {"x"}})
			assertRedirect(t, rec, home)

			c := findCookie(rec, tokenCookie)
			if assert.NotNil(t, c) {
				assert.True(t, c.HttpOnly)
				assert.Equal(t, http.StatusOK, page(http.MethodGet, home, nil, c).Code)
			}
		}
	})

	t.Run("other roles' pages send you home", func(t *testing.T) {
		c := pageLogin(t, "abhishek", "x")
		assertRedirect(t, page(http.MethodGet, "/staff_home", nil, c), "/student_home")
		assertRedirect(t, page(http.MethodGet, "/admin_home", nil, c), "/student_home")
	})

	t.Run("tampered cookie", func(t *testing.T) {
		rec := page(http.MethodGet, "/student_home", nil, &http.Cookie{Name: tokenCookie, Value: "garbage"})
		assertRedirect(t, rec, "/login")
	})
}

func Test_pages_registration(t *testing.T) {
	env.Reset()

	form := func(email string) url.Values {
		return url.Values{
			"first_name":       {"Abhishek"},
			"email":            {email},
			"password":         {"x"},
			"confirm_password": {"x"},
		}
	}

	rec := page(http.MethodGet, "/registration", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = page(http.MethodPost, "/registration", form("abhishek.student@school.com"))
	assertRedirect(t, rec, "/login")
	assert.Equal(t, "success|Successfully Registered, please login", flashOf(t, rec))

	rec = page(http.MethodPost, "/registration", form("abhishek.student@school.com"))
	assertRedirect(t, rec, "/registration")
	assert.Equal(t, "error|email: email id already exists, please proceed to login", flashOf(t, rec))

	rec = page(http.MethodPost, "/registration", form("abhishek@school.com"))
	assertRedirect(t, rec, "/registration")
	assert.Equal(t, "error|email: please use a valid email format: '<username>.<staff|student|hod>@<college_domain>'", flashOf(t, rec))
}

func Test_pages_logout(t *testing.T) {
	env.Reset()
	testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")
	c := pageLogin(t, "abhishek", "x")

	rec := page(http.MethodGet, "/logout", nil, c)
	assertRedirect(t, rec, "/login")
	if cleared := findCookie(rec, tokenCookie); assert.NotNil(t, cleared) {
		assert.Empty(t, cleared.Value)
	}

	// the old cookie no longer opens any page
	assertRedirect(t, page(http.MethodGet, "/student_home", nil, c), "/login")
	// logging out again is harmless
	assertRedirect(t, page(http.MethodGet, "/logout", nil, c), "/login")
}

func Test_pages_student(t *testing.T) {
	f := newAttendanceFixture(t)
	testutil.TakeAttendance(t, env.AttendanceSvc, f.staff, f.subjectID, "2021-03-01", map[string]bool{f.studentProf.ID: true})
	c := pageLogin(t, "abhishek", "x")

	t.Run("home shows the summary", func(t *testing.T) {
		rec := page(http.MethodGet, "/student_home", nil, c)
		assert.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "<td>Maths</td><td>1</td><td>0</td><td>100.0%</td>")
		assert.Contains(t, body, "<td>Physics</td><td>0</td><td>0</td><td>0.0%</td>")
	})

	t.Run("attendance in range", func(t *testing.T) {
		rec := page(http.MethodGet, "/student/attendance", nil, c)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Maths")

		rec = page(http.MethodPost, "/student/attendance", url.Values{
			"subject":    {f.subjectID},
			"start_date": {"2021-03-01"},
			"end_date":   {"2021-03-31"},
		}, c)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "2021-03-01")

		rec = page(http.MethodPost, "/student/attendance", url.Values{
			"subject":    {f.subjectID},
			"start_date": {"2021-03-31"},
			"end_date":   {"2021-03-01"},
		}, c)
		assertRedirect(t, rec, "/student/attendance")
		assert.Equal(t, "error|start_date: start date must be on or before the end date", flashOf(t, rec))
	})

	t.Run("leave", func(t *testing.T) {
		rec := page(http.MethodPost, "/student/leave", url.Values{"leave_date": {"2021-03-10"}, "leave_message": {"Fever"}}, c)
		assertRedirect(t, rec, "/student/leave")
		assert.Equal(t, "success|Applied for Leave.", flashOf(t, rec))

		rec = page(http.MethodPost, "/student/leave", url.Values{"leave_date": {"2021-03-10"}}, c)
		assertRedirect(t, rec, "/student/leave")
		assert.Equal(t, "error|message: this field is required", flashOf(t, rec))

		rec = page(http.MethodGet, "/student/leave", nil, c)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "<td>2021-03-10</td><td>Fever</td><td>pending</td>")
	})

	t.Run("feedback", func(t *testing.T) {
		rec := page(http.MethodPost, "/student/feedback", url.Values{"feedback_message": {"More labs please"}}, c)
		assertRedirect(t, rec, "/student/feedback")
		assert.Equal(t, "success|Feedback Sent.", flashOf(t, rec))

		rec = page(http.MethodGet, "/student/feedback", nil, c)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "More labs please")
	})

	t.Run("results", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, page(http.MethodGet, "/student/results", nil, c).Code)
	})
}

func Test_pages_profile(t *testing.T) {
	env.Reset()
	testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x", "Priya", "Sharma")
	testutil.Register(t, env.AccountSvc, "hod.hod@school.com", "x")
	c := pageLogin(t, "priya", "x")

	rec := page(http.MethodPost, "/profile", url.Values{"first_name": {""}, "address": {"Staff Quarters 2"}, "password": {""}}, c)
	assertRedirect(t, rec, "/profile")
	assert.Equal(t, "success|Profile Updated Successfully", flashOf(t, rec))

	rec = page(http.MethodGet, "/profile", nil, c)
	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `value="Priya"`)
	assert.Contains(t, body, `value="Staff Quarters 2"`)

	// blank password fields keep the old password
	pageLogin(t, "priya", "x")

	admin := pageLogin(t, "hod", "x")
	rec = page(http.MethodPost, "/profile", url.Values{"address": {"Campus"}}, admin)
	assertRedirect(t, rec, "/profile")
	assert.Equal(t, "error|address: admin profiles have no address", flashOf(t, rec))

	rec = page(http.MethodGet, "/admin_home", nil, admin)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Courses: 0")
}
