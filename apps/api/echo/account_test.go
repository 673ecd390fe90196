package echoapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/tests"
)

func Test_accountApi_register(t *testing.T) {
	env.Reset()

	path := "/v1/auth/register"
	body := func(email, pwd, confirm string) []byte {
		return marshalObj(t, map[string]string{
			"first_name":       "Abhishek",
			"last_name":        "Kumar",
			"email":            email,
			"password":         pwd,
			"confirm_password": confirm,
		})
	}
	required := "this field is required"

	tests := []httpTest{
		{
			name: "missing fields", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"email": required, "password": required, "confirm_password": required}),
		},
		{name: "passwords differ", body: body("abhishek.student@school.com", "x", "y"), wantCode: http.StatusBadRequest},
		{
			name: "unknown role token", body: body("abhishek.teacher@school.com", "x", "x"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"email": "please use a valid email format: '<username>.<staff|student|hod>@<college_domain>'",
			}),
		},
		{
			name: "no role token", body: body("abhishek@school.com", "x", "x"), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{
				"email": "please use a valid email format: '<username>.<staff|student|hod>@<college_domain>'",
			}),
		},
		{name: "registered", body: body("abhishek.student@school.com", "x", "x"), wantCode: http.StatusCreated},
		{
			name: "email already registered", body: body("Abhishek.Student@school.com", "x", "x"), wantCode: http.StatusConflict,
			wantData: marshalObj(t, map[string]string{"email": "email id already exists, please proceed to login"}),
		},
		{
			name: "username taken", body: body("abhishek.staff@school.com", "x", "x"), wantCode: http.StatusConflict,
			wantData: marshalObj(t, map[string]string{"username": "username already exists, please use a different username"}),
		},
	}
	for i := range tests {
		tests[i].method = http.MethodPost
		tests[i].path = path
	}
	runHTTPTests(t, tests)

	acc, err := env.AccountSvc.Authenticate(bg(), "abhishek", "x")
	if assert.NoError(t, err) {
		assert.Equal(t, "abhishek", acc.Username)
		assert.Equal(t, account.RoleStudent, acc.Role)
		assert.Equal(t, "Abhishek Kumar", acc.FullName())
	}
}

func Test_accountApi_registerResponse(t *testing.T) {
	env.Reset()

	rec := serve(http.MethodPost, "/v1/auth/register", "", marshalObj(t, map[string]string{
		"email":            "hod.hod@school.com",
		"password":         "x",
		"confirm_password": "x",
	}))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var acc map[string]interface{}
	decode(t, rec, &acc)
	assert.Equal(t, "hod", acc["username"])
	assert.Equal(t, "admin", acc["role"])
	assert.NotContains(t, acc, "password_hash")
	assert.NotEmpty(t, acc["id"])
	if assert.Contains(t, acc, "last_login") {
		assert.Nil(t, acc["last_login"], "never logged in")
	}
}

func Test_accountApi_login(t *testing.T) {
	env.Reset()
	testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")

	path := "/v1/auth/login"
	invalid := marshalObj(t, httpErr{Error: "invalid login credentials"})
	required := "this field is required"

	runHTTPTests(t, []httpTest{
		{
			name: "missing credentials", method: http.MethodPost, path: path, body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"login": required, "password": required}),
		},
		{
			name: "wrong password", method: http.MethodPost, path: path, wantCode: http.StatusUnauthorized, wantData: invalid,
			body: marshalObj(t, echoapi.LoginRequest{Login: "abhishek.student@school.com", Password: "y"}),
		},
		{
			name: "unknown account", method: http.MethodPost, path: path, wantCode: http.StatusUnauthorized, wantData: invalid,
			body: marshalObj(t, echoapi.LoginRequest{Login: "nobody.student@school.com", Password: "x"}),
		},
	})

	for _, login := range []string{"abhishek.student@school.com", "ABHISHEK"} {
		t.Run("logged in with "+login, func(t *testing.T) {
			rec := serve(http.MethodPost, path, "", marshalObj(t, echoapi.LoginRequest{Login: login, Password: "x"}))
			assert.Equal(t, http.StatusOK, rec.Code)

			var resp echoapi.LoginResponse
			decode(t, rec, &resp)
			assert.NotEmpty(t, resp.Token)
			assert.Equal(t, account.RoleStudent, resp.Role)
			assert.Equal(t, "/student_home", resp.Home)

			assert.Equal(t, http.StatusOK, serve(http.MethodGet, "/v1/profile", resp.Token).Code)
		})
	}

	acc, err := env.AccountSvc.Authenticate(bg(), "abhishek", "x")
	if assert.NoError(t, err) {
		assert.NotNil(t, acc.LastLogin)
	}
}

func Test_accountApi_logout(t *testing.T) {
	env.Reset()
	acc := testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x")
	token := getToken(t, acc)
	other := getToken(t, acc)

	runHTTPTests(t, []httpTest{
		{name: "token works", path: "/v1/profile", token: token},
		{name: "logged out", method: http.MethodPost, path: "/v1/auth/logout", token: token, wantCode: http.StatusNoContent},
		{
			name: "revoked token rejected", path: "/v1/profile", token: token, wantCode: http.StatusUnauthorized,
			wantData: marshalObj(t, httpErr{Error: "token has been revoked"}),
		},
		{name: "logging out twice is fine", method: http.MethodPost, path: "/v1/auth/logout", token: token, wantCode: http.StatusNoContent},
		{name: "logging out without a token is fine", method: http.MethodPost, path: "/v1/auth/logout", wantCode: http.StatusNoContent},
		{name: "garbage token is fine", method: http.MethodPost, path: "/v1/auth/logout", token: "garbage", wantCode: http.StatusNoContent},
		{name: "other sessions stay valid", path: "/v1/profile", token: other},
	})
}

type studentProfileResponse struct {
	Account account.Account        `json:"account"`
	Profile account.StudentProfile `json:"profile"`
}

func Test_accountApi_profile(t *testing.T) {
	env.Reset()
	student := testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x", "Abhishek", "Kumar")
	admin := testutil.Register(t, env.AccountSvc, "hod.hod@school.com", "x")
	studentToken := getToken(t, student)

	runHTTPTests(t, []httpTest{
		{name: "auth required", path: "/v1/profile", wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errMissingToken)},
		{
			name: "admin has no address", method: http.MethodPut, path: "/v1/profile", token: getToken(t, admin),
			body: []byte(`{"address": "Campus"}`), wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, map[string]string{"address": "admin profiles have no address"}),
		},
	})

	t.Run("address only update", func(t *testing.T) {
		rec := serve(http.MethodPut, "/v1/profile", studentToken, []byte(`{"address": " 12 MG Road "}`))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp studentProfileResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Abhishek", resp.Account.FirstName)
		assert.Equal(t, "Kumar", resp.Account.LastName)
		assert.Equal(t, "12 MG Road", resp.Profile.Address)

		_, err := env.AccountSvc.Authenticate(bg(), "abhishek", "x")
		assert.NoError(t, err, "password must be unchanged")
	})

	t.Run("names and password update", func(t *testing.T) {
		rec := serve(http.MethodPut, "/v1/profile", studentToken, []byte(`{"first_name": "Abhi", "password": "new"}`))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp studentProfileResponse
		decode(t, rec, &resp)
		assert.Equal(t, "Abhi", resp.Account.FirstName)
		assert.Equal(t, "Kumar", resp.Account.LastName)
		assert.Equal(t, "12 MG Road", resp.Profile.Address)

		_, err := env.AccountSvc.Authenticate(bg(), "abhishek", "new")
		assert.NoError(t, err)
	})
}

// downSessions is a session store whose backend is unreachable.
type downSessions struct{}

func (downSessions) Revoke(context.Context, string, time.Time) error {
	return errors.New("dial tcp: connection refused")
}
func (downSessions) IsRevoked(context.Context, string) (bool, error) { return false, nil }

func Test_logout_sessionStoreDown(t *testing.T) {
	env.Reset()
	acc := testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")
	token := getToken(t, acc)
	srv := newServer(downSessions{})

	t.Run("api", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/auth/logout", token)
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	})

	t.Run("pages", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/logout", nil)
		req.AddCookie(&http.Cookie{Name: tokenCookie, Value: token})
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		assertRedirect(t, rec, "/login")
		if cleared := findCookie(rec, tokenCookie); assert.NotNil(t, cleared) {
			assert.Empty(t, cleared.Value)
		}
	})
}
