package account_test

import (
	"context"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/tests"
)

func strPtr(s string) *string { return &s }

func TestRoleFromEmail(t *testing.T) {
	tests := []struct {
		email    string
		wantRole account.Role
		wantOK   bool
	}{
		{email: "abhishek.student@school.com", wantRole: account.RoleStudent, wantOK: true},
		{email: "Priya.STAFF@school.com", wantRole: account.RoleStaff, wantOK: true},
		{email: "hod.hod@school.com", wantRole: account.RoleAdmin, wantOK: true},
		{email: "a.student.extra@school.com", wantRole: account.RoleStudent, wantOK: true},
		{email: "abhishek@school.com"},
		{email: "abhishek.teacher@school.com"},
		{email: "abhishek.student"},
		{email: ".student@"},
		{email: ""},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			role, ok := account.RoleFromEmail(tt.email)
			if ok != tt.wantOK || role != tt.wantRole {
				t.Errorf("RoleFromEmail() = %q, %v; want %q, %v", role, ok, tt.wantRole, tt.wantOK)
			}
		})
	}
}

func TestUsernameFromEmail(t *testing.T) {
	tests := map[string]string{
		"abhishek.student@school.com": "abhishek",
		"Priya.Staff@School.com":      "priya",
		"a.student.extra@school.com":  "a",
		"nodomain":                    "",
	}
	for email, want := range tests {
		if got := account.UsernameFromEmail(email); got != want {
			t.Errorf("UsernameFromEmail(%q) = %q; want %q", email, got, want)
		}
	}
}

func TestRole_HomeRoute(t *testing.T) {
	assert.Equal(t, "/admin_home", account.RoleAdmin.HomeRoute())
	assert.Equal(t, "/staff_home", account.RoleStaff.HomeRoute())
	assert.Equal(t, "/student_home", account.RoleStudent.HomeRoute())
	assert.False(t, account.Role("teacher").Valid())
}

func TestService_Register(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	acc, prof, err := env.AccountSvc.Register(ctx, account.NewAccount{
		FirstName:       " Abhishek ",
		Email:           " Abhishek.Student@School.com ",
		Password:        "x",
		PasswordConfirm: "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "Abhishek", acc.FirstName)
	assert.Equal(t, "abhishek.student@school.com", acc.Email)
	assert.Equal(t, "abhishek", acc.Username)
	assert.Equal(t, account.RoleStudent, acc.Role)
	assert.NotEqual(t, []byte("x"), acc.PasswordHash)
	assert.NoError(t, acc.CheckPassword("x"))

	student, ok := prof.(account.StudentProfile)
	require.True(t, ok, "profile is %T", prof)
	assert.Equal(t, acc.ID, student.AccountID)
	assert.Empty(t, student.CourseID)

	for email, wantRole := range map[string]account.Role{"priya.staff@school.com": account.RoleStaff, "hod.hod@school.com": account.RoleAdmin} {
		_, prof, err := env.AccountSvc.Register(ctx, account.NewAccount{Email: email, Password: "x", PasswordConfirm: "x"})
		require.NoError(t, err)
		assert.Equal(t, wantRole, prof.Role())
	}

	t.Run("conflicts", func(t *testing.T) {
		tests := []struct {
			email     string
			wantErr   error
			wantField string
		}{
			{email: "abhishek.student@school.com", wantErr: account.ErrEmailExists, wantField: "email"},
			{email: "abhishek.staff@school.com", wantErr: account.ErrUsernameExists, wantField: "username"},
		}
		for _, tt := range tests {
			_, _, err := env.AccountSvc.Register(ctx, account.NewAccount{Email: tt.email, Password: "x", PasswordConfirm: "x"})
			var cErr *core.ConflictError
			if assert.True(t, errors.As(err, &cErr), "err = %v", err) {
				assert.Equal(t, tt.wantErr, cErr.Err)
				assert.Equal(t, tt.wantField, cErr.Field)
			}
		}
	})

	t.Run("invalid", func(t *testing.T) {
		for _, na := range []account.NewAccount{
			{Email: "", Password: "x", PasswordConfirm: "x"},
			{Email: "not-an-email", Password: "x", PasswordConfirm: "x"},
			{Email: "x.teacher@school.com", Password: "x", PasswordConfirm: "x"},
			{Email: "y.student@school.com", Password: "x", PasswordConfirm: "z"},
		} {
			_, _, err := env.AccountSvc.Register(ctx, na)
			var vErrs validator.ValidationErrors
			assert.True(t, errors.As(err, &vErrs), "Register(%+v) err = %v", na, err)
		}
	})
}

func TestService_RegisterConcurrently(t *testing.T) {
	env := testutil.NewEnv()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = env.AccountSvc.Register(context.Background(), account.NewAccount{
				Email: "abhishek.student@school.com", Password: "x", PasswordConfirm: "x",
			})
		}(i)
	}
	wg.Wait()

	var created int
	for _, err := range errs {
		if err == nil {
			created++
		} else {
			assert.True(t, core.IsConflict(err), "err = %v", err)
		}
	}
	assert.Equal(t, 1, created)
}

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "pwd")

	tests := []struct {
		name    string
		login   string
		pwd     string
		wantErr bool
	}{
		{name: "username", login: "abhishek", pwd: "pwd"},
		{name: "email", login: "abhishek.student@school.com", pwd: "pwd"},
		{name: "mixed case", login: " ABHISHEK ", pwd: "pwd"},
		{name: "wrong password", login: "abhishek", pwd: "PWD", wantErr: true},
		{name: "unknown login", login: "nobody", pwd: "pwd", wantErr: true},
		{name: "empty", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc, err := env.AccountSvc.Authenticate(ctx, tt.login, tt.pwd)
			if tt.wantErr {
				assert.True(t, core.IsAuth(err), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "abhishek", acc.Username)
			assert.NotNil(t, acc.LastLogin)
		})
	}
}

func TestService_UpdateProfile(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	staff := testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x", "Priya", "Sharma")
	admin := testutil.Register(t, env.AccountSvc, "hod.hod@school.com", "x")

	t.Run("nothing supplied changes nothing", func(t *testing.T) {
		acc, prof, err := env.AccountSvc.UpdateProfile(ctx, staff, account.UpdateProfile{})
		require.NoError(t, err)
		assert.Equal(t, "Priya", acc.FirstName)
		assert.Equal(t, "Sharma", acc.LastName)
		assert.Empty(t, prof.(account.StaffProfile).Address)
	})

	t.Run("supplied fields only", func(t *testing.T) {
		acc, prof, err := env.AccountSvc.UpdateProfile(ctx, staff, account.UpdateProfile{
			LastName: strPtr("Verma"),
			Address:  strPtr(" Block C "),
			Password: strPtr("new"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Priya", acc.FirstName)
		assert.Equal(t, "Verma", acc.LastName)
		assert.Equal(t, "Block C", prof.(account.StaffProfile).Address)

		_, err = env.AccountSvc.Authenticate(ctx, "priya", "new")
		assert.NoError(t, err)

		stored, err := env.AccountSvc.GetProfile(ctx, acc)
		require.NoError(t, err)
		assert.Equal(t, "Block C", stored.(account.StaffProfile).Address)
	})

	t.Run("empty password keeps the old one", func(t *testing.T) {
		acc, err := env.AccountSvc.GetByID(ctx, staff.ID)
		require.NoError(t, err)
		_, _, err = env.AccountSvc.UpdateProfile(ctx, acc, account.UpdateProfile{Password: strPtr("")})
		require.NoError(t, err)
		_, err = env.AccountSvc.Authenticate(ctx, "priya", "new")
		assert.NoError(t, err)
	})

	t.Run("admins have no address", func(t *testing.T) {
		_, _, err := env.AccountSvc.UpdateProfile(ctx, admin, account.UpdateProfile{
			FirstName: strPtr("Head"),
			Address:   strPtr("Campus"),
		})
		assert.True(t, core.IsValidation(err), "err = %v", err)

		// rolled back
		acc, err := env.AccountSvc.GetByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.Empty(t, acc.FirstName)
	})
}

func TestService_EnsureAdmin(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()

	acc, err := env.AccountSvc.EnsureAdmin(ctx, "Principal.HOD@school.com", "one")
	require.NoError(t, err)
	assert.Equal(t, account.RoleAdmin, acc.Role)
	assert.Equal(t, "principal", acc.Username)

	again, err := env.AccountSvc.EnsureAdmin(ctx, "principal.hod@school.com", "two")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, again.ID)
	_, err = env.AccountSvc.Authenticate(ctx, "principal", "two")
	assert.NoError(t, err)

	_, err = env.AccountSvc.EnsureAdmin(ctx, "someone.staff@school.com", "x")
	assert.True(t, core.IsValidation(err), "err = %v", err)
}

func TestService_ResetPassword(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "old")

	require.NoError(t, env.AccountSvc.ResetPassword(ctx, "abhishek", "new"))
	_, err := env.AccountSvc.Authenticate(ctx, "abhishek", "new")
	assert.NoError(t, err)

	err = env.AccountSvc.ResetPassword(ctx, "nobody", "new")
	assert.Equal(t, account.ErrNotFound, errors.Cause(err))
}

func TestService_EnrolStudent(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	student := testutil.Register(t, env.AccountSvc, "abhishek.student@school.com", "x")
	staff := testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x")

	prof, err := env.AccountSvc.EnrolStudent(ctx, student.ID, account.Enrolment{CourseID: "c1", Gender: "Male"})
	require.NoError(t, err)
	assert.Equal(t, "c1", prof.CourseID)
	assert.Equal(t, "Male", prof.Gender)

	// gender is kept when not supplied
	prof, err = env.AccountSvc.EnrolStudent(ctx, student.ID, account.Enrolment{CourseID: "c2"})
	require.NoError(t, err)
	assert.Equal(t, "c2", prof.CourseID)
	assert.Equal(t, "Male", prof.Gender)

	_, err = env.AccountSvc.EnrolStudent(ctx, staff.ID, account.Enrolment{CourseID: "c1"})
	assert.Equal(t, account.ErrProfileNotFound, errors.Cause(err))

	students, err := env.AccountSvc.QueryStudents(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestService_UpdateProfile_staleAccount(t *testing.T) {
	env := testutil.NewEnv()
	ctx := context.Background()
	stale := testutil.Register(t, env.AccountSvc, "priya.staff@school.com", "x", "Priya", "Sharma")

	// meanwhile: a login and a password change
	_, err := env.AccountSvc.Authenticate(ctx, "priya", "x")
	require.NoError(t, err)
	_, _, err = env.AccountSvc.UpdateProfile(ctx, stale, account.UpdateProfile{Password: strPtr("newer")})
	require.NoError(t, err)

	acc, _, err := env.AccountSvc.UpdateProfile(ctx, stale, account.UpdateProfile{FirstName: strPtr("Priyanka")})
	require.NoError(t, err)
	assert.Equal(t, "Priyanka", acc.FirstName)
	assert.Equal(t, "Sharma", acc.LastName)

	stored, err := env.AccountSvc.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin, "the login survives the update")
	_, err = env.AccountSvc.Authenticate(ctx, "priya", "newer")
	assert.NoError(t, err, "the newer password survives the update")
}
