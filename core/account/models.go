package account

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/shule/core"
)

// Roles
type Role string

const (
	RoleAdmin   Role = "admin" // head of department
	RoleStaff   Role = "staff"
	RoleStudent Role = "student"
)

var (
	AllRoles = []Role{RoleAdmin, RoleStaff, RoleStudent}

	// emailRoleTokens maps the role token of a `localpart.role@domain` email to a Role.
	emailRoleTokens = map[string]Role{
		"hod":     RoleAdmin,
		"staff":   RoleStaff,
		"student": RoleStudent,
	}

	homeRoutes = map[Role]string{
		RoleAdmin:   "/admin_home",
		RoleStaff:   "/staff_home",
		RoleStudent: "/student_home",
	}
)

// EmailFormat is the registration email pattern shown to users.
const EmailFormat = "<username>.<staff|student|hod>@<college_domain>"

func (r Role) String() string { return string(r) }

func (r Role) Valid() bool {
	_, ok := homeRoutes[r]
	return ok
}

// HomeRoute is the page a user with this role lands on after login.
func (r Role) HomeRoute() string {
	return homeRoutes[r]
}

func splitEmail(email string) (local, domain string, ok bool) {
	parts := strings.SplitN(email, "@", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// RoleFromEmail resolves the role encoded in a `localpart.role@domain` email.
// Only the tokens staff, student and hod resolve; anything else reports false.
func RoleFromEmail(email string) (Role, bool) {
	local, _, ok := splitEmail(core.CleanString(email, true /* lower */))
	if !ok {
		return "", false
	}
	parts := strings.Split(local, ".")
	if len(parts) < 2 {
		return "", false
	}
	role, ok := emailRoleTokens[parts[1]]
	return role, ok
}

// UsernameFromEmail returns the email's localpart up to its first dot.
func UsernameFromEmail(email string) string {
	local, _, ok := splitEmail(core.CleanString(email, true /* lower */))
	if !ok {
		return ""
	}
	return strings.SplitN(local, ".", 2)[0]
}

type Account struct {
	ID           string     `json:"id"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	Role         Role       `json:"role"`
	PasswordHash []byte     `json:"-"`
	CreatedAt    time.Time  `json:"created_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"` // UTC
	LastLogin    *time.Time `json:"last_login"` // UTC, nil until the first login
}

func (a *Account) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.PasswordHash = hash
	return nil
}

func (a *Account) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd))
}

func (a Account) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

func (a Account) IsAdmin() bool   { return a.Role == RoleAdmin }
func (a Account) IsStaff() bool   { return a.Role == RoleStaff }
func (a Account) IsStudent() bool { return a.Role == RoleStudent }

// ProfileBase holds the fields every role profile shares.
type ProfileBase struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b ProfileBase) base() ProfileBase { return b }

// Profile is one of AdminProfile, StaffProfile or StudentProfile.
type Profile interface {
	Role() Role
	base() ProfileBase
}

// BaseOf returns the shared fields of a Profile.
func BaseOf(p Profile) ProfileBase {
	if p == nil {
		return ProfileBase{}
	}
	return p.base()
}

type AdminProfile struct {
	ProfileBase
}

type StaffProfile struct {
	ProfileBase
	Address string `json:"address"`
}

type StudentProfile struct {
	ProfileBase
	CourseID   string `json:"course_id"`   // empty until enrolled
	SemesterID string `json:"semester_id"` // empty until enrolled
	Address    string `json:"address"`
	Gender     string `json:"gender"`
	PhotoRef   string `json:"photo_ref"`
}

func (AdminProfile) Role() Role   { return RoleAdmin }
func (StaffProfile) Role() Role   { return RoleStaff }
func (StudentProfile) Role() Role { return RoleStudent }

// newProfile returns the empty profile matching role.
func newProfile(acc Account, now time.Time) Profile {
	base := ProfileBase{AccountID: acc.ID, CreatedAt: now, UpdatedAt: now}
	switch acc.Role {
	case RoleAdmin:
		return AdminProfile{ProfileBase: base}
	case RoleStaff:
		return StaffProfile{ProfileBase: base}
	case RoleStudent:
		return StudentProfile{ProfileBase: base}
	}
	return nil
}

// NewAccount contains information needed to register a new Account.
type NewAccount struct {
	FirstName       string `json:"first_name" form:"first_name"`
	LastName        string `json:"last_name" form:"last_name"`
	Email           string `json:"email" form:"email" validate:"required,email,roleemail"`
	Password        string `json:"password" form:"password" validate:"required"`
	PasswordConfirm string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
}

func (na *NewAccount) Clean() {
	na.FirstName = core.CleanString(na.FirstName)
	na.LastName = core.CleanString(na.LastName)
	na.Email = core.CleanString(na.Email, true /* lower */)
}

// UpdateProfile enumerates the fields an account holder may change. nil fields are left unchanged.
type UpdateProfile struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
	Address   *string `json:"address"`
}

func (up UpdateProfile) IsEmpty() bool {
	return up.FirstName == nil && up.LastName == nil && up.Password == nil && up.Address == nil
}

// Enrolment places a student in a course (and optionally a semester).
type Enrolment struct {
	CourseID   string `json:"course_id" validate:"required"`
	SemesterID string `json:"semester_id"`
	Gender     string `json:"gender" validate:"omitempty,max=50"`
}

func (e *Enrolment) Clean() {
	e.CourseID = core.CleanString(e.CourseID)
	e.SemesterID = core.CleanString(e.SemesterID)
	e.Gender = core.CleanString(e.Gender)
}

type GetFilter struct {
	ID              string
	Username        string
	Email           string
	UsernameOrEmail string
	ForUpdate       bool // lock the row until the enclosing transaction ends
}

type StudentFilter struct {
	ID        string
	AccountID string
}
