package account

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
)

var (
	// errors
	ErrNotFound           = errors.New("account not found")
	ErrProfileNotFound    = errors.New("profile not found")
	ErrEmailExists        = errors.New("email id already exists, please proceed to login")
	ErrUsernameExists     = errors.New("username already exists, please use a different username")
	ErrNotStudent         = errors.New("account is not a student")
	errInvalidCredentials = errors.New("invalid login credentials")
	errNoAddress          = errors.New("admin profiles have no address")
)

type (
	Repository interface {
		// CheckUniqueness reports ErrEmailExists or ErrUsernameExists, email first.
		CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error
		CreateAccount(ctx context.Context, acc Account, exec ...core.DBExecutor) (Account, error)
		GetAccount(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Account, error)
		// UpdateAccount writes the names, the password hash and updated_at.
		UpdateAccount(ctx context.Context, acc Account, exec ...core.DBExecutor) (Account, error)
		SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error
		CreateProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
		GetProfile(ctx context.Context, acc Account, exec ...core.DBExecutor) (Profile, error)
		UpdateProfile(ctx context.Context, prof Profile, exec ...core.DBExecutor) (Profile, error)
		GetStudent(ctx context.Context, filter StudentFilter, exec ...core.DBExecutor) (StudentProfile, error)
		QueryStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]StudentProfile, error)
	}

	Service interface {
		Register(ctx context.Context, na NewAccount) (Account, Profile, error)
		Authenticate(ctx context.Context, login, pwd string) (Account, error)
		GetByID(ctx context.Context, id string) (Account, error)
		GetProfile(ctx context.Context, acc Account) (Profile, error)
		GetStudent(ctx context.Context, filter StudentFilter) (StudentProfile, error)
		QueryStudents(ctx context.Context, courseID string) ([]StudentProfile, error)
		UpdateProfile(ctx context.Context, acc Account, up UpdateProfile) (Account, Profile, error)
		EnrolStudent(ctx context.Context, accountID string, e Enrolment) (StudentProfile, error)
		ResetPassword(ctx context.Context, login, pwd string) error
		EnsureAdmin(ctx context.Context, email, pwd string) (Account, error)
	}

	service struct {
		repo     Repository
		tx       core.TxRunner
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, tx core.TxRunner, validate *validator.Validate) Service {
	return &service{repo: repo, tx: tx, validate: validate}
}

func (svc *service) checkUniqueness(ctx context.Context, uname, email string) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email); err != nil {
		switch errors.Cause(err) {
		case ErrEmailExists:
			return core.NewConflictError(ErrEmailExists, "email")
		case ErrUsernameExists:
			return core.NewConflictError(ErrUsernameExists, "username")
		}
		return core.NewPersistenceError(err, "checking account uniqueness")
	}
	return nil
}

// Register validates na, resolves the role and username from the email, then creates the
// account and its role profile in one transaction.
func (svc *service) Register(ctx context.Context, na NewAccount) (Account, Profile, error) {
	na.Clean()
	if err := svc.validate.Struct(na); err != nil {
		return Account{}, nil, err
	}

	role, ok := RoleFromEmail(na.Email)
	if !ok { // also caught by the roleemail tag
		return Account{}, nil, core.NewValidationError(nil, core.FieldError{Field: "email", Error: roleEmailText})
	}
	uname := UsernameFromEmail(na.Email)
	if err := svc.checkUniqueness(ctx, uname, na.Email); err != nil {
		return Account{}, nil, err
	}

	now := time.Now().UTC()
	acc := Account{
		FirstName: na.FirstName,
		LastName:  na.LastName,
		Username:  uname,
		Email:     na.Email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := acc.SetPassword(na.Password); err != nil {
		return Account{}, nil, errors.Wrap(err, "hashing password")
	}

	var prof Profile
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if acc, err = svc.repo.CreateAccount(ctx, acc, exec); err != nil {
			return err
		}
		prof, err = svc.repo.CreateProfile(ctx, newProfile(acc, now), exec)
		return err
	})
	if err != nil {
		// lost a race against a concurrent registration
		if cause := errors.Cause(err); cause == ErrEmailExists || cause == ErrUsernameExists {
			return Account{}, nil, svc.checkUniqueness(ctx, uname, na.Email)
		}
		return Account{}, nil, core.NewPersistenceError(err, "registering account")
	}
	return acc, prof, nil
}

// Authenticate resolves login as a username or an email and verifies pwd.
func (svc *service) Authenticate(ctx context.Context, login, pwd string) (Account, error) {
	acc, err := svc.repo.GetAccount(ctx, GetFilter{UsernameOrEmail: core.CleanString(login, true /* lower */)})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Account{}, core.NewAuthError(errInvalidCredentials)
		}
		return Account{}, errors.Wrap(err, "finding account by username or email")
	}
	if err = acc.CheckPassword(pwd); err != nil {
		return Account{}, core.NewAuthError(errInvalidCredentials)
	}

	now := time.Now().UTC()
	if err = svc.repo.SetLastLogin(ctx, acc.ID, now); err != nil {
		return Account{}, errors.Wrap(err, "setting lastLogin")
	}
	acc.LastLogin = &now
	return acc, nil
}

func (svc *service) GetByID(ctx context.Context, id string) (Account, error) {
	return svc.repo.GetAccount(ctx, GetFilter{ID: id})
}

func (svc *service) GetProfile(ctx context.Context, acc Account) (Profile, error) {
	return svc.repo.GetProfile(ctx, acc)
}

func (svc *service) GetStudent(ctx context.Context, filter StudentFilter) (StudentProfile, error) {
	return svc.repo.GetStudent(ctx, filter)
}

func (svc *service) QueryStudents(ctx context.Context, courseID string) ([]StudentProfile, error) {
	return svc.repo.QueryStudents(ctx, courseID)
}

// UpdateProfile applies the supplied fields only, on the account as currently stored.
// The account row and the profile row are written in one transaction.
func (svc *service) UpdateProfile(ctx context.Context, caller Account, up UpdateProfile) (Account, Profile, error) {
	var hash []byte
	if up.Password != nil && *up.Password != "" {
		var tmp Account
		if err := tmp.SetPassword(*up.Password); err != nil {
			return Account{}, nil, errors.Wrap(err, "hashing password")
		}
		hash = tmp.PasswordHash
	}

	var (
		acc  Account
		prof Profile
	)
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if acc, err = svc.repo.GetAccount(ctx, GetFilter{ID: caller.ID, ForUpdate: true}, exec); err != nil {
			return err
		}
		if up.FirstName != nil {
			acc.FirstName = core.CleanString(*up.FirstName)
		}
		if up.LastName != nil {
			acc.LastName = core.CleanString(*up.LastName)
		}
		if hash != nil {
			acc.PasswordHash = hash
		}
		acc.UpdatedAt = time.Now().UTC()

		if prof, err = svc.repo.GetProfile(ctx, acc, exec); err != nil {
			return err
		}
		if up.Address != nil {
			address := core.CleanString(*up.Address)
			switch p := prof.(type) {
			case StaffProfile:
				p.Address = address
				p.UpdatedAt = acc.UpdatedAt
				prof = p
			case StudentProfile:
				p.Address = address
				p.UpdatedAt = acc.UpdatedAt
				prof = p
			default:
				return core.NewValidationError(errNoAddress, core.FieldError{Field: "address", Error: errNoAddress.Error()})
			}
			if prof, err = svc.repo.UpdateProfile(ctx, prof, exec); err != nil {
				return err
			}
		}
		acc, err = svc.repo.UpdateAccount(ctx, acc, exec)
		return err
	})
	if err != nil {
		if core.IsValidation(err) {
			return Account{}, nil, err
		}
		return Account{}, nil, core.NewPersistenceError(err, "updating profile")
	}
	return acc, prof, nil
}

// EnrolStudent sets the course, semester and gender of the student owning accountID.
func (svc *service) EnrolStudent(ctx context.Context, accountID string, e Enrolment) (StudentProfile, error) {
	e.Clean()
	if err := svc.validate.Struct(e); err != nil {
		return StudentProfile{}, err
	}

	var student StudentProfile
	err := svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if student, err = svc.repo.GetStudent(ctx, StudentFilter{AccountID: accountID}, exec); err != nil {
			return err
		}
		student.CourseID = e.CourseID
		student.SemesterID = e.SemesterID
		if e.Gender != "" {
			student.Gender = e.Gender
		}
		student.UpdatedAt = time.Now().UTC()
		prof, err := svc.repo.UpdateProfile(ctx, student, exec)
		if err != nil {
			return err
		}
		student = prof.(StudentProfile)
		return nil
	})
	if err != nil {
		if cause := errors.Cause(err); cause == ErrProfileNotFound || core.IsValidation(cause) {
			return StudentProfile{}, cause
		}
		return StudentProfile{}, core.NewPersistenceError(err, "enrolling student")
	}
	return student, nil
}

func (svc *service) ResetPassword(ctx context.Context, login, pwd string) error {
	acc, err := svc.repo.GetAccount(ctx, GetFilter{UsernameOrEmail: core.CleanString(login, true /* lower */)})
	if err != nil {
		return err
	}
	if err := acc.SetPassword(pwd); err != nil {
		return err
	}
	acc.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateAccount(ctx, acc)
	return err
}

// EnsureAdmin updates or creates the admin (HOD) account owning email.
func (svc *service) EnsureAdmin(ctx context.Context, email, pwd string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	if role, ok := RoleFromEmail(email); !ok || role != RoleAdmin {
		return Account{}, core.NewValidationError(nil, core.FieldError{Field: "email", Error: roleEmailText})
	}

	acc, err := svc.repo.GetAccount(ctx, GetFilter{Email: email})
	switch errors.Cause(err) {
	case nil:
		return acc, svc.ResetPassword(ctx, email, pwd)
	case ErrNotFound:
		acc, _, err = svc.Register(ctx, NewAccount{Email: email, Password: pwd, PasswordConfirm: pwd})
		return acc, err
	default:
		return Account{}, err
	}
}
