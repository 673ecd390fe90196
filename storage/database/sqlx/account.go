package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

const (
	accountColumns = `id, first_name, last_name, username, email, role, password_hash, created_at, updated_at, last_login`
	studentColumns = `id, account_id, course_id, semester_id, address, gender, photo_ref, created_at, updated_at`
)

type accountRow struct {
	ID           string    `db:"id"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
	LastLogin    null.Time `db:"last_login"`
}

type profileRow struct {
	ID         string      `db:"id"`
	AccountID  string      `db:"account_id"`
	CourseID   null.String `db:"course_id"`
	SemesterID null.String `db:"semester_id"`
	Address    string      `db:"address"`
	Gender     string      `db:"gender"`
	PhotoRef   string      `db:"photo_ref"`
	CreatedAt  time.Time   `db:"created_at"`
	UpdatedAt  time.Time   `db:"updated_at"`
}

type accountRepository struct {
	baseRepository
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(exec core.DBExecutor) account.Repository {
	return &accountRepository{baseRepository{exec: exec}}
}

func (repo accountRepository) toRow(acc account.Account) accountRow {
	return accountRow{
		ID:           acc.ID,
		FirstName:    acc.FirstName,
		LastName:     acc.LastName,
		Username:     acc.Username,
		Email:        acc.Email,
		Role:         string(acc.Role),
		PasswordHash: acc.PasswordHash,
		CreatedAt:    acc.CreatedAt.UTC(),
		UpdatedAt:    acc.UpdatedAt.UTC(),
		LastLogin:    null.TimeFromPtr(acc.LastLogin),
	}
}

func (repo accountRepository) fromRow(row accountRow) account.Account {
	return account.Account{
		ID:           row.ID,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Username:     row.Username,
		Email:        row.Email,
		Role:         account.Role(row.Role),
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt.UTC(),
		UpdatedAt:    row.UpdatedAt.UTC(),
		LastLogin:    utcPtr(row.LastLogin),
	}
}

func utcPtr(t null.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	utc := t.Time.UTC()
	return &utc
}

func (repo accountRepository) CheckUniqueness(ctx context.Context, username, email string, exec ...core.DBExecutor) error {
	var emails []string
	q := `SELECT email FROM account WHERE username = $1 OR email = $2`
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &emails, q, username, email); err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	for _, e := range emails {
		if e == email {
			return account.ErrEmailExists
		}
	}
	if len(emails) > 0 {
		return account.ErrUsernameExists
	}
	return nil
}

func (repo accountRepository) CreateAccount(ctx context.Context, acc account.Account, exec ...core.DBExecutor) (account.Account, error) {
	acc.ID = uuid.New().String()
	q := `INSERT INTO account (` + accountColumns + `)
		VALUES (:id, :first_name, :last_name, :username, :email, :role, :password_hash, :created_at, :updated_at, :last_login)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.toRow(acc)); err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "account_email_key" {
				return account.Account{}, account.ErrEmailExists
			}
			return account.Account{}, account.ErrUsernameExists
		}
		return account.Account{}, errors.Wrap(err, "inserting account")
	}
	return acc, nil
}

func (repo accountRepository) GetAccount(ctx context.Context, filter account.GetFilter, exec ...core.DBExecutor) (account.Account, error) {
	var where string
	var arg string
	switch {
	case filter.ID != "":
		where, arg = "id = $1", filter.ID
	case filter.Username != "":
		where, arg = "username = $1", filter.Username
	case filter.Email != "":
		where, arg = "email = $1", filter.Email
	case filter.UsernameOrEmail != "":
		where, arg = "username = $1 OR email = $1", filter.UsernameOrEmail
	default:
		return account.Account{}, account.ErrNotFound
	}

	var row accountRow
	q := `SELECT ` + accountColumns + ` FROM account WHERE ` + where + ` LIMIT 1`
	if filter.ForUpdate {
		q += ` FOR UPDATE`
	}
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, arg); err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "getting account")
	}
	return repo.fromRow(row), nil
}

func (repo accountRepository) UpdateAccount(ctx context.Context, acc account.Account, exec ...core.DBExecutor) (account.Account, error) {
	q := `UPDATE account SET
		first_name = :first_name, last_name = :last_name, password_hash = :password_hash,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.toRow(acc))
	if err != nil {
		return account.Account{}, trapNoRowsErr(err, account.ErrNotFound, "updating account")
	}
	if err = checkAffected(res, account.ErrNotFound); err != nil {
		return account.Account{}, err
	}
	return acc, nil
}

func (repo accountRepository) SetLastLogin(ctx context.Context, id string, at time.Time, exec ...core.DBExecutor) error {
	q := `UPDATE account SET last_login = $1 WHERE id = $2`
	res, err := repo.getExec(exec).ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return trapNoRowsErr(err, account.ErrNotFound, "setting last login")
	}
	return checkAffected(res, account.ErrNotFound)
}

func (repo accountRepository) profileTable(role account.Role) string {
	switch role {
	case account.RoleAdmin:
		return "admin_profile"
	case account.RoleStaff:
		return "staff_profile"
	}
	return "student_profile"
}

func (repo accountRepository) profileToRow(prof account.Profile) profileRow {
	base := account.BaseOf(prof)
	row := profileRow{
		ID:        base.ID,
		AccountID: base.AccountID,
		CreatedAt: base.CreatedAt.UTC(),
		UpdatedAt: base.UpdatedAt.UTC(),
	}
	switch p := prof.(type) {
	case account.StaffProfile:
		row.Address = p.Address
	case account.StudentProfile:
		row.CourseID = null.NewString(p.CourseID, p.CourseID != "")
		row.SemesterID = null.NewString(p.SemesterID, p.SemesterID != "")
		row.Address = p.Address
		row.Gender = p.Gender
		row.PhotoRef = p.PhotoRef
	}
	return row
}

func (repo accountRepository) profileFromRow(role account.Role, row profileRow) account.Profile {
	base := account.ProfileBase{
		ID:        row.ID,
		AccountID: row.AccountID,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	switch role {
	case account.RoleAdmin:
		return account.AdminProfile{ProfileBase: base}
	case account.RoleStaff:
		return account.StaffProfile{ProfileBase: base, Address: row.Address}
	}
	return repo.studentFromRow(row)
}

func (repo accountRepository) studentFromRow(row profileRow) account.StudentProfile {
	return account.StudentProfile{
		ProfileBase: account.ProfileBase{
			ID:        row.ID,
			AccountID: row.AccountID,
			CreatedAt: row.CreatedAt.UTC(),
			UpdatedAt: row.UpdatedAt.UTC(),
		},
		CourseID:   row.CourseID.String,
		SemesterID: row.SemesterID.String,
		Address:    row.Address,
		Gender:     row.Gender,
		PhotoRef:   row.PhotoRef,
	}
}

func (repo accountRepository) CreateProfile(ctx context.Context, prof account.Profile, exec ...core.DBExecutor) (account.Profile, error) {
	if prof == nil {
		return nil, errors.New("nil profile")
	}
	row := repo.profileToRow(prof)
	row.ID = uuid.New().String()

	var q string
	switch prof.Role() {
	case account.RoleAdmin:
		q = `INSERT INTO admin_profile (id, account_id, created_at, updated_at)
			VALUES (:id, :account_id, :created_at, :updated_at)`
	case account.RoleStaff:
		q = `INSERT INTO staff_profile (id, account_id, address, created_at, updated_at)
			VALUES (:id, :account_id, :address, :created_at, :updated_at)`
	default:
		q = `INSERT INTO student_profile (` + studentColumns + `)
			VALUES (:id, :account_id, :course_id, :semester_id, :address, :gender, :photo_ref, :created_at, :updated_at)`
	}
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, row); err != nil {
		return nil, errors.Wrap(err, "inserting "+repo.profileTable(prof.Role()))
	}
	return repo.profileFromRow(prof.Role(), row), nil
}

func (repo accountRepository) GetProfile(ctx context.Context, acc account.Account, exec ...core.DBExecutor) (account.Profile, error) {
	var cols string
	switch acc.Role {
	case account.RoleAdmin:
		cols = `id, account_id, created_at, updated_at`
	case account.RoleStaff:
		cols = `id, account_id, address, created_at, updated_at`
	case account.RoleStudent:
		cols = studentColumns
	default:
		return nil, account.ErrProfileNotFound
	}

	var row profileRow
	q := `SELECT ` + cols + ` FROM ` + repo.profileTable(acc.Role) + ` WHERE account_id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, acc.ID); err != nil {
		return nil, trapNoRowsErr(err, account.ErrProfileNotFound, "getting profile")
	}
	return repo.profileFromRow(acc.Role, row), nil
}

func (repo accountRepository) UpdateProfile(ctx context.Context, prof account.Profile, exec ...core.DBExecutor) (account.Profile, error) {
	if prof == nil {
		return nil, errors.New("nil profile")
	}

	var q string
	switch prof.Role() {
	case account.RoleAdmin:
		q = `UPDATE admin_profile SET updated_at = :updated_at WHERE id = :id`
	case account.RoleStaff:
		q = `UPDATE staff_profile SET address = :address, updated_at = :updated_at WHERE id = :id`
	default:
		q = `UPDATE student_profile SET
			course_id = :course_id, semester_id = :semester_id, address = :address,
			gender = :gender, photo_ref = :photo_ref, updated_at = :updated_at
			WHERE id = :id`
	}
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, repo.profileToRow(prof))
	if err != nil {
		return nil, trapNoRowsErr(err, account.ErrProfileNotFound, "updating "+repo.profileTable(prof.Role()))
	}
	if err = checkAffected(res, account.ErrProfileNotFound); err != nil {
		return nil, err
	}
	return prof, nil
}

func (repo accountRepository) GetStudent(ctx context.Context, filter account.StudentFilter, exec ...core.DBExecutor) (account.StudentProfile, error) {
	var where, arg string
	switch {
	case filter.ID != "":
		where, arg = "id = $1", filter.ID
	case filter.AccountID != "":
		where, arg = "account_id = $1", filter.AccountID
	default:
		return account.StudentProfile{}, account.ErrProfileNotFound
	}

	var row profileRow
	q := `SELECT ` + studentColumns + ` FROM student_profile WHERE ` + where
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, arg); err != nil {
		return account.StudentProfile{}, trapNoRowsErr(err, account.ErrProfileNotFound, "getting student")
	}
	return repo.studentFromRow(row), nil
}

func (repo accountRepository) QueryStudents(ctx context.Context, courseID string, exec ...core.DBExecutor) ([]account.StudentProfile, error) {
	q := `SELECT ` + studentColumns + ` FROM student_profile`
	var args []interface{}
	if courseID != "" {
		q += ` WHERE course_id = $1`
		args = append(args, courseID)
	}
	q += ` ORDER BY created_at, id`

	var rows []profileRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, args...); err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == invalidTextRepresentation {
			return []account.StudentProfile{}, nil
		}
		return nil, errors.Wrap(err, "querying students")
	}
	students := make([]account.StudentProfile, 0, len(rows))
	for _, row := range rows {
		students = append(students, repo.studentFromRow(row))
	}
	return students, nil
}
