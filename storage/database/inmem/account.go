package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

type accountRepository struct {
	db *DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *DB) account.Repository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) CheckUniqueness(_ context.Context, username, email string, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var usernameTaken bool
	for _, acc := range repo.db.t.accounts {
		if acc.Email == email {
			return account.ErrEmailExists
		}
		if acc.Username == username {
			usernameTaken = true
		}
	}
	if usernameTaken {
		return account.ErrUsernameExists
	}
	return nil
}

func (repo *accountRepository) CreateAccount(_ context.Context, acc account.Account, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, a := range repo.db.t.accounts {
		if a.Email == acc.Email {
			return account.Account{}, account.ErrEmailExists
		}
		if a.Username == acc.Username {
			return account.Account{}, account.ErrUsernameExists
		}
	}
	acc.ID = uuid.New().String()
	repo.db.t.accounts[acc.ID] = acc
	return acc, nil
}

func (repo *accountRepository) GetAccount(_ context.Context, filter account.GetFilter, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if acc, ok := repo.db.t.accounts[filter.ID]; ok {
			return acc, nil
		}
		return account.Account{}, account.ErrNotFound
	}
	for _, acc := range repo.db.t.accounts {
		switch {
		case filter.Username != "" && acc.Username == filter.Username,
			filter.Email != "" && acc.Email == filter.Email,
			filter.UsernameOrEmail != "" && (acc.Username == filter.UsernameOrEmail || acc.Email == filter.UsernameOrEmail):
			return acc, nil
		}
	}
	return account.Account{}, account.ErrNotFound
}

func (repo *accountRepository) UpdateAccount(_ context.Context, acc account.Account, _ ...core.DBExecutor) (account.Account, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.t.accounts[acc.ID]
	if !ok {
		return account.Account{}, account.ErrNotFound
	}
	// username, email and role are fixed at creation
	orig.FirstName = acc.FirstName
	orig.LastName = acc.LastName
	orig.PasswordHash = acc.PasswordHash
	orig.UpdatedAt = acc.UpdatedAt
	repo.db.t.accounts[acc.ID] = orig
	return orig, nil
}

func (repo *accountRepository) SetLastLogin(_ context.Context, id string, at time.Time, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	acc, ok := repo.db.t.accounts[id]
	if !ok {
		return account.ErrNotFound
	}
	at = at.UTC()
	acc.LastLogin = &at
	repo.db.t.accounts[id] = acc
	return nil
}

func (repo *accountRepository) CreateProfile(_ context.Context, prof account.Profile, _ ...core.DBExecutor) (account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	id := uuid.New().String()
	switch p := prof.(type) {
	case account.AdminProfile:
		p.ID = id
		prof = p
	case account.StaffProfile:
		p.ID = id
		prof = p
	case account.StudentProfile:
		p.ID = id
		prof = p
	default:
		return nil, account.ErrProfileNotFound
	}
	repo.db.t.profiles[account.BaseOf(prof).AccountID] = prof
	return prof, nil
}

func (repo *accountRepository) GetProfile(_ context.Context, acc account.Account, _ ...core.DBExecutor) (account.Profile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if prof, ok := repo.db.t.profiles[acc.ID]; ok {
		return prof, nil
	}
	return nil, account.ErrProfileNotFound
}

func (repo *accountRepository) UpdateProfile(_ context.Context, prof account.Profile, _ ...core.DBExecutor) (account.Profile, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	accountID := account.BaseOf(prof).AccountID
	if _, ok := repo.db.t.profiles[accountID]; !ok {
		return nil, account.ErrProfileNotFound
	}
	repo.db.t.profiles[accountID] = prof
	return prof, nil
}

func (repo *accountRepository) GetStudent(_ context.Context, filter account.StudentFilter, _ ...core.DBExecutor) (account.StudentProfile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, prof := range repo.db.t.profiles {
		student, ok := prof.(account.StudentProfile)
		if !ok {
			continue
		}
		if (filter.ID != "" && student.ID == filter.ID) || (filter.ID == "" && filter.AccountID != "" && student.AccountID == filter.AccountID) {
			return student, nil
		}
	}
	return account.StudentProfile{}, account.ErrProfileNotFound
}

func (repo *accountRepository) QueryStudents(_ context.Context, courseID string, _ ...core.DBExecutor) ([]account.StudentProfile, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]account.StudentProfile, 0)
	for _, prof := range repo.db.t.profiles {
		if student, ok := prof.(account.StudentProfile); ok && (courseID == "" || student.CourseID == courseID) {
			students = append(students, student)
		}
	}
	sort.Slice(students, func(i, j int) bool {
		if students[i].CreatedAt.Equal(students[j].CreatedAt) {
			return students[i].ID < students[j].ID
		}
		return students[i].CreatedAt.Before(students[j].CreatedAt)
	})
	return students, nil
}
