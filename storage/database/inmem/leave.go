package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/leave"
)

type leaveRepository struct {
	db *DB
}

var _ leave.Repository = (*leaveRepository)(nil) // interface compliance check

func NewLeaveRepository(db *DB) leave.Repository {
	return &leaveRepository{db: db}
}

func (repo *leaveRepository) CreateLeave(_ context.Context, l leave.Leave, _ ...core.DBExecutor) (leave.Leave, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	l.ID = uuid.New().String()
	repo.db.t.leaves[l.ID] = l
	return l, nil
}

func (repo *leaveRepository) QueryLeaves(
	_ context.Context,
	filter leave.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]leave.Leave, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	leaves := make([]leave.Leave, 0)
	for _, l := range repo.db.t.leaves {
		if filter.AccountID != "" && l.AccountID != filter.AccountID {
			continue
		}
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		leaves = append(leaves, l)
	}

	fields := map[string]compareFunc{
		"id":         func(i, j int) int { return compareStrings(leaves[i].ID, leaves[j].ID) },
		"created_at": func(i, j int) int { return leaves[i].CreatedAt.Compare(leaves[j].CreatedAt) },
		"date":       func(i, j int) int { return leaves[i].Date.Compare(leaves[j].Date.Time) },
		"status":     func(i, j int) int { return compareStrings(string(leaves[i].Status), string(leaves[j].Status)) },
	}
	sortRows(
		len(leaves),
		func(i, j int) { leaves[i], leaves[j] = leaves[j], leaves[i] },
		ordering,
		fields,
		core.DBOrdering{Field: "created_at"},
	)
	return leaves, nil
}

func (repo *leaveRepository) GetLeave(_ context.Context, id string, _ ...core.DBExecutor) (leave.Leave, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if l, ok := repo.db.t.leaves[id]; ok {
		return l, nil
	}
	return leave.Leave{}, leave.ErrNotFound
}

func (repo *leaveRepository) DecideLeave(_ context.Context, l leave.Leave, _ ...core.DBExecutor) (leave.Leave, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.t.leaves[l.ID]
	if !ok || orig.Status != leave.StatusPending {
		return leave.Leave{}, leave.ErrAlreadyDecided
	}
	orig.Status = l.Status
	orig.DecidedBy = l.DecidedBy
	orig.DecidedAt = l.DecidedAt
	orig.UpdatedAt = l.UpdatedAt
	repo.db.t.leaves[l.ID] = orig
	return orig, nil
}
