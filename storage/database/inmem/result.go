package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/result"
)

type resultRepository struct {
	db *DB
}

var _ result.Repository = (*resultRepository)(nil) // interface compliance check

func NewResultRepository(db *DB) result.Repository {
	return &resultRepository{db: db}
}

func (repo *resultRepository) QueryResults(_ context.Context, studentID string, _ ...core.DBExecutor) ([]result.Result, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	results := make([]result.Result, 0)
	for _, r := range repo.db.t.results {
		if r.StudentID == studentID {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].ID < results[j].ID
		}
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	return results, nil
}

func (repo *resultRepository) UpsertResult(_ context.Context, r result.Result, _ ...core.DBExecutor) (result.Result, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.t.results {
		if existing.StudentID == r.StudentID && existing.SubjectID == r.SubjectID {
			existing.ExamMarks = r.ExamMarks
			existing.AssignmentMarks = r.AssignmentMarks
			existing.UpdatedAt = r.UpdatedAt
			repo.db.t.results[id] = existing
			return existing, nil
		}
	}
	r.ID = uuid.New().String()
	repo.db.t.results[r.ID] = r
	return r, nil
}
