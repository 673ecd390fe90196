package inmemdb

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/feedback"
)

type feedbackRepository struct {
	db *DB
}

var _ feedback.Repository = (*feedbackRepository)(nil) // interface compliance check

func NewFeedbackRepository(db *DB) feedback.Repository {
	return &feedbackRepository{db: db}
}

func (repo *feedbackRepository) CreateFeedback(_ context.Context, f feedback.Feedback, _ ...core.DBExecutor) (feedback.Feedback, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	f.ID = uuid.New().String()
	repo.db.t.feedback[f.ID] = f
	return f, nil
}

func (repo *feedbackRepository) QueryFeedback(
	_ context.Context,
	filter feedback.QueryFilter,
	ordering []core.DBOrdering,
	_ ...core.DBExecutor,
) ([]feedback.Feedback, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	list := make([]feedback.Feedback, 0)
	for _, f := range repo.db.t.feedback {
		if filter.AccountID != "" && f.AccountID != filter.AccountID {
			continue
		}
		if filter.Answered != nil && f.Answered() != *filter.Answered {
			continue
		}
		list = append(list, f)
	}

	repliedAt := func(f feedback.Feedback) time.Time {
		if f.RepliedAt == nil {
			return time.Time{}
		}
		return *f.RepliedAt
	}
	fields := map[string]compareFunc{
		"id":         func(i, j int) int { return compareStrings(list[i].ID, list[j].ID) },
		"created_at": func(i, j int) int { return list[i].CreatedAt.Compare(list[j].CreatedAt) },
		"replied_at": func(i, j int) int { return repliedAt(list[i]).Compare(repliedAt(list[j])) },
	}
	sortRows(
		len(list),
		func(i, j int) { list[i], list[j] = list[j], list[i] },
		ordering,
		fields,
		core.DBOrdering{Field: "created_at"},
	)
	return list, nil
}

func (repo *feedbackRepository) GetFeedback(_ context.Context, id string, _ ...core.DBExecutor) (feedback.Feedback, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if f, ok := repo.db.t.feedback[id]; ok {
		return f, nil
	}
	return feedback.Feedback{}, feedback.ErrNotFound
}

func (repo *feedbackRepository) UpdateFeedback(_ context.Context, f feedback.Feedback, _ ...core.DBExecutor) (feedback.Feedback, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.t.feedback[f.ID]
	if !ok {
		return feedback.Feedback{}, feedback.ErrNotFound
	}
	orig.Reply = f.Reply
	orig.RepliedAt = f.RepliedAt
	orig.UpdatedAt = f.UpdatedAt
	repo.db.t.feedback[f.ID] = orig
	return orig, nil
}
