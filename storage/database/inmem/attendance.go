package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) QuerySummary(_ context.Context, studentID, courseID string, _ ...core.DBExecutor) ([]attendance.SubjectSummary, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]academic.Subject, 0)
	for _, s := range repo.db.t.subjects {
		if s.CourseID == courseID {
			subjects = append(subjects, s)
		}
	}
	sortSubjects(subjects)

	summary := make([]attendance.SubjectSummary, 0, len(subjects))
	for _, s := range subjects {
		sum := attendance.SubjectSummary{SubjectID: s.ID, SubjectName: s.Name}
		for _, r := range repo.db.t.records {
			if r.StudentID != studentID {
				continue
			}
			if sess, ok := repo.db.t.sessions[r.SessionID]; ok && sess.SubjectID == s.ID {
				if r.Present {
					sum.Present++
				} else {
					sum.Absent++
				}
			}
		}
		summary = append(summary, sum)
	}
	return summary, nil
}

func (repo *attendanceRepository) QueryRecords(
	_ context.Context,
	studentID, subjectID string,
	start, end core.Date,
	_ ...core.DBExecutor,
) ([]attendance.RecordView, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	type view struct {
		attendance.RecordView
		session attendance.Session
	}
	views := make([]view, 0)
	for _, r := range repo.db.t.records {
		if r.StudentID != studentID {
			continue
		}
		sess, ok := repo.db.t.sessions[r.SessionID]
		if !ok || sess.SubjectID != subjectID || sess.Date.Before(start) || sess.Date.After(end) {
			continue
		}
		views = append(views, view{
			RecordView: attendance.RecordView{
				SessionID: sess.ID,
				SubjectID: sess.SubjectID,
				Date:      sess.Date,
				Present:   r.Present,
			},
			session: sess,
		})
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i].session, views[j].session
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	records := make([]attendance.RecordView, 0, len(views))
	for _, v := range views {
		records = append(records, v.RecordView)
	}
	return records, nil
}

func (repo *attendanceRepository) CreateSession(_ context.Context, s attendance.Session, _ ...core.DBExecutor) (attendance.Session, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = uuid.New().String()
	repo.db.t.sessions[s.ID] = s
	return s, nil
}

func (repo *attendanceRepository) CreateRecords(_ context.Context, records []attendance.Record, _ ...core.DBExecutor) ([]attendance.Record, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	created := make([]attendance.Record, 0, len(records))
	for _, r := range records {
		for _, existing := range repo.db.t.records {
			if existing.SessionID == r.SessionID && existing.StudentID == r.StudentID {
				return nil, attendance.ErrDuplicateRecord
			}
		}
		r.ID = uuid.New().String()
		repo.db.t.records[r.ID] = r
		created = append(created, r)
	}
	return created, nil
}

func (repo *attendanceRepository) QuerySessions(_ context.Context, subjectID string, _ ...core.DBExecutor) ([]attendance.Session, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	sessions := make([]attendance.Session, 0)
	for _, s := range repo.db.t.sessions {
		if s.SubjectID == subjectID {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.After(b.Date)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return sessions, nil
}
