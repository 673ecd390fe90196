package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil) // interface compliance check

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) CreateCourse(_ context.Context, c academic.Course, _ ...core.DBExecutor) (academic.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	c.ID = uuid.New().String()
	repo.db.t.courses[c.ID] = c
	return c, nil
}

func (repo *academicRepository) QueryCourses(_ context.Context, _ ...core.DBExecutor) ([]academic.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]academic.Course, 0, len(repo.db.t.courses))
	for _, c := range repo.db.t.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool {
		if courses[i].Name == courses[j].Name {
			return courses[i].ID < courses[j].ID
		}
		return courses[i].Name < courses[j].Name
	})
	return courses, nil
}

func (repo *academicRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (academic.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.t.courses[id]; ok {
		return c, nil
	}
	return academic.Course{}, academic.ErrCourseNotFound
}

func (repo *academicRepository) CreateSubject(_ context.Context, s academic.Subject, _ ...core.DBExecutor) (academic.Subject, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.t.courses[s.CourseID]; !ok {
		return academic.Subject{}, academic.ErrCourseNotFound
	}
	s.ID = uuid.New().String()
	repo.db.t.subjects[s.ID] = s
	return s, nil
}

func (repo *academicRepository) QuerySubjects(_ context.Context, filter academic.SubjectFilter, _ ...core.DBExecutor) ([]academic.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subjects := make([]academic.Subject, 0)
	for _, s := range repo.db.t.subjects {
		if filter.CourseID != "" && s.CourseID != filter.CourseID {
			continue
		}
		if filter.StaffID != "" && s.StaffID != filter.StaffID {
			continue
		}
		subjects = append(subjects, s)
	}
	sortSubjects(subjects)
	return subjects, nil
}

func sortSubjects(subjects []academic.Subject) {
	sort.Slice(subjects, func(i, j int) bool {
		if subjects[i].Name == subjects[j].Name {
			return subjects[i].ID < subjects[j].ID
		}
		return subjects[i].Name < subjects[j].Name
	})
}

func (repo *academicRepository) GetSubject(_ context.Context, id string, _ ...core.DBExecutor) (academic.Subject, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.subjects[id]; ok {
		return s, nil
	}
	return academic.Subject{}, academic.ErrSubjectNotFound
}

func (repo *academicRepository) CreateSemester(_ context.Context, s academic.Semester, _ ...core.DBExecutor) (academic.Semester, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = uuid.New().String()
	repo.db.t.semesters[s.ID] = s
	return s, nil
}

func (repo *academicRepository) QuerySemesters(_ context.Context, _ ...core.DBExecutor) ([]academic.Semester, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	semesters := make([]academic.Semester, 0, len(repo.db.t.semesters))
	for _, s := range repo.db.t.semesters {
		semesters = append(semesters, s)
	}
	sort.Slice(semesters, func(i, j int) bool {
		if semesters[i].StartDate.Equal(semesters[j].StartDate.Time) {
			return semesters[i].ID < semesters[j].ID
		}
		return semesters[i].StartDate.After(semesters[j].StartDate)
	})
	return semesters, nil
}

func (repo *academicRepository) GetSemester(_ context.Context, id string, _ ...core.DBExecutor) (academic.Semester, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.t.semesters[id]; ok {
		return s, nil
	}
	return academic.Semester{}, academic.ErrSemesterNotFound
}
