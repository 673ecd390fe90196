package academic

import (
	"time"

	"github.com/trezcool/shule/core"
)

type Course struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CourseID  string    `json:"course_id"`
	StaffID   string    `json:"staff_id"` // account ID of the teaching staff
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Semester struct {
	ID        string    `json:"id"`
	StartDate core.Date `json:"start_date"`
	EndDate   core.Date `json:"end_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Contains reports whether d falls within the semester, bounds included.
func (s Semester) Contains(d core.Date) bool {
	return !d.Before(s.StartDate) && !d.After(s.EndDate)
}

type NewCourse struct {
	Name string `json:"name" validate:"required,max=255"`
}

func (nc *NewCourse) Clean() {
	nc.Name = core.CleanString(nc.Name)
}

type NewSubject struct {
	Name     string `json:"name" validate:"required,max=255"`
	CourseID string `json:"course_id" validate:"required"`
	StaffID  string `json:"staff_id" validate:"required"`
}

func (ns *NewSubject) Clean() {
	ns.Name = core.CleanString(ns.Name)
	ns.CourseID = core.CleanString(ns.CourseID)
	ns.StaffID = core.CleanString(ns.StaffID)
}

type NewSemester struct {
	StartDate string `json:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" validate:"required,date"`
}

type SubjectFilter struct {
	CourseID string `query:"course_id"`
	StaffID  string `query:"staff_id"`
}
