package attendance

import (
	"time"

	"github.com/trezcool/shule/core"
)

// Session is one taken-attendance event for a subject on a given day.
type Session struct {
	ID         string    `json:"id"`
	SubjectID  string    `json:"subject_id"`
	Date       core.Date `json:"date"`
	SemesterID string    `json:"semester_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Record marks one student present or absent in a Session.
type Record struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	StudentID string    `json:"student_id"`
	Present   bool      `json:"present"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecordView is a Record joined with the date of its Session.
type RecordView struct {
	SessionID string    `json:"session_id" db:"session_id"`
	SubjectID string    `json:"subject_id" db:"subject_id"`
	Date      core.Date `json:"date" db:"date"`
	Present   bool      `json:"present" db:"present"`
}

// SubjectSummary counts a student's presences and absences in one subject.
type SubjectSummary struct {
	SubjectID   string `json:"subject_id" db:"subject_id"`
	SubjectName string `json:"subject_name" db:"subject_name"`
	Present     int    `json:"present" db:"present"`
	Absent      int    `json:"absent" db:"absent"`
}

// Total is the number of sessions the student has a record in.
func (s SubjectSummary) Total() int { return s.Present + s.Absent }

// Percentage is the share of present records, 0 when there are none.
func (s SubjectSummary) Percentage() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Present) * 100 / float64(s.Total())
}

type RangeQuery struct {
	SubjectID string `json:"subject_id" query:"subject_id" form:"subject" validate:"required"`
	StartDate string `json:"start_date" query:"start_date" form:"start_date" validate:"required,date"`
	EndDate   string `json:"end_date" query:"end_date" form:"end_date" validate:"required,date"`
}

type Mark struct {
	StudentID string `json:"student_id" validate:"required"` // student profile ID
	Present   bool   `json:"present"`
}

type NewSession struct {
	SubjectID  string `json:"subject_id" validate:"required"`
	Date       string `json:"date" validate:"required,date"`
	SemesterID string `json:"semester_id"`
	Marks      []Mark `json:"marks" validate:"required,min=1,dive"`
}

func (ns *NewSession) Clean() {
	ns.SubjectID = core.CleanString(ns.SubjectID)
	ns.SemesterID = core.CleanString(ns.SemesterID)
	for i := range ns.Marks {
		ns.Marks[i].StudentID = core.CleanString(ns.Marks[i].StudentID)
	}
}

// TakenSession is a Session together with the Records written with it.
type TakenSession struct {
	Session
	Records []Record `json:"records"`
}
