package result

import (
	"time"

	"github.com/trezcool/shule/core/academic"
)

type Result struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"` // student profile ID
	SubjectID       string    `json:"subject_id"`
	ExamMarks       float64   `json:"exam_marks"`
	AssignmentMarks float64   `json:"assignment_marks"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (r Result) Total() float64 { return r.ExamMarks + r.AssignmentMarks }

// SubjectResult pairs a Result with its Subject.
type SubjectResult struct {
	Result
	Subject academic.Subject `json:"subject"`
}

type NewResult struct {
	StudentID       string  `json:"student_id" validate:"required"`
	SubjectID       string  `json:"subject_id" validate:"required"`
	ExamMarks       float64 `json:"exam_marks" validate:"gte=0"`
	AssignmentMarks float64 `json:"assignment_marks" validate:"gte=0"`
}
