package leave

import (
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// OrderingFields are the columns a leave list may be ordered by.
var OrderingFields = []string{"created_at", "date", "status"}

type Leave struct {
	ID        string       `json:"id"`
	AccountID string       `json:"account_id"`
	Role      account.Role `json:"role"`
	Date      core.Date    `json:"date"`
	Message   string       `json:"message"`
	Status    Status       `json:"status"`
	DecidedBy string       `json:"decided_by,omitempty"`
	DecidedAt *time.Time   `json:"decided_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type NewLeave struct {
	Date    string `json:"date" form:"leave_date" validate:"required,date"`
	Message string `json:"message" form:"leave_message" validate:"required"`
}

func (nl *NewLeave) Clean() {
	nl.Date = core.CleanString(nl.Date)
	nl.Message = core.CleanString(nl.Message)
}

type Decision struct {
	Status Status `json:"status" validate:"required,oneof=approved rejected"`
}

type QueryFilter struct {
	AccountID string
	Status    Status
}
