package feedback

import (
	"time"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

// OrderingFields are the columns a feedback list may be ordered by.
var OrderingFields = []string{"created_at", "replied_at"}

type Feedback struct {
	ID        string       `json:"id"`
	AccountID string       `json:"account_id"`
	Role      account.Role `json:"role"`
	Message   string       `json:"message"`
	Reply     string       `json:"reply"` // empty until answered
	RepliedAt *time.Time   `json:"replied_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (f Feedback) Answered() bool { return f.Reply != "" }

type NewFeedback struct {
	Message string `json:"message" form:"feedback_message" validate:"required"`
}

func (nf *NewFeedback) Clean() {
	nf.Message = core.CleanString(nf.Message)
}

type Reply struct {
	Reply string `json:"reply" validate:"required"`
}

func (r *Reply) Clean() {
	r.Reply = core.CleanString(r.Reply)
}

type QueryFilter struct {
	AccountID string
	Answered  *bool
}
