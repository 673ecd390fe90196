package leave

import (
	"context"
	"net/mail"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

var (
	// errors
	ErrNotFound       = errors.New("leave request not found")
	ErrAlreadyDecided = errors.New("leave request has already been decided")
	errCannotRequest  = errors.New("only staff and students can request leave")
	errUnknownStatus  = errors.New("unknown leave status")
)

const (
	decisionTemplate     = "leave_decision"
	decisionTemplateText = `Hello {{.Name}},

Your leave request for {{.Date}} has been {{.Status}}.

{{.Message}}
`
)

func init() {
	core.RegisterEmailTemplate(decisionTemplate, decisionTemplateText)
}

type (
	Repository interface {
		CreateLeave(ctx context.Context, l Leave, exec ...core.DBExecutor) (Leave, error)
		QueryLeaves(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Leave, error)
		GetLeave(ctx context.Context, id string, exec ...core.DBExecutor) (Leave, error)
		// DecideLeave stores the decision of a pending leave; a decided one reports ErrAlreadyDecided.
		DecideLeave(ctx context.Context, l Leave, exec ...core.DBExecutor) (Leave, error)
	}

	Service interface {
		Submit(ctx context.Context, requester account.Account, nl NewLeave) (Leave, error)
		ListOwn(ctx context.Context, requester account.Account, ordering []core.DBOrdering) ([]Leave, error)
		ListAll(ctx context.Context, status Status) ([]Leave, error)
		Decide(ctx context.Context, admin account.Account, id string, d Decision) (Leave, error)
	}

	service struct {
		repo     Repository
		accSvc   account.Service
		mailSvc  core.EmailService
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, accSvc account.Service, mailSvc core.EmailService, validate *validator.Validate) Service {
	return &service{repo: repo, accSvc: accSvc, mailSvc: mailSvc, validate: validate}
}

// Submit stores a pending leave request of a staff member or a student.
func (svc *service) Submit(ctx context.Context, requester account.Account, nl NewLeave) (Leave, error) {
	if requester.IsAdmin() {
		return Leave{}, core.NewValidationError(errCannotRequest)
	}
	nl.Clean()
	if err := svc.validate.Struct(nl); err != nil {
		return Leave{}, err
	}
	date, _ := core.ParseDate(nl.Date) // validated above

	now := time.Now().UTC()
	l, err := svc.repo.CreateLeave(ctx, Leave{
		AccountID: requester.ID,
		Role:      requester.Role,
		Date:      core.NewDate(date),
		Message:   nl.Message,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Leave{}, core.NewPersistenceError(err, "applying for leave")
	}
	return l, nil
}

func (svc *service) ListOwn(ctx context.Context, requester account.Account, ordering []core.DBOrdering) ([]Leave, error) {
	return svc.repo.QueryLeaves(ctx, QueryFilter{AccountID: requester.ID}, ordering)
}

func (svc *service) ListAll(ctx context.Context, status Status) ([]Leave, error) {
	if status != "" && !status.Valid() {
		return nil, core.NewValidationError(errUnknownStatus, core.FieldError{Field: "status", Error: errUnknownStatus.Error()})
	}
	return svc.repo.QueryLeaves(ctx, QueryFilter{Status: status}, nil)
}

// Decide approves or rejects a pending leave request and notifies the requester.
// Decisions are final.
func (svc *service) Decide(ctx context.Context, admin account.Account, id string, d Decision) (Leave, error) {
	if err := svc.validate.Struct(d); err != nil {
		return Leave{}, err
	}

	l, err := svc.repo.GetLeave(ctx, id)
	if err != nil {
		return Leave{}, err
	}
	if l.Status != StatusPending {
		return Leave{}, core.NewConflictError(ErrAlreadyDecided, "status")
	}

	now := time.Now().UTC()
	l.Status = d.Status
	l.DecidedBy = admin.ID
	l.DecidedAt = &now
	l.UpdatedAt = now
	if l, err = svc.repo.DecideLeave(ctx, l); err != nil {
		if errors.Cause(err) == ErrAlreadyDecided {
			return Leave{}, core.NewConflictError(ErrAlreadyDecided, "status")
		}
		return Leave{}, core.NewPersistenceError(err, "deciding leave")
	}

	if requester, err := svc.accSvc.GetByID(ctx, l.AccountID); err == nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: requester.FullName(), Address: requester.Email}},
			Subject:      "Leave request " + string(l.Status),
			TemplateName: decisionTemplate,
			TemplateData: map[string]interface{}{
				"Name":    requester.FullName(),
				"Date":    l.Date.String(),
				"Status":  string(l.Status),
				"Message": l.Message,
			},
		})
	}
	return l, nil
}
