package feedback

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
	ErrNotFound     = errors.New("feedback not found")
	errCannotSubmit = errors.New("only staff and students can send feedback")
)

const (
	replyTemplate     = "feedback_reply"
	replyTemplateText = `Hello {{.Name}},

Your feedback has been answered.

> {{.Message}}

{{.Reply}}
`
)

func init() {
	core.RegisterEmailTemplate(replyTemplate, replyTemplateText)
}

type (
	Repository interface {
		CreateFeedback(ctx context.Context, f Feedback, exec ...core.DBExecutor) (Feedback, error)
		QueryFeedback(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Feedback, error)
		GetFeedback(ctx context.Context, id string, exec ...core.DBExecutor) (Feedback, error)
		UpdateFeedback(ctx context.Context, f Feedback, exec ...core.DBExecutor) (Feedback, error)
	}

	Service interface {
		Submit(ctx context.Context, author account.Account, nf NewFeedback) (Feedback, error)
		ListOwn(ctx context.Context, author account.Account, ordering []core.DBOrdering) ([]Feedback, error)
		ListAll(ctx context.Context, answered *bool) ([]Feedback, error)
		Reply(ctx context.Context, id string, r Reply) (Feedback, error)
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

func (svc *service) Submit(ctx context.Context, author account.Account, nf NewFeedback) (Feedback, error) {
	if author.IsAdmin() {
		return Feedback{}, core.NewValidationError(errCannotSubmit)
	}
	nf.Clean()
	if err := svc.validate.Struct(nf); err != nil {
		return Feedback{}, err
	}

	now := time.Now().UTC()
	f, err := svc.repo.CreateFeedback(ctx, Feedback{
		AccountID: author.ID,
		Role:      author.Role,
		Message:   nf.Message,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Feedback{}, core.NewPersistenceError(err, "sending feedback")
	}
	return f, nil
}

func (svc *service) ListOwn(ctx context.Context, author account.Account, ordering []core.DBOrdering) ([]Feedback, error) {
	return svc.repo.QueryFeedback(ctx, QueryFilter{AccountID: author.ID}, ordering)
}

func (svc *service) ListAll(ctx context.Context, answered *bool) ([]Feedback, error) {
	return svc.repo.QueryFeedback(ctx, QueryFilter{Answered: answered}, nil)
}

// Reply stores the answer to a feedback and emails it to the author.
// Replying again overwrites the previous answer.
func (svc *service) Reply(ctx context.Context, id string, r Reply) (Feedback, error) {
	r.Clean()
	if err := svc.validate.Struct(r); err != nil {
		return Feedback{}, err
	}

	f, err := svc.repo.GetFeedback(ctx, id)
	if err != nil {
		return Feedback{}, err
	}
	now := time.Now().UTC()
	f.Reply = r.Reply
	f.RepliedAt = &now
	f.UpdatedAt = now
	if f, err = svc.repo.UpdateFeedback(ctx, f); err != nil {
		return Feedback{}, core.NewPersistenceError(err, "replying to feedback")
	}

	if author, err := svc.accSvc.GetByID(ctx, f.AccountID); err == nil {
		svc.mailSvc.SendMessages(&core.EmailMessage{
			To:           []mail.Address{{Name: author.FullName(), Address: author.Email}},
			Subject:      "Reply to your feedback",
			TemplateName: replyTemplate,
			TemplateData: map[string]interface{}{
				"Name":    author.FullName(),
				"Message": f.Message,
				"Reply":   f.Reply,
			},
		})
	}
	return f, nil
}
