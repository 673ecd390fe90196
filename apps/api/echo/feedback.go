package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/feedback"
)

type feedbackApi struct {
	svc    feedback.Service
	accSvc account.Service
}

func registerFeedbackAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := feedbackApi{svc: deps.FeedbackSvc, accSvc: deps.AccountSvc}

	fg := g.Group("/feedback", append(authed, roleMiddleware(account.RoleStaff, account.RoleStudent))...)
	fg.GET("", api.listOwn)
	fg.POST("", api.submit)

	ag := g.Group("/admin/feedback", append(authed, roleMiddleware(account.RoleAdmin))...)
	ag.GET("", api.listAll)
	ag.PUT("/:id", api.reply)
}

// Handlers

func (api *feedbackApi) listOwn(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	ordering := new(Ordering)
	if err = ordering.Bind(ctx, feedback.OrderingFields); err != nil {
		return err
	}

	list, err := api.svc.ListOwn(ctx.Request().Context(), acc, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing own feedback")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *feedbackApi) submit(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data feedback.NewFeedback
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFeedback")
	}
	f, err := api.svc.Submit(ctx.Request().Context(), acc, data)
	if err != nil {
		return errors.Wrap(err, "submitting feedback")
	}
	return ctx.JSON(http.StatusCreated, f)
}

func (api *feedbackApi) listAll(ctx echo.Context) error {
	var answered *bool
	if val := ctx.QueryParam("answered"); val != "" {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "answered", Error: "must be true or false"})
		}
		answered = &b
	}

	list, err := api.svc.ListAll(ctx.Request().Context(), answered)
	if err != nil {
		return errors.Wrap(err, "listing feedback")
	}
	return ctx.JSON(http.StatusOK, list)
}

func (api *feedbackApi) reply(ctx echo.Context) error {
	var data feedback.Reply
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Reply")
	}
	f, err := api.svc.Reply(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "replying to feedback")
	}
	return ctx.JSON(http.StatusOK, f)
}
