package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/leave"
)

type leaveApi struct {
	svc    leave.Service
	accSvc account.Service
}

func registerLeaveAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := leaveApi{svc: deps.LeaveSvc, accSvc: deps.AccountSvc}

	lg := g.Group("/leaves", append(authed, roleMiddleware(account.RoleStaff, account.RoleStudent))...)
	lg.GET("", api.listOwn)
	lg.POST("", api.submit)

	ag := g.Group("/admin/leaves", append(authed, roleMiddleware(account.RoleAdmin))...)
	ag.GET("", api.listAll)
	ag.PUT("/:id", api.decide)
}

// Handlers

func (api *leaveApi) listOwn(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	ordering := new(Ordering)
	if err = ordering.Bind(ctx, leave.OrderingFields); err != nil {
		return err
	}

	leaves, err := api.svc.ListOwn(ctx.Request().Context(), acc, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "listing own leaves")
	}
	return ctx.JSON(http.StatusOK, leaves)
}

func (api *leaveApi) submit(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data leave.NewLeave
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLeave")
	}
	l, err := api.svc.Submit(ctx.Request().Context(), acc, data)
	if err != nil {
		return errors.Wrap(err, "submitting leave")
	}
	return ctx.JSON(http.StatusCreated, l)
}

func (api *leaveApi) listAll(ctx echo.Context) error {
	leaves, err := api.svc.ListAll(ctx.Request().Context(), leave.Status(ctx.QueryParam("status")))
	if err != nil {
		return errors.Wrap(err, "listing leaves")
	}
	return ctx.JSON(http.StatusOK, leaves)
}

func (api *leaveApi) decide(ctx echo.Context) error {
	admin, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data leave.Decision
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Decision")
	}
	l, err := api.svc.Decide(ctx.Request().Context(), admin, ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "deciding leave")
	}
	return ctx.JSON(http.StatusOK, l)
}
