package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/result"
)

type resultApi struct {
	svc    result.Service
	accSvc account.Service
}

func registerResultAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := resultApi{svc: deps.ResultSvc, accSvc: deps.AccountSvc}

	rg := g.Group("/results", authed...)
	rg.GET("", api.listOwn, roleMiddleware(account.RoleStudent))
	rg.POST("", api.record, roleMiddleware(account.RoleStaff))
}

// Handlers

func (api *resultApi) listOwn(ctx echo.Context) error {
	student, err := getContextStudent(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context student")
	}
	results, err := api.svc.GetForStudent(ctx.Request().Context(), student)
	if err != nil {
		return errors.Wrap(err, "getting results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *resultApi) record(ctx echo.Context) error {
	staff, err := getContextAccount(ctx, api.accSvc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data result.NewResult
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewResult")
	}
	res, err := api.svc.Record(ctx.Request().Context(), staff, data)
	if err != nil {
		return errors.Wrap(err, "recording result")
	}
	return ctx.JSON(http.StatusOK, res)
}
