package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

type accountApi struct {
	conf     *core.Config
	svc      account.Service
	sessions core.SessionStore
	logger   core.Logger
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, authed []echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		conf:     deps.Conf,
		svc:      deps.AccountSvc,
		sessions: deps.Sessions,
		logger:   deps.Logger,
		validate: deps.Validate,
	}

	// un-authed endpoints
	ag := g.Group("/auth")
	ag.POST("/register", api.register)
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)

	pg := g.Group("/profile", authed...)
	pg.GET("", api.retrieveProfile)
	pg.PUT("", api.updateProfile)
}

// Handlers

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewAccount
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAccount")
	}

	acc, _, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "registering account")
	}
	return ctx.JSON(http.StatusCreated, acc)
}

func (api *accountApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	acc, err := api.svc.Authenticate(ctx.Request().Context(), data.Login, data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetAccountClaims(acc, api.conf), api.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token, Role: acc.Role, Home: acc.Role.HomeRoute()})
}

// logout always succeeds: a missing, expired or already revoked token is already logged out.
func (api *accountApi) logout(ctx echo.Context) error {
	revokeToken(ctx, api.sessions, api.logger, bearerToken(ctx), api.conf.SecretKey)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *accountApi) retrieveProfile(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}
	prof, err := api.svc.GetProfile(ctx.Request().Context(), acc)
	if err != nil {
		return errors.Wrap(err, "getting profile")
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{Account: acc, Profile: prof})
}

func (api *accountApi) updateProfile(ctx echo.Context) error {
	acc, err := getContextAccount(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context account")
	}

	var data account.UpdateProfile
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	acc, prof, err := api.svc.UpdateProfile(ctx.Request().Context(), acc, data)
	if err != nil {
		return errors.Wrap(err, "updating profile")
	}
	return ctx.JSON(http.StatusOK, ProfileResponse{Account: acc, Profile: prof})
}

type (
	LoginRequest struct {
		Login    string `json:"login" form:"email" validate:"required"` // username or email
		Password string `json:"password" form:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string       `json:"token"`
		Role  account.Role `json:"role"`
		Home  string       `json:"home"`
	}

	ProfileResponse struct {
		Account account.Account `json:"account"`
		Profile account.Profile `json:"profile"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Login = core.CleanString(lr.Login, true /* lower */)
	return validate.Struct(lr)
}
