package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/feedback"
	"github.com/trezcool/shule/core/leave"
	"github.com/trezcool/shule/core/result"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "account not authenticated")
	errInvalidToken  = echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired jwt")
	errTokenRevoked  = echo.NewHTTPError(http.StatusUnauthorized, "token has been revoked")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")

	// genericErrorMessage is all a client learns about a storage failure.
	genericErrorMessage = "something went wrong, please try again later"

	notFoundErrs = []error{
		account.ErrNotFound,
		account.ErrProfileNotFound,
		academic.ErrCourseNotFound,
		academic.ErrSubjectNotFound,
		academic.ErrSemesterNotFound,
		leave.ErrNotFound,
		feedback.ErrNotFound,
	}
	forbiddenErrs = []error{
		account.ErrNotStudent,
		attendance.ErrNotSubjectStaff,
		result.ErrNotSubjectStaff,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, message := errorResponse(err, translator)

		if code == http.StatusInternalServerError {
			var acc account.Account
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				acc.ID = claims.Subject
				acc.Username = claims.Username
				acc.Email = claims.Email
			}
			logger.Error(http.StatusText(code), errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), acc)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = echo.Map{"error": err.Error()}
		} else if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

// errorResponse maps err to a status code and a body: a message string or a field map.
func errorResponse(err error, translator ut.Translator) (int, interface{}) {
	cause := errors.Cause(err)
	if isOneOf(cause, notFoundErrs) {
		return http.StatusNotFound, cause.Error()
	}
	if isOneOf(cause, forbiddenErrs) {
		return http.StatusForbidden, cause.Error()
	}

	switch origErr := cause.(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, origErr.Message
		}
		if origErr.Internal != nil {
			if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
				origErr = herr
			}
		}
		return origErr.Code, origErr.Message
	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs
	case *core.ValidationError:
		if origErr.Fields != nil {
			fldErrs := make(map[string]string, len(origErr.Fields))
			for _, fErr := range origErr.Fields {
				fldErrs[fErr.Field] = fErr.Error
			}
			return http.StatusBadRequest, fldErrs
		}
		return http.StatusBadRequest, origErr.Error()
	case *core.ConflictError:
		if origErr.Field != "" {
			return http.StatusConflict, map[string]string{origErr.Field: origErr.Error()}
		}
		return http.StatusConflict, origErr.Error()
	case *core.AuthError:
		return http.StatusUnauthorized, origErr.Error()
	case *core.PersistenceError:
		return http.StatusInternalServerError, genericErrorMessage
	default: // any other error is a server error
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

func isOneOf(err error, targets []error) bool {
	for _, target := range targets {
		if err == target {
			return true
		}
	}
	return false
}
