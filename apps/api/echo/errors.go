package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

var domainErrorCodes = map[core.ErrorKind]int{
	core.KindNotFound:  http.StatusNotFound,
	core.KindConflict:  http.StatusConflict,
	core.KindForbidden: http.StatusForbidden,
}

// errorResponse maps err to a status code and a response body. The body is either a message or,
// for validation errors, a map of field names to messages.
// ok is false for unexpected errors, which are answered with a 500.
func errorResponse(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	switch e := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if e == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, e.Message, true
		}
		if inner, isHTTP := e.Internal.(*echo.HTTPError); isHTTP {
			e = inner
		}
		return e.Code, e.Message, true

	case *core.DomainError:
		return domainErrorCodes[e.Kind], e.Message, true

	case validator.ValidationErrors:
		fields := make(map[string]string, len(e))
		for _, fe := range e {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, fields, true

	case *core.ValidationError:
		if len(e.Fields) == 0 {
			return http.StatusBadRequest, e.Error(), true
		}
		fields := make(map[string]string, len(e.Fields))
		for _, fe := range e.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, fields, true
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), false
}

// claimsUser is the requester as far as the token tells, for error reports.
func claimsUser(ctx echo.Context) user.User {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}
	}
	return user.User{ID: claims.Subject, Username: claims.Username, Email: claims.Email}
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler of the API. Unexpected errors are reported,
// and signalShutdown is called whenever one of them asks the server to stop.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := errorResponse(err, translator)
		if !ok {
			msg := body.(string)
			logger.Error(msg, errors.Wrap(err, msg), claimsUser(ctx), ctx.Request())
			if core.IsShutdown(err) && signalShutdown != nil {
				signalShutdown()
			}
			if ctx.Echo().Debug {
				body = err.Error()
			}
		}
		if msg, isMsg := body.(string); isMsg {
			body = echo.Map{"error": msg}
		}

		if ctx.Response().Committed {
			return
		}
		if ctx.Request().Method == http.MethodHead {
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, body)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}
