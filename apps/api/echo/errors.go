package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/acanas/swad-core-sub004/core"
	"github.com/acanas/swad-core-sub004/core/user"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// errorBody is the response of a failed request that is not a field validation.
type errorBody struct {
	Error  string `json:"error"`
	Object string `json:"object,omitempty"` // what was not found
}

// errorResponse maps err to a status code and a response body.
// Field errors are answered as a map of JSON field names to messages.
// Server errors are reported with ok == false.
func errorResponse(err error, translator ut.Translator) (code int, body interface{}, ok bool) {
	switch origErr := errors.Cause(err).(type) {
	case *echo.HTTPError:
		if origErr == middleware.ErrJWTMissing {
			return http.StatusUnauthorized, errorBody{Error: fmt.Sprint(origErr.Message)}, true
		}
		if herr, isHTTP := origErr.Internal.(*echo.HTTPError); isHTTP {
			origErr = herr
		}
		if msg, isString := origErr.Message.(string); isString {
			return origErr.Code, errorBody{Error: msg}, true
		}
		return origErr.Code, origErr.Message, true

	case validator.ValidationErrors:
		fldErrs := make(map[string]string, len(origErr))
		for _, vErr := range origErr {
			fldErrs[vErr.Field()] = vErr.Translate(translator)
		}
		return http.StatusBadRequest, fldErrs, true

	case *core.ValidationError:
		if len(origErr.Fields) == 0 {
			return http.StatusBadRequest, errorBody{Error: origErr.Error()}, true
		}
		fldErrs := make(map[string]string, len(origErr.Fields))
		for _, fErr := range origErr.Fields {
			fldErrs[fErr.Field] = fErr.Error
		}
		return http.StatusBadRequest, fldErrs, true

	case *core.NotFoundError:
		return http.StatusNotFound, errorBody{Error: origErr.Error(), Object: origErr.Object()}, true
	case *core.ConflictError:
		// full or closed groups, duplicated names, nodes with children...
		return http.StatusConflict, errorBody{Error: origErr.Error()}, true
	case *core.PermissionError:
		return http.StatusForbidden, errorBody{Error: origErr.Error()}, true
	}
	return http.StatusInternalServerError, errorBody{Error: http.StatusText(http.StatusInternalServerError)}, false
}

// newAppHTTPErrorHandler returns the echo.HTTPErrorHandler answering every failed request.
// Server errors are logged with the user, course and request they happened in;
// signalShutdown is called when one of them asks for the Server to stop.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		code, body, ok := errorResponse(err, translator)
		if !ok {
			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Email = claims.Email
			}
			req := ctx.Request()
			msg := fmt.Sprintf("%s %s failed", req.Method, req.URL.Path)
			if crs := ctx.Param("crs"); crs != "" {
				msg += " in course " + crs
			}
			if id := ctx.Response().Header().Get(echo.HeaderXRequestID); id != "" {
				msg += " (request " + id + ")"
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			body = errorBody{Error: err.Error()}
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
