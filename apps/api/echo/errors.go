package echoapi

import (
	"net/http"
	"net/url"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/tutor"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound   = echo.NewHTTPError(http.StatusNotFound, "not found")

	sentinelCodes = map[error]int{
		course.ErrNotFound:         http.StatusNotFound,
		video.ErrJobNotFound:       http.StatusNotFound,
		user.ErrUnauthorized:       http.StatusUnauthorized,
		user.ErrInvalidCredentials: http.StatusBadRequest,
		tutor.ErrUltraRequired:     http.StatusForbidden,
		tutor.ErrBusy:              http.StatusTooManyRequests,
		tutor.ErrUnavailable:       http.StatusServiceUnavailable,
		video.ErrJobNotPending:     http.StatusConflict,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
// API errors are sent as JSON, page errors as an HTML page.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if c, ok := sentinelCodes[cause]; ok {
			code = c
			message = cause.Error()
		} else {
			switch origErr := cause.(type) {
			case *echo.HTTPError:
				if origErr == middleware.ErrJWTMissing {
					code = http.StatusUnauthorized
					message = origErr.Message
					break
				}
				if origErr.Internal != nil {
					if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
						origErr = herr
					}
				}
				code = origErr.Code
				message = origErr.Message
			case validator.ValidationErrors:
				code = http.StatusBadRequest
				message = core.TranslateErrors(origErr, translator)
			case *core.ValidationError:
				if origErr.Fields != nil {
					message = origErr.FieldMap()
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			default:
				// upstream errors keep their status
				if status, ok := core.HTTPStatus(err); ok {
					code = status
					message = cause.Error()
					if code >= http.StatusInternalServerError {
						logError(ctx, logger, err, "upstream error")
					}
					break
				}

				// any other error is a server error
				code = http.StatusInternalServerError
				message = http.StatusText(http.StatusInternalServerError)
				logError(ctx, logger, err, http.StatusText(http.StatusInternalServerError))

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Response().Committed {
			return
		}
		if !isAPIRequest(ctx) {
			if rErr := renderErrorPage(ctx, code, message); rErr != nil {
				ctx.Echo().Logger.Error(rErr)
			}
			return
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

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

func logError(ctx echo.Context, logger core.Logger, err error, msg string) {
	if logger == nil {
		return
	}
	var usr user.User
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		usr = claims.User()
	}
	logger.Error(msg, errors.Wrap(err, msg), usr, map[string]interface{}{
		"method": ctx.Request().Method,
		"path":   ctx.Request().URL.Path,
	})
}

func isAPIRequest(ctx echo.Context) bool {
	p := ctx.Request().URL.Path
	return p == "/v1" || strings.HasPrefix(p, "/v1/")
}

// renderErrorPage sends guests hitting a protected page to the login form.
func renderErrorPage(ctx echo.Context, code int, message interface{}) error {
	req := ctx.Request()
	if code == http.StatusUnauthorized && req.Method == http.MethodGet {
		return ctx.Redirect(http.StatusFound, loginURL(req.URL.RequestURI()))
	}
	if req.Method == http.MethodHead {
		return ctx.NoContent(code)
	}

	msg, ok := message.(string)
	if !ok || code >= http.StatusInternalServerError {
		msg = http.StatusText(code)
	}
	return ctx.Render(code, "error", newPage(ctx, http.StatusText(code), echo.Map{
		"Code":    code,
		"Message": msg,
	}))
}

func loginURL(redirect string) string {
	return "/auth/login?redirect=" + url.QueryEscape(redirect)
}
