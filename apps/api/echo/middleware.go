package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// teacherMiddleware lets teachers and admins through. It must run after the JWT middleware.
func teacherMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		usr, _, err := getContextUser(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		if usr.CanManageCourses() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// pageAuthMiddleware sends guests to the login page, then back where they were going.
func pageAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := getContextClaims(ctx); err != nil {
			return ctx.Redirect(http.StatusFound, loginURL(ctx.Request().URL.RequestURI()))
		}
		return next(ctx)
	}
}

// guestMiddleware keeps signed-in users away from the login and signup pages.
func guestMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if _, err := getContextClaims(ctx); err == nil {
			return ctx.Redirect(http.StatusFound, "/dashboard")
		}
		return next(ctx)
	}
}
