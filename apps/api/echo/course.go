package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/course"
)

type courseApi struct {
	svc *course.Service
}

// Routes sharing a position share the `:id` param name: it holds a slug on the GET detail routes.
func registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := courseApi{svc: deps.CourseSvc}

	// un-authed endpoints
	g.GET("/courses", api.list)
	g.GET("/courses/featured", api.featured)
	g.GET("/courses/:id", api.retrieve)
	g.GET("/stats", api.stats)
	g.GET("/search", api.search)

	// authed endpoints
	g.GET("/dashboard", api.dashboard, jwt)
	g.GET("/courses/my-progress", api.myProgress, jwt)
	g.GET("/lessons/:id", api.lesson, jwt)
	g.POST("/lessons/:id/completion", api.completeLesson(true), jwt)
	g.DELETE("/lessons/:id/completion", api.completeLesson(false), jwt)
	g.POST("/courses/:id/completion", api.completeCourse(true), jwt)
	g.DELETE("/courses/:id/completion", api.completeCourse(false), jwt)
	g.GET("/progress/courses/:id", api.progress, jwt)
}

// Handlers

func (api *courseApi) list(ctx echo.Context) error {
	courses, err := api.svc.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) featured(ctx echo.Context) error {
	courses, err := api.svc.Featured(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

// retrieve returns the course outline, gated for the session tier (free for guests).
func (api *courseApi) retrieve(ctx echo.Context) error {
	userTier, token := contextTier(ctx)
	outline, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"), token, userTier)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, outline)
}

func (api *courseApi) stats(ctx echo.Context) error {
	stats, err := api.svc.Stats(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, stats)
}

func (api *courseApi) search(ctx echo.Context) error {
	var q course.SearchQuery
	if err := ctx.Bind(&q); err != nil {
		return errors.Wrap(err, "binding to SearchQuery")
	}
	res, err := api.svc.Search(ctx.Request().Context(), q)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *courseApi) dashboard(ctx echo.Context) error {
	usr, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	dash, err := api.svc.Dashboard(ctx.Request().Context(), token, usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, dash)
}

func (api *courseApi) myProgress(ctx echo.Context) error {
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := api.svc.MyCourses(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *courseApi) lesson(ctx echo.Context) error {
	userTier, token := contextTier(ctx)
	lesson, err := api.svc.Lesson(ctx.Request().Context(), ctx.Param("id"), token, userTier)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, lesson)
}

func (api *courseApi) completeLesson(done bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		_, token := contextTier(ctx)
		if err := api.svc.SetLessonCompletion(ctx.Request().Context(), token, id, done); err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, echo.Map{"lesson_id": id, "is_completed": done})
	}
}

func (api *courseApi) completeCourse(done bool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		id, err := paramID(ctx)
		if err != nil {
			return err
		}
		_, token := contextTier(ctx)
		if err := api.svc.SetCourseCompletion(ctx.Request().Context(), token, id, done); err != nil {
			return err
		}
		return ctx.JSON(http.StatusOK, echo.Map{"course_id": id, "is_completed": done})
	}
}

func (api *courseApi) progress(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	_, token := contextTier(ctx)
	p, err := api.svc.Progress(ctx.Request().Context(), token, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, p)
}

func paramID(ctx echo.Context) (int64, error) {
	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errHttpNotFound
	}
	return id, nil
}
