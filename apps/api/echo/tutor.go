package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/tutor"
)

type tutorApi struct {
	svc *tutor.Service
}

// The tier check lives in the service: the session tier is refreshed on upgrade.
func registerTutorAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := tutorApi{svc: deps.TutorSvc}

	cg := g.Group("/chat")
	cg.POST("", api.chat, jwt)
	cg.POST("/search", api.search, jwt)
}

func (api *tutorApi) chat(ctx echo.Context) error {
	var data tutor.ChatRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ChatRequest")
	}
	usr, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reply, err := api.svc.Chat(ctx.Request().Context(), usr, token, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reply)
}

func (api *tutorApi) search(ctx echo.Context) error {
	var data tutor.SearchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SearchRequest")
	}
	usr, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	reply, err := api.svc.SearchAndAnswer(ctx.Request().Context(), usr, token, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, reply)
}
