package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/video"
)

type videoApi struct {
	svc *video.Service
}

func registerVideoAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := videoApi{svc: deps.VideoSvc}
	g.POST("/video/playback-tokens", api.playbackTokens, jwt)
}

type playbackRequest struct {
	PlaybackID string `json:"playback_id"`
}

func (api *videoApi) playbackTokens(ctx echo.Context) error {
	var data playbackRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to playbackRequest")
	}
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	tokens, err := api.svc.SignPlayback(ctx.Request().Context(), token, data.PlaybackID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokens)
}
