package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
)

type userApi struct {
	svc      *user.Service
	sessions *sessions
}

func registerUserAPI(g *echo.Group, jwt echo.MiddlewareFunc, sessions *sessions, deps ServerDeps) {
	api := userApi{
		svc:      deps.UserSvc,
		sessions: sessions,
	}

	ag := g.Group("/auth")

	// un-authed endpoints
	ag.POST("/signup", api.signup)
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)
	g.GET("/plans", api.plans)

	// authed endpoints
	ag.GET("/me", api.me, jwt)
	ag.PATCH("/profile", api.updateProfile, jwt)
	ag.POST("/upgrade", api.upgrade, jwt)
	ag.POST("/token-refresh", api.refreshToken, jwt)
}

type sessionResponse struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

// Handlers

func (api *userApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}

	sess, err := api.svc.Signup(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return api.respondSession(ctx, http.StatusCreated, sess.User, sess.Token)
}

func (api *userApi) login(ctx echo.Context) error {
	var creds user.Credentials
	if err := ctx.Bind(&creds); err != nil {
		return errors.Wrap(err, "binding to Credentials")
	}

	sess, err := api.svc.Login(ctx.Request().Context(), creds)
	if err != nil {
		return err
	}
	return api.respondSession(ctx, http.StatusOK, sess.User, sess.Token)
}

func (api *userApi) respondSession(ctx echo.Context, code int, usr user.User, baasToken string) error {
	token, err := api.sessions.issue(ctx, usr, baasToken)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(code, sessionResponse{Token: token, User: usr})
}

func (api *userApi) logout(ctx echo.Context) error {
	api.sessions.clear(ctx)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *userApi) me(ctx echo.Context) error {
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.Me(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (api *userApi) updateProfile(ctx echo.Context) error {
	var data user.UpdateProfile
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateProfile")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.UpdateProfile(ctx.Request().Context(), claims.Token, data)
	if err != nil {
		return err
	}

	// keep the session name in sync
	if _, err := api.sessions.issue(ctx, usr, claims.Token, claims.OrigIssuedAt); err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, usr)
}

// upgrade moves the user to a higher tier. The new tier is only trusted once a new token is issued.
func (api *userApi) upgrade(ctx echo.Context) error {
	var data user.UpgradeRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpgradeRequest")
	}

	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	usr, err := api.svc.Upgrade(ctx.Request().Context(), token, data)
	if err != nil {
		return err
	}
	return api.respondSession(ctx, http.StatusOK, usr, token)
}

func (api *userApi) refreshToken(ctx echo.Context) error {
	token, err := api.sessions.refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, echo.Map{"token": token})
}

// plans lists the pricing plans and, for signed-in users, the tiers they may upgrade to.
func (api *userApi) plans(ctx echo.Context) error {
	current, _ := contextTier(ctx)
	return ctx.JSON(http.StatusOK, echo.Map{
		"plans":    tier.Plans(),
		"current":  current,
		"upgrades": tier.Upgrades(current),
	})
}
