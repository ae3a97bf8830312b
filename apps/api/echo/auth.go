package echoapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
)

const (
	authCookieName = "auth_token"
	tokenCtxKey    = "userToken"
	sessionCtxKey  = "session"
)

// Claims represents the authorization claims transmitted via a JWT.
// Token is the hosted backend token every upstream call is made with.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64     `json:"oriat,omitempty"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	Role         user.Role `json:"role,omitempty"`
	Tier         tier.Tier `json:"tier,omitempty"`
	Token        string    `json:"baas,omitempty"`
}

// User rebuilds the session user from the claims.
func (c Claims) User() user.User {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return user.User{
		ID:        id,
		Email:     c.Email,
		FirstName: core.Text(c.FirstName),
		Role:      c.Role,
		Tier:      c.Tier,
	}
}

// sessions issues and reads the JWT sessions, sent either as a bearer token or the auth cookie.
type sessions struct {
	key               []byte
	issuer            string
	expiration        time.Duration
	refreshExpiration time.Duration
	cookieSecure      bool
	now               func() time.Time
}

func newSessions(conf *core.Config) *sessions {
	return &sessions{
		key:               []byte(conf.SecretKey),
		issuer:            conf.AppName,
		expiration:        conf.Server.JWTExpirationDelta,
		refreshExpiration: conf.Server.JWTRefreshExpirationDelta,
		cookieSecure:      conf.Server.CookieSecure,
		now:               time.Now,
	}
}

// GetUserClaims builds the claims of usr. origIat keeps the original issue time across refreshes.
func (s *sessions) GetUserClaims(usr user.User, baasToken string, origIat ...int64) *Claims {
	now := s.now()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(usr.ID, 10),
			ExpiresAt: now.Add(s.expiration).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Email:        usr.Email,
		FirstName:    string(usr.FirstName),
		Role:         usr.Role,
		Tier:         usr.TierOrFree(),
		Token:        baasToken,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func (s *sessions) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(s.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// NewToken signs a session token for usr, as the server configured with conf would.
func NewToken(conf *core.Config, usr user.User, baasToken string) (string, error) {
	s := newSessions(conf)
	return s.GenerateToken(s.GetUserClaims(usr, baasToken))
}

// ParseToken verifies a session token signed with conf's secret key.
func ParseToken(conf *core.Config, token string) (*Claims, error) {
	s := newSessions(conf)
	claims := new(Claims)
	if _, err := jwt.ParseWithClaims(token, claims, s.keyFunc); err != nil {
		return nil, errors.Wrap(err, "parsing token")
	}
	return claims, nil
}

// issue signs a token for usr and sets it as the auth cookie.
func (s *sessions) issue(ctx echo.Context, usr user.User, baasToken string, origIat ...int64) (string, error) {
	claims := s.GetUserClaims(usr, baasToken, origIat...)
	token, err := s.GenerateToken(claims)
	if err != nil {
		return "", err
	}
	s.setCookie(ctx, token, time.Unix(claims.ExpiresAt, 0))
	ctx.Set(sessionCtxKey, claims)
	return token, nil
}

func (s *sessions) setCookie(ctx echo.Context, value string, expires time.Time) {
	ctx.SetCookie(&http.Cookie{
		Name:     authCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *sessions) clear(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *sessions) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method.Alg() != middleware.AlgorithmHS256 {
		return nil, errors.Errorf("unexpected jwt signing method=%v", token.Header["alg"])
	}
	return s.key, nil
}

// jwtMiddleware guards the API endpoints. The auth cookie is accepted when no Authorization header is sent.
func (s *sessions) jwtMiddleware() echo.MiddlewareFunc {
	return middleware.JWTWithConfig(middleware.JWTConfig{
		SigningKey:    s.key,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenCtxKey,
		Claims:        new(Claims),
		TokenLookup:   "header:" + echo.HeaderAuthorization,
		BeforeFunc: func(ctx echo.Context) {
			req := ctx.Request()
			if req.Header.Get(echo.HeaderAuthorization) != "" {
				return
			}
			if cookie, err := ctx.Cookie(authCookieName); err == nil && cookie.Value != "" {
				req.Header.Set(echo.HeaderAuthorization, middleware.DefaultJWTConfig.AuthScheme+" "+cookie.Value)
			}
		},
	})
}

// load reads the session, if any, without requiring one. Pages and public endpoints use it.
func (s *sessions) load(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		raw := bearerToken(ctx.Request())
		fromCookie := false
		if raw == "" {
			if cookie, err := ctx.Cookie(authCookieName); err == nil {
				raw, fromCookie = cookie.Value, true
			}
		}
		if raw != "" {
			claims := new(Claims)
			if token, err := jwt.ParseWithClaims(raw, claims, s.keyFunc); err == nil && token.Valid {
				ctx.Set(sessionCtxKey, claims)
			} else if fromCookie {
				s.clear(ctx)
			}
		}
		return next(ctx)
	}
}

func bearerToken(req *http.Request) string {
	auth := req.Header.Get(echo.HeaderAuthorization)
	scheme := middleware.DefaultJWTConfig.AuthScheme
	if len(auth) > len(scheme)+1 && strings.EqualFold(auth[:len(scheme)], scheme) {
		return auth[len(scheme)+1:]
	}
	return ""
}

// getContextClaims returns the claims of the verified token, or of the loaded session.
func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenCtxKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	if claims, ok := ctx.Get(sessionCtxKey).(*Claims); ok {
		return *claims, nil
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, "", err
	}
	return claims.User(), claims.Token, nil
}

// contextTier is the tier of the session user, free for guests.
func contextTier(ctx echo.Context) (tier.Tier, string) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return tier.Free, ""
	}
	return tier.OrFree(claims.Tier), claims.Token
}

// refreshToken issues a new token for the session, as long as the refresh window is open.
// The user is reloaded so that tier changes show up in the new token.
func (s *sessions) refreshToken(ctx echo.Context, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(s.refreshExpiration)
	if s.now().After(expTime) {
		return "", errRefreshExpired
	}

	usr, err := svc.Me(ctx.Request().Context(), claims.Token)
	if err != nil {
		return "", errors.Wrap(err, "getting current user")
	}

	token, err := s.issue(ctx, usr, claims.Token, claims.OrigIssuedAt)
	return token, errors.Wrap(err, "generating token")
}

func newRequestID() string {
	return uuid.New().String()
}
