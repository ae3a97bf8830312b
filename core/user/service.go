package user

import (
	"context"
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
)

var (
	// errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("user not authenticated")
	errNothingToUpdate    = errors.New("nothing to update")
	errCannotUpgrade      = "you are already on this plan or a higher one"
)

// Backend is the hosted backend owning user accounts.
type Backend interface {
	Signup(ctx context.Context, nu NewUser) (Session, error)
	Login(ctx context.Context, creds Credentials) (Session, error)
	Me(ctx context.Context, token string) (User, error)
	UpdateProfile(ctx context.Context, token string, up UpdateProfile) (User, error)
	Upgrade(ctx context.Context, token string, target tier.Tier) (User, error)
}

type Service struct {
	backend  Backend
	validate *validator.Validate
	mailSvc  core.EmailService
	logger   core.Logger
}

func NewService(backend Backend, validate *validator.Validate, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		backend:  backend,
		validate: validate,
		mailSvc:  mailSvc,
		logger:   logger,
	}
}

func (svc *Service) Signup(ctx context.Context, nu NewUser) (Session, error) {
	if err := nu.Validate(svc.validate); err != nil {
		return Session{}, err
	}

	sess, err := svc.backend.Signup(ctx, nu)
	if err != nil {
		if status, ok := core.HTTPStatus(err); ok && isClientError(status) {
			return Session{}, core.NewValidationError(errors.Cause(err))
		}
		return Session{}, errors.Wrap(err, "signing up")
	}

	svc.sendEmail(sess.User, "Welcome aboard!", "welcome", sess.User)
	return sess, nil
}

func (svc *Service) Login(ctx context.Context, creds Credentials) (Session, error) {
	if err := creds.Validate(svc.validate); err != nil {
		return Session{}, err
	}

	sess, err := svc.backend.Login(ctx, creds)
	if err != nil {
		if status, ok := core.HTTPStatus(err); ok && isClientError(status) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, errors.Wrap(err, "logging in")
	}
	return sess, nil
}

// Me returns the user the token belongs to.
func (svc *Service) Me(ctx context.Context, token string) (User, error) {
	if token == "" {
		return User{}, ErrUnauthorized
	}
	usr, err := svc.backend.Me(ctx, token)
	if err != nil {
		if status, ok := core.HTTPStatus(err); ok && (status == http.StatusUnauthorized || status == http.StatusForbidden) {
			return User{}, ErrUnauthorized
		}
		return User{}, errors.Wrap(err, "getting current user")
	}
	return usr, nil
}

func (svc *Service) UpdateProfile(ctx context.Context, token string, up UpdateProfile) (User, error) {
	if err := up.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if up.IsEmpty() {
		return User{}, core.NewValidationError(errNothingToUpdate)
	}

	usr, err := svc.backend.UpdateProfile(ctx, token, up)
	if err != nil {
		return User{}, errors.Wrap(err, "updating profile")
	}
	return usr, nil
}

// Upgrade moves the token's user to a higher tier. Downgrades and same-tier upgrades are rejected.
func (svc *Service) Upgrade(ctx context.Context, token string, req UpgradeRequest) (User, error) {
	req.Tier, _ = tier.Parse(string(req.Tier))
	if err := svc.validate.Struct(req); err != nil {
		return User{}, err
	}

	usr, err := svc.Me(ctx, token)
	if err != nil {
		return User{}, err
	}
	if !tier.CanUpgrade(usr.Tier, req.Tier) {
		return User{}, core.NewFieldError("tier", errCannotUpgrade)
	}

	upgraded, err := svc.backend.Upgrade(ctx, token, req.Tier)
	if err != nil {
		return User{}, errors.Wrap(err, "upgrading tier")
	}

	svc.sendEmail(upgraded, "You are now "+upgraded.Tier.Label()+"!", "upgrade", struct {
		User User
		Plan tier.Plan
	}{upgraded, planFor(upgraded.Tier)})
	return upgraded, nil
}

func (svc *Service) sendEmail(to User, subject, tmpl string, data interface{}) {
	if svc.mailSvc == nil || to.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: to.DisplayName(), Address: to.Email}},
		Subject:      subject,
		TemplateName: tmpl,
		TemplateData: data,
	})
}

func planFor(t tier.Tier) tier.Plan {
	for _, p := range tier.Plans() {
		if p.Tier == t {
			return p
		}
	}
	return tier.Plan{Tier: t, Name: t.Label()}
}

func isClientError(status int) bool {
	return status >= http.StatusBadRequest && status < http.StatusInternalServerError
}
