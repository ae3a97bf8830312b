package echoapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
)

type pages struct {
	userSvc    *user.Service
	courseSvc  *course.Service
	videoSvc   *video.Service
	sessions   *sessions
	translator ut.Translator
	logger     core.Logger
}

func registerPages(e *echo.Echo, sessions *sessions, deps ServerDeps) {
	p := pages{
		userSvc:    deps.UserSvc,
		courseSvc:  deps.CourseSvc,
		videoSvc:   deps.VideoSvc,
		sessions:   sessions,
		translator: deps.Translator,
		logger:     deps.Logger,
	}

	// public
	e.GET("/", p.home)
	e.GET("/pricing", p.pricing)
	e.GET("/courses/:slug", p.course)

	// guests only
	e.GET("/auth/login", p.loginForm, guestMiddleware)
	e.POST("/auth/login", p.login, guestMiddleware)
	e.GET("/auth/signup", p.signupForm, guestMiddleware)
	e.POST("/auth/signup", p.signup, guestMiddleware)
	e.POST("/auth/logout", p.logout)

	// signed in
	e.POST("/pricing/upgrade", p.upgrade, pageAuthMiddleware)
	e.GET("/lessons/:slug", p.lesson, pageAuthMiddleware)
	e.POST("/lessons/:slug/completion", p.completeLesson, pageAuthMiddleware)
	e.GET("/dashboard", p.dashboard, pageAuthMiddleware)
	e.GET("/dashboard/courses", p.myCourses, pageAuthMiddleware)
	e.GET("/settings", p.settings, pageAuthMiddleware)
	e.POST("/settings", p.updateSettings, pageAuthMiddleware)

	// teachers
	e.GET("/teacher", p.teacher, pageAuthMiddleware, teacherMiddleware)
	e.GET("/teacher/courses/:id", p.teacherCourse, pageAuthMiddleware, teacherMiddleware)
}

func (p *pages) warn(msg string, err error, ctx echo.Context) {
	if p.logger == nil {
		return
	}
	var usr user.User
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		usr = claims.User()
	}
	p.logger.Warn(msg, err, usr)
}

// formErrors extracts the errors to show next to form fields. ok is false for unexpected errors.
func formErrors(err error, translator ut.Translator) (errs map[string]string, ok bool) {
	switch origErr := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		return core.TranslateErrors(origErr, translator), true
	case *core.ValidationError:
		if origErr.Fields != nil {
			return origErr.FieldMap(), true
		}
		return map[string]string{"form": origErr.Error()}, true
	}
	if errors.Cause(err) == user.ErrInvalidCredentials {
		return map[string]string{"form": err.Error()}, true
	}
	if status, ok := core.HTTPStatus(err); ok && status >= http.StatusBadRequest && status < http.StatusInternalServerError {
		return map[string]string{"form": errors.Cause(err).Error()}, true
	}
	return nil, false
}

// safeRedirect only follows local paths.
func safeRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/dashboard"
	}
	return target
}

// Public pages

func (p *pages) home(ctx echo.Context) error {
	var (
		featured []course.Course
		stats    course.Stats
	)

	eg, egCtx := errgroup.WithContext(ctx.Request().Context())
	eg.Go(func() (err error) {
		featured, err = p.courseSvc.Featured(egCtx)
		return err
	})
	eg.Go(func() error {
		var err error
		if stats, err = p.courseSvc.Stats(egCtx); err != nil {
			p.warn("home: stats unavailable", err, ctx)
		}
		return nil
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	return ctx.Render(http.StatusOK, "home", newPage(ctx, "Learn without limits", echo.Map{
		"Featured": featured,
		"Stats":    stats,
	}))
}

type planView struct {
	tier.Plan
	Current    bool
	CanUpgrade bool
}

func planViews(current tier.Tier, signedIn bool) []planView {
	plans := tier.Plans()
	views := make([]planView, len(plans))
	for i, plan := range plans {
		views[i] = planView{
			Plan:       plan,
			Current:    signedIn && plan.Tier == current,
			CanUpgrade: signedIn && tier.CanUpgrade(current, plan.Tier),
		}
	}
	return views
}

func (p *pages) pricing(ctx echo.Context) error {
	return p.renderPricing(ctx, http.StatusOK, nil)
}

func (p *pages) renderPricing(ctx echo.Context, code int, errs map[string]string) error {
	current, token := contextTier(ctx)
	return ctx.Render(code, "pricing", newPage(ctx, "Pricing", echo.Map{
		"Plans":  planViews(current, token != ""),
		"Errors": errs,
	}))
}

func (p *pages) course(ctx echo.Context) error {
	userTier, token := contextTier(ctx)
	outline, err := p.courseSvc.Get(ctx.Request().Context(), ctx.Param("slug"), token, userTier)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "course", newPage(ctx, string(outline.Title), echo.Map{
		"Course":       outline,
		"RequiredText": tier.RequiredMessage(outline.RequiredTier),
	}))
}

// Auth pages

func (p *pages) loginForm(ctx echo.Context) error {
	return p.renderAuthForm(ctx, http.StatusOK, "login", nil, nil)
}

func (p *pages) signupForm(ctx echo.Context) error {
	return p.renderAuthForm(ctx, http.StatusOK, "signup", nil, nil)
}

func (p *pages) renderAuthForm(ctx echo.Context, code int, name string, values, errs map[string]string) error {
	title := "Log in"
	if name == "signup" {
		title = "Sign up"
	}
	return ctx.Render(code, name, newPage(ctx, title, echo.Map{
		"Redirect": ctx.FormValue("redirect"),
		"Values":   values,
		"Errors":   errs,
	}))
}

func (p *pages) login(ctx echo.Context) error {
	creds := user.Credentials{
		Email:    ctx.FormValue("email"),
		Password: ctx.FormValue("password"),
	}
	sess, err := p.userSvc.Login(ctx.Request().Context(), creds)
	if err != nil {
		if errs, ok := formErrors(err, p.translator); ok {
			return p.renderAuthForm(ctx, http.StatusBadRequest, "login", map[string]string{"email": creds.Email}, errs)
		}
		return err
	}
	return p.startSession(ctx, sess)
}

func (p *pages) signup(ctx echo.Context) error {
	nu := user.NewUser{
		Email:     ctx.FormValue("email"),
		Password:  ctx.FormValue("password"),
		FirstName: ctx.FormValue("first_name"),
		LastName:  ctx.FormValue("last_name"),
		Role:      user.Role(ctx.FormValue("role")),
	}
	sess, err := p.userSvc.Signup(ctx.Request().Context(), nu)
	if err != nil {
		if errs, ok := formErrors(err, p.translator); ok {
			values := map[string]string{
				"email":      nu.Email,
				"first_name": nu.FirstName,
				"last_name":  nu.LastName,
				"role":       string(nu.Role),
			}
			return p.renderAuthForm(ctx, http.StatusBadRequest, "signup", values, errs)
		}
		return err
	}
	return p.startSession(ctx, sess)
}

func (p *pages) startSession(ctx echo.Context, sess user.Session) error {
	if _, err := p.sessions.issue(ctx, sess.User, sess.Token); err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.Redirect(http.StatusFound, safeRedirect(ctx.FormValue("redirect")))
}

func (p *pages) logout(ctx echo.Context) error {
	p.sessions.clear(ctx)
	return ctx.Redirect(http.StatusFound, "/")
}

// Member pages

func (p *pages) upgrade(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	usr, err := p.userSvc.Upgrade(ctx.Request().Context(), claims.Token, user.UpgradeRequest{
		Tier: tier.Tier(ctx.FormValue("tier")),
	})
	if err != nil {
		if errs, ok := formErrors(err, p.translator); ok {
			return p.renderPricing(ctx, http.StatusBadRequest, errs)
		}
		return err
	}

	if _, err := p.sessions.issue(ctx, usr, claims.Token); err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.Redirect(http.StatusFound, "/dashboard?upgraded="+string(usr.Tier))
}

func (p *pages) lesson(ctx echo.Context) error {
	userTier, token := contextTier(ctx)
	reqCtx := ctx.Request().Context()

	lesson, err := p.courseSvc.Lesson(reqCtx, ctx.Param("slug"), token, userTier)
	if err != nil {
		return err
	}

	// playback tokens are optional: public playback ids play without them
	var playback *video.PlaybackTokens
	if !lesson.Locked && lesson.MuxPlaybackID != "" {
		tokens, err := p.videoSvc.SignPlayback(reqCtx, token, string(lesson.MuxPlaybackID))
		if err != nil {
			p.warn("lesson: signing playback", err, ctx)
		} else {
			playback = &tokens
		}
	}

	return ctx.Render(http.StatusOK, "lesson", newPage(ctx, string(lesson.Title), echo.Map{
		"Lesson":       lesson,
		"Playback":     playback,
		"RequiredText": tier.RequiredMessage(lesson.RequiredTier),
	}))
}

func (p *pages) completeLesson(ctx echo.Context) error {
	id, err := strconv.ParseInt(ctx.FormValue("lesson_id"), 10, 64)
	if err != nil {
		return core.NewFieldError("lesson_id", "invalid lesson id")
	}
	_, token := contextTier(ctx)
	done := ctx.FormValue("done") != "false"
	if err := p.courseSvc.SetLessonCompletion(ctx.Request().Context(), token, id, done); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusFound, "/lessons/"+ctx.Param("slug"))
}

func (p *pages) dashboard(ctx echo.Context) error {
	usr, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	dash, err := p.courseSvc.Dashboard(ctx.Request().Context(), token, usr)
	if err != nil {
		return err
	}
	upgraded, _ := tier.Parse(ctx.QueryParam("upgraded"))
	return ctx.Render(http.StatusOK, "dashboard", newPage(ctx, "Dashboard", echo.Map{
		"Dashboard": dash,
		"Upgraded":  upgraded,
	}))
}

func (p *pages) myCourses(ctx echo.Context) error {
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := p.courseSvc.MyCourses(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "my_courses", newPage(ctx, "My courses", echo.Map{
		"Courses": courses,
	}))
}

func (p *pages) settings(ctx echo.Context) error {
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	usr, err := p.userSvc.Me(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return p.renderSettings(ctx, http.StatusOK, usr, nil, false)
}

func (p *pages) renderSettings(ctx echo.Context, code int, usr user.User, errs map[string]string, saved bool) error {
	return ctx.Render(code, "settings", newPage(ctx, "Settings", echo.Map{
		"Profile": usr,
		"Errors":  errs,
		"Saved":   saved,
	}))
}

func (p *pages) updateSettings(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	up := user.UpdateProfile{
		FirstName: ctx.FormValue("first_name"),
		LastName:  ctx.FormValue("last_name"),
		AvatarURL: ctx.FormValue("avatar_url"),
	}
	usr, err := p.userSvc.UpdateProfile(ctx.Request().Context(), claims.Token, up)
	if err != nil {
		if errs, ok := formErrors(err, p.translator); ok {
			current := claims.User()
			current.FirstName = core.Text(up.FirstName)
			current.LastName = core.Text(up.LastName)
			current.AvatarURL = core.Text(up.AvatarURL)
			return p.renderSettings(ctx, http.StatusBadRequest, current, errs, false)
		}
		return err
	}

	if _, err := p.sessions.issue(ctx, usr, claims.Token, claims.OrigIssuedAt); err != nil {
		return errors.Wrap(err, "generating token")
	}
	return p.renderSettings(ctx, http.StatusOK, usr, nil, true)
}

// Teacher pages

func (p *pages) teacher(ctx echo.Context) error {
	usr, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}

	var (
		courses []course.Course
		jobs    []video.Job
	)
	eg, egCtx := errgroup.WithContext(ctx.Request().Context())
	eg.Go(func() (err error) {
		courses, err = p.courseSvc.TeacherCourses(egCtx, token)
		return err
	})
	eg.Go(func() (err error) {
		jobs, err = p.recentJobs(egCtx, usr)
		return err
	})
	if err := eg.Wait(); err != nil {
		return err
	}

	return ctx.Render(http.StatusOK, "teacher", newPage(ctx, "Teacher dashboard", echo.Map{
		"Courses": courses,
		"Jobs":    jobs,
	}))
}

const maxRecentJobs = 10

func (p *pages) recentJobs(ctx context.Context, usr user.User) ([]video.Job, error) {
	jobs, err := p.videoSvc.Jobs(ctx, video.QueryFilter{CreatedBy: jobOwner(usr)})
	if err != nil {
		return nil, err
	}
	if len(jobs) > maxRecentJobs {
		jobs = jobs[:maxRecentJobs]
	}
	return jobs, nil
}

func (p *pages) teacherCourse(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	outline, err := p.courseSvc.TeacherCourse(ctx.Request().Context(), token, id)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "teacher_course", newPage(ctx, string(outline.Title), echo.Map{
		"Course": outline,
	}))
}
