package course

import (
	"context"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
	"github.com/trezcool/darasa/core/user"
)

var (
	// errors
	ErrNotFound      = errors.New("not found")
	errModuleMissing = "module does not belong to this course"
	errInvalidID     = errors.New("invalid id")
)

// Backend is the hosted backend owning courses, lessons and progress.
type Backend interface {
	Courses(ctx context.Context) ([]Course, error)
	FeaturedCourses(ctx context.Context) ([]Course, error)
	Course(ctx context.Context, slug string) (CourseWithModules, error)
	CourseWithProgress(ctx context.Context, token, slug string) (CourseWithModules, error)
	MyCourses(ctx context.Context, token string) ([]CourseProgress, error)
	Lesson(ctx context.Context, token, slug string) (LessonWithContext, error)
	SetLessonCompletion(ctx context.Context, token string, lessonID int64, done bool) error
	SetCourseCompletion(ctx context.Context, token string, courseID int64, done bool) error
	CourseProgress(ctx context.Context, token string, courseID int64) (Progress, error)
	Stats(ctx context.Context) (Stats, error)
	Search(ctx context.Context, q SearchQuery) (SearchResult, error)

	TeacherCourses(ctx context.Context, token string) ([]Course, error)
	TeacherCourse(ctx context.Context, token string, id int64) (CourseWithModules, error)
	CreateCourse(ctx context.Context, token string, nc NewCourse) (Course, error)
	CreateModule(ctx context.Context, token string, nm NewModule) (Module, error)
	CreateLesson(ctx context.Context, token string, nl NewLesson) (Lesson, error)
}

type Service struct {
	backend  Backend
	validate *validator.Validate
	logger   core.Logger
}

func NewService(backend Backend, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{
		backend:  backend,
		validate: validate,
		logger:   logger,
	}
}

func (svc *Service) List(ctx context.Context) ([]Course, error) {
	courses, err := svc.backend.Courses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing courses")
	}
	return nonNil(courses), nil
}

func (svc *Service) Featured(ctx context.Context) ([]Course, error) {
	courses, err := svc.backend.FeaturedCourses(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing featured courses")
	}
	return nonNil(courses), nil
}

// Get returns the outline of the course with the given slug, gated for userTier.
// When token is set, lessons carry the user's completion.
func (svc *Service) Get(ctx context.Context, slug, token string, userTier tier.Tier) (Outline, error) {
	var (
		c   CourseWithModules
		err error
	)
	if token != "" {
		c, err = svc.backend.CourseWithProgress(ctx, token, slug)
	} else {
		c, err = svc.backend.Course(ctx, slug)
	}
	if err != nil {
		return Outline{}, notFoundOr(err, "getting course")
	}
	if c.ID == 0 {
		return Outline{}, ErrNotFound
	}
	return BuildOutline(c, userTier), nil
}

// Lesson returns the lesson with the given slug, locked when userTier is below the course tier.
func (svc *Service) Lesson(ctx context.Context, slug, token string, userTier tier.Tier) (LessonView, error) {
	l, err := svc.backend.Lesson(ctx, token, slug)
	if err != nil {
		return LessonView{}, notFoundOr(err, "getting lesson")
	}
	if l.ID == 0 {
		return LessonView{}, ErrNotFound
	}
	return BuildLessonView(l, userTier), nil
}

func (svc *Service) SetLessonCompletion(ctx context.Context, token string, lessonID int64, done bool) error {
	if lessonID <= 0 {
		return core.NewValidationError(errInvalidID)
	}
	if err := svc.backend.SetLessonCompletion(ctx, token, lessonID, done); err != nil {
		return notFoundOr(err, "setting lesson completion")
	}
	return nil
}

func (svc *Service) SetCourseCompletion(ctx context.Context, token string, courseID int64, done bool) error {
	if courseID <= 0 {
		return core.NewValidationError(errInvalidID)
	}
	if err := svc.backend.SetCourseCompletion(ctx, token, courseID, done); err != nil {
		return notFoundOr(err, "setting course completion")
	}
	return nil
}

func (svc *Service) Progress(ctx context.Context, token string, courseID int64) (Progress, error) {
	if courseID <= 0 {
		return Progress{}, core.NewValidationError(errInvalidID)
	}
	p, err := svc.backend.CourseProgress(ctx, token, courseID)
	if err != nil {
		return Progress{}, notFoundOr(err, "getting course progress")
	}
	if p.CompletedLessons == nil {
		p.CompletedLessons = []int64{}
	}
	return p, nil
}

// MyCourses lists the courses the user has started, with their progress.
func (svc *Service) MyCourses(ctx context.Context, token string) ([]CourseProgress, error) {
	courses, err := svc.backend.MyCourses(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "listing my courses")
	}
	if courses == nil {
		courses = []CourseProgress{}
	}
	return courses, nil
}

func (svc *Service) Stats(ctx context.Context) (Stats, error) {
	stats, err := svc.backend.Stats(ctx)
	if err != nil {
		return Stats{}, errors.Wrap(err, "getting stats")
	}
	return stats, nil
}

func (svc *Service) Search(ctx context.Context, q SearchQuery) (SearchSummary, error) {
	q.Clean()
	if err := svc.validate.Struct(q); err != nil {
		return SearchSummary{}, err
	}

	res, err := svc.backend.Search(ctx, q)
	if err != nil {
		return SearchSummary{}, errors.Wrap(err, "searching courses")
	}
	for i := range res.Courses {
		c := &res.Courses[i]
		if c.URL == "" {
			c.URL = "/courses/" + string(c.Slug)
		}
		for j := range c.Modules {
			for k := range c.Modules[j].Lessons {
				if l := &c.Modules[j].Lessons[k]; l.URL == "" {
					l.URL = "/lessons/" + string(l.Slug)
				}
			}
		}
	}
	return FormatSearch(res), nil
}

// Dashboard loads the user's courses and the featured courses concurrently.
// Featured courses are optional: failing to load them does not fail the dashboard.
func (svc *Service) Dashboard(ctx context.Context, token string, usr user.User) (Dashboard, error) {
	dash := Dashboard{
		FirstName: string(usr.FirstName),
		Tier:      usr.TierOrFree(),
		Upgrades:  tier.Upgrades(usr.Tier),
		Featured:  []Course{},
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		courses, err := svc.MyCourses(egCtx, token)
		dash.Courses = courses
		return err
	})
	eg.Go(func() error {
		featured, err := svc.Featured(egCtx)
		if err != nil {
			if svc.logger != nil {
				svc.logger.Warn("dashboard: featured courses unavailable", err, usr)
			}
			return nil
		}
		dash.Featured = featured
		return nil
	})
	if err := eg.Wait(); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

func (svc *Service) TeacherCourses(ctx context.Context, token string) ([]Course, error) {
	courses, err := svc.backend.TeacherCourses(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "listing teacher courses")
	}
	return nonNil(courses), nil
}

// TeacherCourse returns the full outline of one of the teacher's courses.
func (svc *Service) TeacherCourse(ctx context.Context, token string, id int64) (Outline, error) {
	if id <= 0 {
		return Outline{}, ErrNotFound
	}
	c, err := svc.backend.TeacherCourse(ctx, token, id)
	if err != nil {
		return Outline{}, notFoundOr(err, "getting teacher course")
	}
	if c.ID == 0 {
		return Outline{}, ErrNotFound
	}
	return BuildOutline(c, tier.Ultra), nil
}

func (svc *Service) CreateCourse(ctx context.Context, token string, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	c, err := svc.backend.CreateCourse(ctx, token, nc)
	if err != nil {
		return Course{}, clientErrorOr(err, "creating course")
	}
	return c, nil
}

// CreateModule appends a module to the course.
func (svc *Service) CreateModule(ctx context.Context, token string, nm NewModule) (Module, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return Module{}, err
	}
	outline, err := svc.TeacherCourse(ctx, token, nm.Course)
	if err != nil {
		return Module{}, err
	}
	nm.OrderIndex = outline.NextOrderIndex()

	m, err := svc.backend.CreateModule(ctx, token, nm)
	if err != nil {
		return Module{}, clientErrorOr(err, "creating module")
	}
	return m, nil
}

// CreateLesson appends a lesson to a module of the course.
func (svc *Service) CreateLesson(ctx context.Context, token string, nl NewLesson) (Lesson, error) {
	if err := nl.Validate(svc.validate); err != nil {
		return Lesson{}, err
	}
	outline, err := svc.TeacherCourse(ctx, token, nl.Course)
	if err != nil {
		return Lesson{}, err
	}
	idx := outline.NextLessonOrderIndex(nl.Module)
	if idx < 0 {
		return Lesson{}, core.NewFieldError("module", errModuleMissing)
	}
	nl.OrderIndex = idx

	l, err := svc.backend.CreateLesson(ctx, token, nl)
	if err != nil {
		return Lesson{}, clientErrorOr(err, "creating lesson")
	}
	return l, nil
}

func notFoundOr(err error, msg string) error {
	if status, ok := core.HTTPStatus(err); ok && status == http.StatusNotFound {
		return ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// clientErrorOr turns upstream input errors (e.g. duplicate slug) into validation errors.
func clientErrorOr(err error, msg string) error {
	if status, ok := core.HTTPStatus(err); ok && status >= http.StatusBadRequest && status < http.StatusInternalServerError &&
		status != http.StatusUnauthorized && status != http.StatusForbidden {
		return core.NewValidationError(errors.Cause(err))
	}
	return errors.Wrap(err, msg)
}

func nonNil(courses []Course) []Course {
	if courses == nil {
		return []Course{}
	}
	return courses
}
