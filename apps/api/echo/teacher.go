package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/user"
	"github.com/trezcool/darasa/core/video"
)

type teacherApi struct {
	courseSvc *course.Service
	videoSvc  *video.Service
	maxSize   int64
}

func registerTeacherAPI(g *echo.Group, jwt echo.MiddlewareFunc, deps ServerDeps) {
	api := teacherApi{
		courseSvc: deps.CourseSvc,
		videoSvc:  deps.VideoSvc,
		maxSize:   deps.Conf.Video.MaxUploadSize,
	}

	tg := g.Group("/teacher")
	guard := []echo.MiddlewareFunc{jwt, teacherMiddleware}

	// course editor
	tg.GET("/courses", api.courses, guard...)
	tg.POST("/courses", api.createCourse, guard...)
	tg.GET("/courses/:id", api.course, guard...)
	tg.POST("/courses/:id/modules", api.createModule, guard...)
	tg.POST("/modules/:id/lessons", api.createLesson, guard...)

	// video ingestion
	tg.POST("/uploads", api.startUpload, guard...)
	tg.GET("/uploads", api.uploads, guard...)
	tg.GET("/uploads/:id", api.upload, guard...)
	tg.PUT("/uploads/:id", api.putUpload, guard...)
	tg.GET("/assets/:id", api.asset, guard...)
}

// jobOwner is the user whose jobs are visible: admins see every job.
func jobOwner(usr user.User) int64 {
	if usr.IsAdmin() {
		return 0
	}
	return usr.ID
}

// Handlers

func (api *teacherApi) courses(ctx echo.Context) error {
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	courses, err := api.courseSvc.TeacherCourses(ctx.Request().Context(), token)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (api *teacherApi) course(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	outline, err := api.courseSvc.TeacherCourse(ctx.Request().Context(), token, id)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, outline)
}

func (api *teacherApi) createCourse(ctx echo.Context) error {
	var data course.NewCourse
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCourse")
	}
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	crs, err := api.courseSvc.CreateCourse(ctx.Request().Context(), token, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, crs)
}

func (api *teacherApi) createModule(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data course.NewModule
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewModule")
	}
	data.Course = id

	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	m, err := api.courseSvc.CreateModule(ctx.Request().Context(), token, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, m)
}

// createLesson adds a lesson to the module. The body carries the course id.
func (api *teacherApi) createLesson(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return err
	}
	var data course.NewLesson
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLesson")
	}
	data.Module = id

	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	l, err := api.courseSvc.CreateLesson(ctx.Request().Context(), token, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, l)
}

type uploadResponse struct {
	Job       video.Job `json:"job"`
	UploadURL string    `json:"upload_url"`
	UploadID  string    `json:"upload_id"`
}

func (api *teacherApi) startUpload(ctx echo.Context) error {
	usr, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	origin := ctx.Request().Header.Get(echo.HeaderOrigin)
	job, target, err := api.videoSvc.Start(ctx.Request().Context(), token, usr.ID, origin)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, uploadResponse{
		Job:       job,
		UploadURL: target.UploadURL,
		UploadID:  target.UploadID,
	})
}

// putUpload streams the raw request body to the job's signed URL.
// The job is then processed in the background: poll GET /teacher/uploads/:id for its state.
func (api *teacherApi) putUpload(ctx echo.Context) error {
	usr, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	req := ctx.Request()
	size := req.ContentLength
	if size > api.maxSize && api.maxSize > 0 {
		return video.ValidateFile(req.Header.Get(echo.HeaderContentType), size, api.maxSize)
	}

	// the service stops reading past the size limit when no size is declared
	job, err := api.videoSvc.Upload(req.Context(), token, jobOwner(usr), ctx.Param("id"),
		req.Header.Get(echo.HeaderContentType), size, req.Body)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusAccepted, job)
}

func (api *teacherApi) upload(ctx echo.Context) error {
	usr, _, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	job, err := api.videoSvc.Job(ctx.Request().Context(), jobOwner(usr), ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, job)
}

func (api *teacherApi) uploads(ctx echo.Context) error {
	usr, _, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	filter := video.QueryFilter{CreatedBy: jobOwner(usr)}
	if s := ctx.QueryParam("state"); s != "" {
		state, ok := video.ParseState(s)
		if !ok {
			return core.NewFieldError("state", "unknown job state")
		}
		filter.State = state
	}

	jobs, err := api.videoSvc.Jobs(ctx.Request().Context(), filter)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, jobs)
}

func (api *teacherApi) asset(ctx echo.Context) error {
	_, token, err := getContextUser(ctx)
	if err != nil {
		return err
	}
	asset, err := api.videoSvc.Asset(ctx.Request().Context(), token, ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, asset)
}
