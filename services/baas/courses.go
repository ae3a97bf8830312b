package baas

import (
	"context"
	"net/url"
	"strconv"

	"github.com/trezcool/darasa/core/course"
)

var _ course.Backend = (*Client)(nil)

func (c *Client) Courses(ctx context.Context) ([]course.Course, error) {
	var courses []course.Course
	err := c.get(ctx, "/courses", "", &courses)
	return courses, err
}

func (c *Client) FeaturedCourses(ctx context.Context) ([]course.Course, error) {
	var courses []course.Course
	err := c.get(ctx, "/courses/featured", "", &courses)
	return courses, err
}

func (c *Client) Course(ctx context.Context, slug string) (course.CourseWithModules, error) {
	var crs course.CourseWithModules
	err := c.get(ctx, "/courses/"+segment(slug), "", &crs)
	return crs, err
}

func (c *Client) CourseWithProgress(ctx context.Context, token, slug string) (course.CourseWithModules, error) {
	var crs course.CourseWithModules
	err := c.get(ctx, "/courses/"+segment(slug)+"/with-progress", token, &crs)
	return crs, err
}

func (c *Client) MyCourses(ctx context.Context, token string) ([]course.CourseProgress, error) {
	var courses []course.CourseProgress
	err := c.get(ctx, "/courses/my-progress", token, &courses)
	return courses, err
}

func (c *Client) Lesson(ctx context.Context, token, slug string) (course.LessonWithContext, error) {
	var lesson course.LessonWithContext
	err := c.get(ctx, "/lessons/"+segment(slug), token, &lesson)
	return lesson, err
}

func (c *Client) SetLessonCompletion(ctx context.Context, token string, lessonID int64, done bool) error {
	path := "/progress/complete-lesson"
	if !done {
		path = "/progress/uncomplete-lesson"
	}
	return c.post(ctx, path, token, struct {
		LessonID int64 `json:"lesson_id"`
	}{lessonID}, nil)
}

func (c *Client) SetCourseCompletion(ctx context.Context, token string, courseID int64, done bool) error {
	path := "/progress/complete-course"
	if !done {
		path = "/progress/uncomplete-course"
	}
	return c.post(ctx, path, token, struct {
		CourseID int64 `json:"course_id"`
	}{courseID}, nil)
}

func (c *Client) CourseProgress(ctx context.Context, token string, courseID int64) (course.Progress, error) {
	var p course.Progress
	err := c.get(ctx, "/progress/course/"+strconv.FormatInt(courseID, 10), token, &p)
	return p, err
}

func (c *Client) Stats(ctx context.Context) (course.Stats, error) {
	var stats course.Stats
	err := c.get(ctx, "/stats", "", &stats)
	return stats, err
}

func (c *Client) Search(ctx context.Context, q course.SearchQuery) (course.SearchResult, error) {
	params := make(url.Values)
	params.Set("query", q.Query)
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("per_page", strconv.Itoa(q.PerPage))

	var res course.SearchResult
	err := c.get(ctx, "/search?"+params.Encode(), "", &res)
	return res, err
}
