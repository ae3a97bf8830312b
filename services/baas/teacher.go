package baas

import (
	"context"
	"strconv"

	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/tier"
)

func (c *Client) TeacherCourses(ctx context.Context, token string) ([]course.Course, error) {
	var courses []course.Course
	err := c.get(ctx, "/teacher/courses", token, &courses)
	return courses, err
}

func (c *Client) TeacherCourse(ctx context.Context, token string, id int64) (course.CourseWithModules, error) {
	var crs course.CourseWithModules
	err := c.get(ctx, "/teacher/courses/"+strconv.FormatInt(id, 10), token, &crs)
	return crs, err
}

type newCourseRequest struct {
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url,omitempty"`
	Category    int64     `json:"category,omitempty"`
	Tier        tier.Tier `json:"tier"`
	Featured    bool      `json:"featured"`
}

func (c *Client) CreateCourse(ctx context.Context, token string, nc course.NewCourse) (course.Course, error) {
	var crs course.Course
	err := c.post(ctx, "/teacher/courses", token, newCourseRequest(nc), &crs)
	return crs, err
}

type newModuleRequest struct {
	CourseID    int64  `json:"course_id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	OrderIndex  int    `json:"order_index"`
}

func (c *Client) CreateModule(ctx context.Context, token string, nm course.NewModule) (course.Module, error) {
	var m course.Module
	err := c.post(ctx, "/teacher/modules", token, newModuleRequest{
		CourseID:    nm.Course,
		Title:       nm.Title,
		Description: nm.Description,
		OrderIndex:  nm.OrderIndex,
	}, &m)
	return m, err
}

type newLessonRequest struct {
	ModuleID      int64   `json:"module_id"`
	Title         string  `json:"title"`
	Slug          string  `json:"slug"`
	Description   string  `json:"description,omitempty"`
	Content       string  `json:"content,omitempty"`
	MuxPlaybackID string  `json:"mux_playback_id,omitempty"`
	Duration      float64 `json:"duration,omitempty"`
	OrderIndex    int     `json:"order_index"`
}

func (c *Client) CreateLesson(ctx context.Context, token string, nl course.NewLesson) (course.Lesson, error) {
	var l course.Lesson
	err := c.post(ctx, "/teacher/lessons", token, newLessonRequest{
		ModuleID:      nl.Module,
		Title:         nl.Title,
		Slug:          nl.Slug,
		Description:   nl.Description,
		Content:       nl.Content,
		MuxPlaybackID: nl.MuxPlaybackID,
		Duration:      nl.Duration,
		OrderIndex:    nl.OrderIndex,
	}, &l)
	return l, err
}
