package course

import (
	"bytes"
	"encoding/json"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
)

type Category struct {
	ID          int64     `json:"id"`
	Title       core.Text `json:"title"`
	Slug        core.Text `json:"slug"`
	Description core.Text `json:"description"`
}

// CategoryRef is a course category sent either as a bare id or as an expanded object.
type CategoryRef struct {
	ID    int64
	Title string
}

func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = CategoryRef{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var cat Category
		if err := json.Unmarshal(data, &cat); err != nil {
			return err
		}
		c.ID, c.Title = cat.ID, string(cat.Title)
		return nil
	}
	var id json.Number
	if err := json.Unmarshal(data, &id); err != nil {
		return nil // unexpected shape: treat as no category
	}
	c.ID, _ = id.Int64()
	return nil
}

func (c CategoryRef) MarshalJSON() ([]byte, error) {
	if c.ID == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		ID    int64  `json:"id"`
		Title string `json:"title,omitempty"`
	}{c.ID, c.Title})
}

type Teacher struct {
	ID        int64     `json:"id"`
	FirstName core.Text `json:"first_name"`
	LastName  core.Text `json:"last_name"`
}

type Course struct {
	ID           int64       `json:"id"`
	Title        core.Text   `json:"title"`
	Slug         core.Text   `json:"slug"`
	Description  core.Text   `json:"description"`
	ImageURL     core.Text   `json:"image_url"`
	Category     CategoryRef `json:"category"`
	CategoryData *Category   `json:"category_data,omitempty"`
	Tier         tier.Tier   `json:"tier"`
	Featured     bool        `json:"featured"`
	TeacherID    int64       `json:"teacher_id,omitempty"`
	Teacher      *Teacher    `json:"teacher,omitempty"`
	ModuleCount  int         `json:"module_count"`
	LessonCount  int         `json:"lesson_count"`
	CreatedAt    core.Time   `json:"created_at"`
}

// GatingTier returns the tier gating the course.
func (c Course) GatingTier() tier.Tier {
	return tier.Required(c.Tier)
}

type Module struct {
	ID          int64     `json:"id"`
	Course      int64     `json:"course"`
	Title       core.Text `json:"title"`
	Description core.Text `json:"description"`
	OrderIndex  int       `json:"order_index"`
}

type Lesson struct {
	ID            int64     `json:"id"`
	Module        int64     `json:"module"`
	Title         core.Text `json:"title"`
	Slug          core.Text `json:"slug"`
	Description   core.Text `json:"description"`
	Content       core.Text `json:"content"`
	MuxPlaybackID core.Text `json:"mux_playback_id"`
	Duration      float64   `json:"duration"`
	OrderIndex    int       `json:"order_index"`
	IsCompleted   bool      `json:"is_completed"`
}

// CourseWithModules is a course as sent by the backend: modules and lessons are flat lists.
type CourseWithModules struct {
	Course
	Modules              []Module `json:"modules"`
	Lessons              []Lesson `json:"lessons"`
	CompletedLessonCount int      `json:"completed_lesson_count"`
}

// LessonWithContext is a lesson along with the module and course it belongs to.
type LessonWithContext struct {
	Lesson
	Module Module            `json:"module"`
	Course CourseWithModules `json:"course"`
}

// UnmarshalJSON decodes the lesson fields, whose `module` key holds an object here instead of an id.
func (l *LessonWithContext) UnmarshalJSON(data []byte) error {
	type lessonAlias Lesson
	var aux struct {
		lessonAlias
		Module json.RawMessage   `json:"module"`
		Course CourseWithModules `json:"course"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	l.Lesson = Lesson(aux.lessonAlias)
	l.Course = aux.Course
	l.Module = Module{}

	raw := bytes.TrimSpace(aux.Module)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
	case raw[0] == '{':
		if err := json.Unmarshal(raw, &l.Module); err != nil {
			return err
		}
		l.Lesson.Module = l.Module.ID
	default:
		if err := json.Unmarshal(raw, &l.Lesson.Module); err != nil {
			return err
		}
		l.Module.ID = l.Lesson.Module
	}
	return nil
}

// ModuleOutline is a module with its lessons nested in order.
type ModuleOutline struct {
	Module
	Lessons []Lesson `json:"lessons"`
}

// Outline is a course reshaped for display, gated for a given user tier.
type Outline struct {
	Course
	Modules              []ModuleOutline `json:"modules"`
	ModuleCount          int             `json:"module_count"`
	LessonCount          int             `json:"lesson_count"`
	CompletedLessonCount int             `json:"completed_lesson_count"`
	HasAccess            bool            `json:"has_access"`
	RequiredTier         tier.Tier       `json:"required_tier"`
}

// LessonView is a lesson gated for a given user tier. Locked lessons hide their content and video.
type LessonView struct {
	Lesson
	Module       Module    `json:"module"`
	Course       Course    `json:"course"`
	Locked       bool      `json:"locked"`
	RequiredTier tier.Tier `json:"required_tier"`
	Siblings     []Lesson  `json:"siblings"` // lessons of the same module, content stripped
}

type CourseProgress struct {
	Course
	CompletedLessonCount int  `json:"completed_lesson_count"`
	IsCompleted          bool `json:"is_completed"`
}

type Progress struct {
	CompletedCount     int     `json:"completed_count"`
	TotalCount         int     `json:"total_count"`
	ProgressPercentage float64 `json:"progress_percentage"`
	CompletedLessons   []int64 `json:"completed_lessons"`
}

type Stats struct {
	CourseCount int `json:"course_count"`
	LessonCount int `json:"lesson_count"`
}

type (
	SearchResult struct {
		Courses []CourseSearchResult `json:"courses"`
		Lessons []LessonSearchResult `json:"lessons,omitempty"`
	}

	CourseSearchResult struct {
		ID          int64                `json:"id"`
		Title       core.Text            `json:"title"`
		Slug        core.Text            `json:"slug"`
		Description core.Text            `json:"description"`
		Tier        tier.Tier            `json:"tier"`
		Category    core.Text            `json:"category"`
		URL         string               `json:"url"`
		ModuleCount int                  `json:"module_count"`
		LessonCount int                  `json:"lesson_count"`
		Modules     []ModuleSearchResult `json:"modules"`
	}

	ModuleSearchResult struct {
		Title       core.Text            `json:"title"`
		Description core.Text            `json:"description"`
		Lessons     []LessonSearchResult `json:"lessons"`
	}

	LessonSearchResult struct {
		ID             int64     `json:"id"`
		Title          core.Text `json:"title"`
		Slug           core.Text `json:"slug"`
		Description    core.Text `json:"description"`
		ContentPreview core.Text `json:"content_preview"`
		URL            string    `json:"url"`
	}
)

// Dashboard is what a signed-in user lands on.
type Dashboard struct {
	FirstName string           `json:"first_name"`
	Tier      tier.Tier        `json:"tier"`
	Courses   []CourseProgress `json:"courses"`
	Featured  []Course         `json:"featured"`
	Upgrades  []tier.Tier      `json:"upgrades"`
}
