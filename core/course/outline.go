package course

import (
	"sort"

	"github.com/trezcool/darasa/core/tier"
)

// BuildOutline nests the flat lessons of c under their modules and gates the result for userTier.
// Empty module and lesson objects (no id) are dropped.
func BuildOutline(c CourseWithModules, userTier tier.Tier) Outline {
	lessonsByModule := make(map[int64][]Lesson, len(c.Modules))
	lessonCount, completed := 0, 0
	for _, l := range c.Lessons {
		if l.ID == 0 {
			continue
		}
		lessonCount++
		if l.IsCompleted {
			completed++
		}
		lessonsByModule[l.Module] = append(lessonsByModule[l.Module], l)
	}

	modules := make([]ModuleOutline, 0, len(c.Modules))
	for _, m := range c.Modules {
		if m.ID == 0 {
			continue
		}
		lessons := lessonsByModule[m.ID]
		if lessons == nil {
			lessons = []Lesson{}
		}
		sortLessons(lessons)
		modules = append(modules, ModuleOutline{Module: m, Lessons: lessons})
	}
	sort.SliceStable(modules, func(i, j int) bool { return modules[i].OrderIndex < modules[j].OrderIndex })

	if c.CompletedLessonCount > 0 {
		completed = c.CompletedLessonCount
	}

	out := Outline{
		Course:               c.Course,
		Modules:              modules,
		ModuleCount:          len(modules),
		LessonCount:          lessonCount,
		CompletedLessonCount: completed,
		HasAccess:            tier.HasAccess(userTier, c.Tier),
		RequiredTier:         c.GatingTier(),
	}
	if out.Title == "" {
		out.Title = "Untitled Course"
	}
	out.Course.ModuleCount = out.ModuleCount
	out.Course.LessonCount = out.LessonCount
	return out
}

// Lesson returns the lesson with the given slug.
func (o Outline) Lesson(slug string) (Lesson, bool) {
	for _, m := range o.Modules {
		for _, l := range m.Lessons {
			if string(l.Slug) == slug {
				return l, true
			}
		}
	}
	return Lesson{}, false
}

// NextOrderIndex is the order index of a module appended to the course.
func (o Outline) NextOrderIndex() int {
	return len(o.Modules)
}

// NextLessonOrderIndex is the order index of a lesson appended to the module, or -1 if the module is not in the course.
func (o Outline) NextLessonOrderIndex(moduleID int64) int {
	for _, m := range o.Modules {
		if m.ID == moduleID {
			return len(m.Lessons)
		}
	}
	return -1
}

// BuildLessonView gates the lesson for userTier; the course tier gates all its lessons.
func BuildLessonView(l LessonWithContext, userTier tier.Tier) LessonView {
	view := LessonView{
		Lesson:       l.Lesson,
		Module:       l.Module,
		Course:       l.Course.Course,
		RequiredTier: l.Course.GatingTier(),
		Locked:       !tier.HasAccess(userTier, l.Course.Tier),
		Siblings:     []Lesson{},
	}
	if view.Title == "" {
		view.Title = "Untitled Lesson"
	}
	if view.Locked {
		view.Content = ""
		view.MuxPlaybackID = ""
	}

	for _, s := range l.Course.Lessons {
		if s.ID == 0 || s.Module != l.Module.ID {
			continue
		}
		s.Content = ""
		if view.Locked {
			s.MuxPlaybackID = ""
		}
		view.Siblings = append(view.Siblings, s)
	}
	sortLessons(view.Siblings)
	return view
}

func sortLessons(lessons []Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool { return lessons[i].OrderIndex < lessons[j].OrderIndex })
}
