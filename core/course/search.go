package course

import (
	"fmt"
	"strings"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// SearchQuery is a full-text search over courses, modules and lessons.
type SearchQuery struct {
	Query   string `query:"query" json:"query" validate:"required,max=200"`
	Page    int    `query:"page" json:"page"`
	PerPage int    `query:"per_page" json:"per_page"`
}

func (q *SearchQuery) Clean() {
	q.Query = strings.TrimSpace(q.Query)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = defaultPerPage
	} else if q.PerPage > maxPerPage {
		q.PerPage = maxPerPage
	}
}

// SearchSummary is a search result along with a human readable message.
type SearchSummary struct {
	Found   bool                 `json:"found"`
	Message string               `json:"message"`
	Courses []CourseSearchResult `json:"courses"`
}

func FormatSearch(res SearchResult) SearchSummary {
	if len(res.Courses) == 0 {
		return SearchSummary{
			Message: "No courses, modules, or lessons found matching your query.",
			Courses: []CourseSearchResult{},
		}
	}

	plural := "s"
	if len(res.Courses) == 1 {
		plural = ""
	}
	return SearchSummary{
		Found:   true,
		Message: fmt.Sprintf("Found %d course%s with relevant content.", len(res.Courses), plural),
		Courses: res.Courses,
	}
}

// Context renders the summary as plain text, e.g. to ground a language model.
func (s SearchSummary) Context() string {
	var b strings.Builder
	b.WriteString(s.Message)
	b.WriteString("\n")
	for _, c := range s.Courses {
		fmt.Fprintf(&b, "\nCourse: %s (%s tier) - %s\n", c.Title, c.Tier, c.URL)
		if c.Description != "" {
			fmt.Fprintf(&b, "  %s\n", c.Description)
		}
		for _, m := range c.Modules {
			fmt.Fprintf(&b, "  Module: %s\n", m.Title)
			for _, l := range m.Lessons {
				fmt.Fprintf(&b, "    Lesson: %s - %s\n", l.Title, l.URL)
				if l.ContentPreview != "" {
					fmt.Fprintf(&b, "      %s\n", l.ContentPreview)
				}
			}
		}
	}
	return b.String()
}
