package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
)

var (
	tierTag  = "tier"
	tierText = "tier must be one of free, pro or ultra"
)

// InitValidators registers the course validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(tierTag, tierValidation)
	core.RegisterCustomTranslation(validate, translator, tierTag, tierText)
}

func tierValidation(fl validator.FieldLevel) bool {
	return tier.Valid(tier.Tier(fl.Field().String()))
}

// NewCourse contains information needed to create a course.
type NewCourse struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Slug        string    `json:"slug" validate:"required,slug,max=200"`
	Description string    `json:"description" validate:"omitempty,max=5000"`
	ImageURL    string    `json:"image_url,omitempty" validate:"omitempty,url"`
	Category    int64     `json:"category,omitempty"`
	Tier        tier.Tier `json:"tier" validate:"required,tier"`
	Featured    bool      `json:"featured"`
}

// Validate cleans nc, fills in defaults (slug from title, free tier) and validates it.
func (nc *NewCourse) Validate(validate *validator.Validate) error {
	nc.Title = core.CleanString(nc.Title)
	nc.Slug = core.CleanString(nc.Slug, true /* lower */)
	nc.Description = core.CleanString(nc.Description)
	nc.ImageURL = core.CleanString(nc.ImageURL)
	if nc.Slug == "" {
		nc.Slug = Slugify(nc.Title)
	}
	if t, _ := tier.Parse(string(nc.Tier)); t != "" {
		nc.Tier = t
	} else {
		nc.Tier = tier.Free
	}
	return validate.Struct(nc)
}

// NewModule contains information needed to add a module to a course.
// OrderIndex is set by the service.
type NewModule struct {
	Course      int64  `json:"course" validate:"required"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	OrderIndex  int    `json:"order_index"`
}

func (nm *NewModule) Validate(validate *validator.Validate) error {
	nm.Title = core.CleanString(nm.Title)
	nm.Description = core.CleanString(nm.Description)
	return validate.Struct(nm)
}

// NewLesson contains information needed to add a lesson to a module.
// Course is used to look up sibling lessons; OrderIndex is set by the service.
type NewLesson struct {
	Course        int64   `json:"course" validate:"required"`
	Module        int64   `json:"module" validate:"required"`
	Title         string  `json:"title" validate:"required,max=200"`
	Slug          string  `json:"slug" validate:"required,slug,max=200"`
	Description   string  `json:"description" validate:"omitempty,max=5000"`
	Content       string  `json:"content"`
	MuxPlaybackID string  `json:"mux_playback_id,omitempty"`
	Duration      float64 `json:"duration" validate:"gte=0"`
	OrderIndex    int     `json:"order_index"`
}

func (nl *NewLesson) Validate(validate *validator.Validate) error {
	nl.Title = core.CleanString(nl.Title)
	nl.Slug = core.CleanString(nl.Slug, true /* lower */)
	nl.Description = core.CleanString(nl.Description)
	nl.MuxPlaybackID = core.CleanString(nl.MuxPlaybackID)
	if nl.Slug == "" {
		nl.Slug = Slugify(nl.Title)
	}
	return validate.Struct(nl)
}
