package user

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/tier"
)

type Role string

// Roles
const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

var (
	AllRoles    = []Role{RoleStudent, RoleTeacher, RoleAdmin}
	SignupRoles = []Role{RoleStudent, RoleTeacher}

	rolePriorities = map[Role]int{
		RoleAdmin:   21,
		RoleTeacher: 11,
		RoleStudent: 1,
	}
)

func RolePriority(role Role) int {
	return rolePriorities[role]
}

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName core.Text `json:"first_name"`
	LastName  core.Text `json:"last_name"`
	AvatarURL core.Text `json:"avatar_url"`
	Tier      tier.Tier `json:"tier"`
	Role      Role      `json:"role"`
	CreatedAt core.Time `json:"created_at"`
	UpdatedAt core.Time `json:"updated_at"`
}

func (u User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u User) IsStudent() bool { return u.Role == RoleStudent || u.Role == "" }

// CanManageCourses reports whether u may use the course editor and upload videos.
func (u User) CanManageCourses() bool {
	return RolePriority(u.Role) >= RolePriority(RoleTeacher)
}

// TierOrFree returns the user's tier, defaulting to free.
func (u User) TierOrFree() tier.Tier {
	return tier.OrFree(u.Tier)
}

func (u User) HasAccess(contentTier tier.Tier) bool {
	return tier.HasAccess(u.Tier, contentTier)
}

func (u User) DisplayName() string {
	name := strings.TrimSpace(string(u.FirstName) + " " + string(u.LastName))
	if name == "" {
		if i := strings.Index(u.Email, "@"); i > 0 {
			return u.Email[:i]
		}
		return u.Email
	}
	return name
}

// Session is an authenticated user along with the backend token representing them.
type Session struct {
	Token string `json:"authToken"`
	User  User   `json:"user"`
}

// NewUser contains information needed to sign up.
type NewUser struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"omitempty,max=100"`
	LastName  string `json:"last_name" validate:"omitempty,max=100"`
	Role      Role   `json:"role" validate:"omitempty,signuprole"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FirstName = core.CleanString(nu.FirstName)
	nu.LastName = core.CleanString(nu.LastName)
	nu.Role = Role(core.CleanString(string(nu.Role), true /* lower */))
	if nu.Role == "" {
		nu.Role = RoleStudent
	}
	return validate.Struct(nu)
}

// Credentials are used to log in.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return validate.Struct(c)
}

// UpdateProfile defines what information may be provided to modify the current User.
// Empty fields are left untouched.
type UpdateProfile struct {
	FirstName string `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName  string `json:"last_name,omitempty" validate:"omitempty,max=100"`
	AvatarURL string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

func (up *UpdateProfile) Validate(validate *validator.Validate) error {
	up.FirstName = core.CleanString(up.FirstName)
	up.LastName = core.CleanString(up.LastName)
	up.AvatarURL = core.CleanString(up.AvatarURL)
	return validate.Struct(up)
}

func (up UpdateProfile) IsEmpty() bool {
	return up.FirstName == "" && up.LastName == "" && up.AvatarURL == ""
}

type UpgradeRequest struct {
	Tier tier.Tier `json:"tier" validate:"required,oneof=pro ultra"`
}
