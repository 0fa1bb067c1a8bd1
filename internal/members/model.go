package members

import "time"

// Member is a user account belonging to one organization. Email is unique
// within the organization, not globally.
type Member struct {
	ID             int64     `json:"id"`
	OrganizationID int64     `json:"organization_id"`
	Email          string    `json:"email"`
	Name           string    `json:"name"`
	Role           string    `json:"role"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MemberForm carries create input for a member.
type MemberForm struct {
	Email    string `json:"email" validate:"required,email,max=240"`
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=admin manager viewer"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UpdateForm carries update input. An empty password leaves the stored hash
// untouched.
type UpdateForm struct {
	Email    string `json:"email" validate:"required,email,max=240"`
	Name     string `json:"name" validate:"required,max=120"`
	Role     string `json:"role" validate:"required,oneof=admin manager viewer"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}
