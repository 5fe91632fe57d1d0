package models

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleTenant  Role = "tenant"
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

// IsReviewer reports whether the role may act on applications it does not own
// as an applicant.
func (r Role) IsReviewer() bool {
	return r == RoleOwner || r == RoleManager || r == RoleAdmin
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
