package domain

import "github.com/google/uuid"

// Role is supplied by the external authentication collaborator.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleStaff      Role = "STAFF"
	RoleInstructor Role = "INSTRUCTOR"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

// IsStaff returns true for platform-side roles.
func (a Actor) IsStaff() bool {
	return a.Role == RoleAdmin || a.Role == RoleStaff
}
