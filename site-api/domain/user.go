package domain

import "time"

// Role grants access to admin operations.
type Role string

const (
	RoleUser   Role = "user"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

func (r Role) rank() int {
	switch r {
	case RoleAdmin:
		return 3
	case RoleEditor:
		return 2
	case RoleUser:
		return 1
	}
	return 0
}

// Allows reports whether r is at least as privileged as required.
func (r Role) Allows(required Role) bool {
	return r.rank() > 0 && r.rank() >= required.rank()
}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if r.rank() == 0 {
		return "", ErrInvalidRole
	}
	return r, nil
}

// User is a signed-in account. ID is the identity provider subject.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// RoleUpdate is the admin payload for changing a user's role.
type RoleUpdate struct {
	Role string `json:"role" validate:"required,oneof=user editor admin"`
}
