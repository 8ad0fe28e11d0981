package user

import "time"

// Name length bounds enforced on creation.
const (
	MinNameLen = 2
	MaxNameLen = 50
)

// Role is a user's access role.
type Role string

const (
	RoleUser  Role = "User"
	RoleAdmin Role = "Admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a user record from the primary store. Search treats it as
// read-only input; id and timestamps are store-assigned.
type User struct {
	ID        string
	Name      string
	Email     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}
