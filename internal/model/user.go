package model

// Role is the closed set of roles the access policy understands.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Caller is the already-authenticated identity an authorization decision is made for.
// It is resolved once per request and never changes during it.
type Caller struct {
	ID           int64 `json:"id"`
	Role         Role  `json:"role"`
	DepartmentID int64 `json:"department_id"`
}

// User is an account row. Tokens are only issued for users that exist.
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	DepartmentID *int64 `json:"department_id"`
}

// Caller is the identity a token for u carries. A user without a department gets 0.
func (u User) Caller() Caller {
	c := Caller{ID: u.ID, Role: u.Role}
	if u.DepartmentID != nil {
		c.DepartmentID = *u.DepartmentID
	}
	return c
}
