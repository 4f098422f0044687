package entity

import "time"

// Roles a user can hold. Admin unlocks catalog mutations and restocking.
const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"
)

// User is the authentication principal.
// Password holds a bcrypt hash and must never be serialized in responses.
type User struct {
	ID        string
	Email     string
	Password  string
	Role      string
	CreatedAt time.Time
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
