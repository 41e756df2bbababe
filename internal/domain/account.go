package domain

import "time"

// Role is the closed set of account privileges.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// DefaultRole is assigned at signup.
const DefaultRole = RoleUser

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}

// Account is a registered user of the catalog.
type Account struct {
	ID           string
	Username     string
	Email        string
	FirstName    *string
	LastName     *string
	PasswordHash string
	Role         Role
	IsVerified   bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TokenUser returns the subset of the account embedded in tokens.
func (a *Account) TokenUser() TokenUser {
	return TokenUser{ID: a.ID, Email: a.Email, Role: a.Role}
}
