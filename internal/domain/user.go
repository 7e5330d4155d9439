package domain

import (
	"context"
	"time"
)

// Role is the acting principal's role.
type Role string

const (
	RoleSeeker  Role = "SEEKER"
	RoleCompany Role = "COMPANY"
	RoleAdmin   Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleSeeker, RoleCompany, RoleAdmin:
		return true
	}
	return false
}

// User represents an account that can sign in.
type User struct {
	ID           string // UUID
	Email        string // Unique email address
	Name         string
	PasswordHash string // Bcrypt hashed password (not returned in API)
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRepository defines data access for users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByRole(ctx context.Context, role Role) ([]*User, error)
}
