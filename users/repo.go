package users

import (
	"errors"

	"github.com/jrsteele09/go-blog-server/credential"
)

var (
	ErrNotFound         = errors.New("user not found")
	ErrUsernameTaken    = errors.New("username already taken")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
)

type UserRepo interface {
	// Create stores a new user. Returns ErrUsernameTaken when the username
	// (case-sensitive, exact match) already exists.
	Create(user *User) error
	GetByUsername(username string) (*User, error)
	GetByID(id string) (*User, error)
	// SetRole updates the authoritative role for a user. Takes effect on the
	// next identity re-sync, not on credentials already issued.
	SetRole(id string, role credential.Role) error
}
