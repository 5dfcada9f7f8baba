package auth

import (
	"errors"
	"time"

	"github.com/segundop/segundop/internal/identity"
)

// User represents a marketplace account, either a company or a client.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         identity.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	// ErrEmailTaken indicates the registration email is already in use.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrNotFound indicates a missing user record.
	ErrNotFound = errors.New("auth: user not found")
)
