package domain

import (
	"errors"
	"time"
)

// ErrUserNotFound is returned when no admin user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// UserRepository defines the interface for managing back-office accounts.
type UserRepository interface {
	// GetUserByEmail retrieves an admin by email, or ErrUserNotFound.
	GetUserByEmail(email string) (*AdminUser, error)
	// GetUserByID retrieves an admin by ID, or ErrUserNotFound.
	GetUserByID(id string) (*AdminUser, error)
	// CreateUser stores a new admin with an already hashed password and returns its ID.
	CreateUser(email, passwordHash string) (string, error)
	// CountUsers returns the number of admin accounts.
	CountUsers() (int, error)
}

// AdminUser is an account allowed to manage the catalog.
type AdminUser struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
