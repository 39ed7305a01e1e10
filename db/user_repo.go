package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/google/uuid"
)

var _ domain.UserRepository = (*Repository)(nil)

// dbUser represents an admin account as stored in the database.
type dbUser struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

// toDomainUser converts a dbUser to a domain.AdminUser.
func toDomainUser(dbUser *dbUser) *domain.AdminUser {
	return &domain.AdminUser{
		ID:           dbUser.ID,
		Email:        dbUser.Email,
		PasswordHash: dbUser.PasswordHash,
		CreatedAt:    dbUser.CreatedAt,
	}
}

func (repo *Repository) getUser(column, value string) (*domain.AdminUser, error) {
	var user dbUser
	query := `SELECT id, email, password_hash, created_at FROM admin_user WHERE ` + column + ` = ?`

	err := repo.dbConn.Get(&user, query, value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by %s: %w", column, err)
	}
	return toDomainUser(&user), nil
}

// GetUserByEmail retrieves an admin by email. The comparison is case-insensitive.
func (repo *Repository) GetUserByEmail(email string) (*domain.AdminUser, error) {
	return repo.getUser("email", email)
}

// GetUserByID retrieves an admin by ID.
func (repo *Repository) GetUserByID(id string) (*domain.AdminUser, error) {
	return repo.getUser("id", id)
}

// CreateUser stores a new admin account.
func (repo *Repository) CreateUser(email, passwordHash string) (string, error) {
	userUUID, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating uuid: %w", err)
	}

	query := `INSERT INTO admin_user(id, email, password_hash, created_at) VALUES (?, ?, ?, ?)`

	_, err = repo.dbConn.Exec(query, userUUID.String(), email, passwordHash, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("creating user %s: %w", email, err)
	}

	return userUUID.String(), nil
}

// CountUsers returns the number of admin accounts.
func (repo *Repository) CountUsers() (int, error) {
	var count int
	err := repo.dbConn.Get(&count, `SELECT COUNT(*) FROM admin_user`)
	if err != nil {
		return 0, fmt.Errorf("getting user count: %w", err)
	}
	return count, nil
}
