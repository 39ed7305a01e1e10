package db

import (
	"errors"
	"testing"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

func TestUserRepo(t *testing.T) {
	t.Run("should create and find a user case-insensitively", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		id, err := repo.CreateUser("Admin@Agencia.com", "hash")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got, err := repo.GetUserByEmail("admin@agencia.com")
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.ID != id || got.PasswordHash != "hash" {
			t.Fatalf("\nwanted:\n%s/hash\ngot:\n%s/%s", id, got.ID, got.PasswordHash)
		}

		byID, err := repo.GetUserByID(id)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if byID.Email != "Admin@Agencia.com" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "Admin@Agencia.com", byID.Email)
		}

		count, err := repo.CountUsers()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if count != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", count)
		}
	})

	t.Run("should reject duplicate emails", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		if _, err := repo.CreateUser("admin@agencia.com", "hash"); err != nil {
			t.Fatalf("creating user: %v", err)
		}
		if _, err := repo.CreateUser("ADMIN@agencia.com", "other"); err == nil {
			t.Fatalf("\nwanted:\nunique violation\ngot:\nnil")
		}
	})

	t.Run("should return ErrUserNotFound", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		_, err := repo.GetUserByEmail("nobody@agencia.com")
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrUserNotFound, err)
		}
	})
}
