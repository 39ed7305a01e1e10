package db

import (
	"errors"
	"testing"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

func TestBannerRepo(t *testing.T) {
	t.Run("should return ErrNoBanner before any upload", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		_, err := repo.GetBanner()
		if !errors.Is(err, domain.ErrNoBanner) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrNoBanner, err)
		}
	})

	t.Run("should keep only the latest pointer", func(t *testing.T) {
		repo, teardown := setupTestDB(t)
		defer teardown()

		first := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
		second := first.Add(time.Hour)

		if err := repo.SetBanner("banner.png", first); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if err := repo.SetBanner("banner.jpg", second); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got, err := repo.GetBanner()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.Filename != "banner.jpg" {
			t.Fatalf("\nwanted:\n%q\ngot:\n%q", "banner.jpg", got.Filename)
		}
		if !got.UpdatedAt.Equal(second) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", second, got.UpdatedAt)
		}

		var rows int
		if err := repo.dbConn.Get(&rows, `SELECT COUNT(*) FROM banner`); err != nil {
			t.Fatalf("counting banner rows: %v", err)
		}
		if rows != 1 {
			t.Fatalf("\nwanted:\n1\ngot:\n%d", rows)
		}
	})
}
