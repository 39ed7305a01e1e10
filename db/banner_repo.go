package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

var _ domain.BannerRepository = (*Repository)(nil)

// dbBanner represents the single row of the banner table.
type dbBanner struct {
	Filename  string    `db:"filename"`
	UpdatedAt time.Time `db:"updated_at"`
}

// GetBanner implements the domain.BannerRepository interface.
// It returns domain.ErrNoBanner until a banner has been recorded. The URL is left for the caller to fill.
func (repo *Repository) GetBanner() (*domain.Banner, error) {
	var banner dbBanner
	query := `SELECT filename, updated_at FROM banner WHERE id = 1`

	err := repo.dbConn.Get(&banner, query)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNoBanner
	}
	if err != nil {
		return nil, fmt.Errorf("getting banner: %w", err)
	}

	return &domain.Banner{
		Filename:  banner.Filename,
		UpdatedAt: banner.UpdatedAt,
	}, nil
}

// SetBanner implements the domain.BannerRepository interface.
// The banner table holds at most one row, so the pointer is replaced in place.
func (repo *Repository) SetBanner(filename string, updatedAt time.Time) error {
	query := `INSERT INTO banner(id, filename, updated_at)
		      VALUES (1, ?, ?)
		      ON CONFLICT(id) DO UPDATE SET filename = excluded.filename, updated_at = excluded.updated_at`

	_, err := repo.dbConn.Exec(query, filename, updatedAt)
	if err != nil {
		return fmt.Errorf("updating banner to %s: %w", filename, err)
	}

	return nil
}
