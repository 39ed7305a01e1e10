package db

import (
	"fmt"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

var _ domain.StatsRepository = (*Repository)(nil)

// CountPackages returns the total number of packages in the catalog.
func (repo *Repository) CountPackages() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM packages`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("getting package count: %w", err)
	}

	return count, nil
}

// CountFeatured returns the number of packages shown on the homepage.
func (repo *Repository) CountFeatured() (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM packages WHERE featuredHome = 1`

	err := repo.dbConn.Get(&count, query)
	if err != nil {
		return 0, fmt.Errorf("getting featured count: %w", err)
	}

	return count, nil
}

// CountByType returns the number of packages per type. Packages without a type are not counted.
func (repo *Repository) CountByType() (map[domain.PackageType]int, error) {
	var rows []struct {
		Type  string `db:"type"`
		Count int    `db:"count"`
	}
	query := `SELECT type, COUNT(*) AS count
              FROM packages
              WHERE type IS NOT NULL AND type != ''
              GROUP BY type`

	err := repo.dbConn.Select(&rows, query)
	if err != nil {
		return nil, fmt.Errorf("getting counts by type: %w", err)
	}

	counts := make(map[domain.PackageType]int, len(rows))
	for _, row := range rows {
		counts[domain.PackageType(row.Type)] = row.Count
	}
	return counts, nil
}
