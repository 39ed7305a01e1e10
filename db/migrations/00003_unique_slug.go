package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Vinicius-jafe/bookish-broccoli/slug"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upUniqueSlug, downUniqueSlug)
}

// upUniqueSlug backfills missing slugs from titles, renames duplicates with a numeric
// suffix in insertion order and then enforces uniqueness with an index.
// Rows that end up without any slug are stored as NULL, which the index allows.
func upUniqueSlug(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, "SELECT id, slug, title FROM packages ORDER BY rowid")
	if err != nil {
		return fmt.Errorf("getting all packages: %w", err)
	}

	type row struct {
		id    string
		slug  sql.NullString
		title sql.NullString
	}
	var packages []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.slug, &r.title); err != nil {
			rows.Close()
			return fmt.Errorf("scanning package: %w", err)
		}
		packages = append(packages, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating packages: %w", err)
	}
	rows.Close()

	used := make(map[string]bool)
	for _, p := range packages {
		base := p.slug.String
		if base == "" {
			base = slug.Slugify(p.title.String)
		}

		var resolved sql.NullString
		if base != "" {
			candidate := base
			for n := 2; used[candidate]; n++ {
				candidate = fmt.Sprintf("%s-%d", base, n)
			}
			used[candidate] = true
			resolved = sql.NullString{String: candidate, Valid: true}
		}

		if resolved == p.slug {
			continue
		}
		if _, err := tx.ExecContext(ctx, "UPDATE packages SET slug = ? WHERE id = ?", resolved, p.id); err != nil {
			return fmt.Errorf("updating slug of %s : %w", p.id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "CREATE UNIQUE INDEX idx_packages_slug ON packages(slug)"); err != nil {
		return fmt.Errorf("creating slug index: %w", err)
	}
	return nil
}

func downUniqueSlug(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, "DROP INDEX IF EXISTS idx_packages_slug"); err != nil {
		return fmt.Errorf("dropping slug index: %w", err)
	}
	return nil
}
