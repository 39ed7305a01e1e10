package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

func init() {
	goose.AddMigrationContext(upAddCatalogColumns, downAddCatalogColumns)
}

// catalogColumns were added to the packages table over time. Databases created by
// earlier releases may carry any subset of them, so each one is added only when missing.
var catalogColumns = []struct {
	name       string
	definition string
}{
	{"slug", "TEXT"},
	{"images", "TEXT"},
	{"inclusions", "TEXT"},
	{"months", "TEXT"},
	{"featuredHome", "INTEGER DEFAULT 0"},
}

func existingColumns(tx *sql.Tx, table string) (map[string]bool, error) {
	rows, err := tx.Query(fmt.Sprintf("SELECT name FROM pragma_table_info('%s')", table))
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}
	defer rows.Close()

	columns := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning column name: %w", err)
		}
		columns[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating columns: %w", err)
	}
	return columns, nil
}

func upAddCatalogColumns(ctx context.Context, tx *sql.Tx) error {
	columns, err := existingColumns(tx, "packages")
	if err != nil {
		return err
	}

	for _, column := range catalogColumns {
		if columns[column.name] {
			continue
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE packages ADD COLUMN %s %s", column.name, column.definition))
		if err != nil {
			return fmt.Errorf("adding column %s : %w", column.name, err)
		}
	}
	return nil
}

func downAddCatalogColumns(ctx context.Context, tx *sql.Tx) error {
	columns, err := existingColumns(tx, "packages")
	if err != nil {
		return err
	}

	for i := len(catalogColumns) - 1; i >= 0; i-- {
		column := catalogColumns[i]
		if !columns[column.name] {
			continue
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE packages DROP COLUMN %s", column.name)); err != nil {
			return fmt.Errorf("dropping column %s : %w", column.name, err)
		}
	}
	return nil
}
