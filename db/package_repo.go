package db

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/slug"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var _ domain.PackageRepository = (*Repository)(nil)

// packageColumns is listed explicitly so that databases carrying extra legacy columns still scan.
const packageColumns = `id, slug, title, type, region, destination, duration, priceFrom,
	shortDescription, longDescription, images, inclusions, months, featuredHome`

// dbPackage represents a package as stored in the database.
// Every column except the primary key may be NULL in rows written by earlier releases.
type dbPackage struct {
	ID               string          `db:"id"`
	Slug             sql.NullString  `db:"slug"`
	Title            sql.NullString  `db:"title"`
	Type             sql.NullString  `db:"type"`
	Region           sql.NullString  `db:"region"`
	Destination      sql.NullString  `db:"destination"`
	Duration         sql.NullInt64   `db:"duration"`
	PriceFrom        sql.NullFloat64 `db:"priceFrom"`
	ShortDescription sql.NullString  `db:"shortDescription"`
	LongDescription  sql.NullString  `db:"longDescription"`
	Images           sql.NullString  `db:"images"`
	Inclusions       sql.NullString  `db:"inclusions"`
	Months           sql.NullString  `db:"months"`
	FeaturedHome     sql.NullInt64   `db:"featuredHome"`
}

// decodeList decodes a JSON list column, treating NULL as an empty list.
func decodeList(column string, value sql.NullString) ([]string, error) {
	var list StringList
	var raw any
	if value.Valid {
		raw = value.String
	}
	if err := list.Scan(raw); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", column, err)
	}
	return []string(list), nil
}

// toDomainPackage converts a dbPackage to a domain.Package.
// It fails when one of the list columns holds something other than a JSON array of strings.
func toDomainPackage(dbPackage *dbPackage) (*domain.Package, error) {
	images, err := decodeList("images", dbPackage.Images)
	if err != nil {
		return nil, err
	}
	inclusions, err := decodeList("inclusions", dbPackage.Inclusions)
	if err != nil {
		return nil, err
	}
	months, err := decodeList("months", dbPackage.Months)
	if err != nil {
		return nil, err
	}

	return &domain.Package{
		ID:               dbPackage.ID,
		Slug:             dbPackage.Slug.String,
		Title:            dbPackage.Title.String,
		Type:             domain.PackageType(dbPackage.Type.String),
		Region:           dbPackage.Region.String,
		Destination:      dbPackage.Destination.String,
		Duration:         int(dbPackage.Duration.Int64),
		PriceFrom:        dbPackage.PriceFrom.Float64,
		ShortDescription: dbPackage.ShortDescription.String,
		LongDescription:  dbPackage.LongDescription.String,
		Images:           images,
		Inclusions:       inclusions,
		Months:           months,
		FeaturedHome:     dbPackage.FeaturedHome.Int64 != 0,
	}, nil
}

// scanPackages reads every row, logging the id of any row whose list columns are corrupt.
func (repo *Repository) scanPackages(rows *sqlx.Rows) ([]*domain.Package, error) {
	defer rows.Close()

	packages := make([]*domain.Package, 0)
	for rows.Next() {
		var dbPkg dbPackage
		if err := rows.StructScan(&dbPkg); err != nil {
			return nil, fmt.Errorf("scanning package: %w", err)
		}
		pkg, err := toDomainPackage(&dbPkg)
		if err != nil {
			repo.logger.Error("corrupt package row", "id", dbPkg.ID, "error", err)
			return nil, fmt.Errorf("reading package %s: %w", dbPkg.ID, err)
		}
		packages = append(packages, pkg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating packages: %w", err)
	}
	return packages, nil
}

// GetPackages retrieves the packages matching the filter in insertion order.
// Structured criteria are evaluated by SQLite; month and free-text search run in Go so
// that they behave exactly like domain.PackageFilter.Matches for non-ASCII text.
func (repo *Repository) GetPackages(filter domain.PackageFilter) ([]*domain.Package, error) {
	var conditions []string
	var args []any

	if filter.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.Region != "" {
		conditions = append(conditions, "region = ?")
		args = append(args, filter.Region)
	}
	if filter.MinDuration > 0 {
		conditions = append(conditions, "COALESCE(duration, 0) >= ?")
		args = append(args, filter.MinDuration)
	}
	if filter.MaxDuration > 0 {
		conditions = append(conditions, "COALESCE(duration, 0) <= ?")
		args = append(args, filter.MaxDuration)
	}
	if filter.FeaturedOnly {
		conditions = append(conditions, "featuredHome = 1")
	}

	query := `SELECT ` + packageColumns + ` FROM packages`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := repo.dbConn.Queryx(query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting packages: %w", err)
	}

	packages, err := repo.scanPackages(rows)
	if err != nil {
		return nil, err
	}

	inMemory := domain.PackageFilter{Month: filter.Month, Term: filter.Term}
	if inMemory.IsZero() {
		return packages, nil
	}
	return inMemory.Apply(packages), nil
}

func (repo *Repository) getPackage(column, value string) (*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE ` + column + ` = ? LIMIT 1`

	rows, err := repo.dbConn.Queryx(query, value)
	if err != nil {
		return nil, fmt.Errorf("getting package by %s %q: %w", column, value, err)
	}

	packages, err := repo.scanPackages(rows)
	if err != nil {
		return nil, err
	}
	if len(packages) == 0 {
		return nil, domain.ErrPackageNotFound
	}
	return packages[0], nil
}

// GetPackageBySlug retrieves the package published under slug.
func (repo *Repository) GetPackageBySlug(slug string) (*domain.Package, error) {
	if slug == "" {
		return nil, domain.ErrPackageNotFound
	}
	return repo.getPackage("slug", slug)
}

// GetPackageByID retrieves a package by its ID.
func (repo *Repository) GetPackageByID(id string) (*domain.Package, error) {
	return repo.getPackage("id", id)
}

// slugOwner returns the id of the package using slug, or "" when it is free.
func slugOwner(tx *sqlx.Tx, slug string) (string, error) {
	var owner string
	err := tx.Get(&owner, `SELECT id FROM packages WHERE slug = ?`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up slug %s: %w", slug, err)
	}
	return owner, nil
}

// resolveSlug keeps an explicit slug unless another package owns it, and derives one from the
// title otherwise, appending -2, -3, ... until it no longer collides with another package.
func resolveSlug(tx *sqlx.Tx, id, explicit, title string) (string, error) {
	if explicit != "" {
		owner, err := slugOwner(tx, explicit)
		if err != nil {
			return "", err
		}
		if owner != "" && owner != id {
			return "", fmt.Errorf("%w: %s", domain.ErrSlugTaken, explicit)
		}
		return explicit, nil
	}

	base := slug.Slugify(title)
	if base == "" {
		return "", nil
	}

	candidate := base
	for n := 2; ; n++ {
		owner, err := slugOwner(tx, candidate)
		if err != nil {
			return "", err
		}
		if owner == "" || owner == id {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
}

// UpsertPackage inserts pkg or fully replaces the stored row with the same ID.
// The generated ID and resolved slug are written back into pkg.
func (repo *Repository) UpsertPackage(pkg *domain.Package) (string, error) {
	if pkg.Type != "" && !pkg.Type.Valid() {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidPackageType, pkg.Type)
	}

	id := pkg.ID
	if id == "" {
		packageUUID, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("generating uuid: %w", err)
		}
		id = packageUUID.String()
	}

	tx, err := repo.dbConn.Beginx()
	if err != nil {
		return "", fmt.Errorf("starting upsert of %s: %w", id, err)
	}
	defer tx.Rollback()

	resolvedSlug, err := resolveSlug(tx, id, pkg.Slug, pkg.Title)
	if err != nil {
		return "", err
	}

	featured := 0
	if pkg.FeaturedHome {
		featured = 1
	}

	query := `INSERT INTO packages (` + packageColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			slug = excluded.slug,
			title = excluded.title,
			type = excluded.type,
			region = excluded.region,
			destination = excluded.destination,
			duration = excluded.duration,
			priceFrom = excluded.priceFrom,
			shortDescription = excluded.shortDescription,
			longDescription = excluded.longDescription,
			images = excluded.images,
			inclusions = excluded.inclusions,
			months = excluded.months,
			featuredHome = excluded.featuredHome`

	_, err = tx.Exec(query,
		id,
		sql.NullString{String: resolvedSlug, Valid: resolvedSlug != ""},
		pkg.Title,
		string(pkg.Type),
		pkg.Region,
		pkg.Destination,
		pkg.Duration,
		pkg.PriceFrom,
		pkg.ShortDescription,
		pkg.LongDescription,
		StringList(pkg.Images),
		StringList(pkg.Inclusions),
		StringList(pkg.Months),
		featured,
	)
	if err != nil {
		return "", fmt.Errorf("saving package %s: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing package %s: %w", id, err)
	}

	pkg.ID = id
	pkg.Slug = resolvedSlug
	return resolvedSlug, nil
}

// DeletePackage removes the package with the given ID. Missing rows are ignored.
func (repo *Repository) DeletePackage(id string) error {
	_, err := repo.dbConn.Exec(`DELETE FROM packages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting package %s: %w", id, err)
	}
	return nil
}
