package domain

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrPackageNotFound is returned when no package matches the requested slug or id.
	ErrPackageNotFound = errors.New("package not found")
	// ErrSlugTaken is returned when an explicit slug already belongs to another package.
	ErrSlugTaken = errors.New("slug already used by another package")
	// ErrCorruptField is returned when a stored list column cannot be decoded.
	ErrCorruptField = errors.New("corrupt stored field")
	// ErrInvalidPackageType is returned when a package type is neither nacional nor internacional.
	ErrInvalidPackageType = errors.New("invalid package type")
)

// PackageType separates domestic offers from international ones.
type PackageType string

const (
	Nacional      PackageType = "nacional"
	Internacional PackageType = "internacional"
)

// Valid reports whether the type is one of the known package types.
func (t PackageType) Valid() bool {
	return t == Nacional || t == Internacional
}

// PackageRepository defines the interface for managing travel packages.
// Packages are written with full-replacement upserts keyed by ID; there is no partial update.
type PackageRepository interface {
	// GetPackages retrieves every package matching the filter. A zero filter returns the full catalog.
	GetPackages(filter PackageFilter) ([]*Package, error)

	// GetPackageBySlug retrieves the package published under the given slug.
	// It returns ErrPackageNotFound if there is none.
	GetPackageBySlug(slug string) (*Package, error)

	// GetPackageByID retrieves a package by its ID.
	// It returns ErrPackageNotFound if there is none.
	GetPackageByID(id string) (*Package, error)

	// UpsertPackage inserts the package or replaces the stored one with the same ID.
	// Missing IDs and slugs are generated, and the resolved slug is returned.
	UpsertPackage(pkg *Package) (string, error)

	// DeletePackage removes the package with the given ID. Deleting an unknown ID is not an error.
	DeletePackage(id string) error
}

// Package is a travel offer published in the catalog.
type Package struct {
	ID               string      `json:"id"`
	Slug             string      `json:"slug"`
	Title            string      `json:"title"`
	Type             PackageType `json:"type"`
	Region           string      `json:"region"`
	Destination      string      `json:"destination"`
	Duration         int         `json:"duration"`  // Length of the trip in days.
	PriceFrom        float64     `json:"priceFrom"` // Starting price in BRL.
	ShortDescription string      `json:"shortDescription"`
	LongDescription  string      `json:"longDescription"`
	Images           []string    `json:"images"`     // Upload paths, in display order.
	Inclusions       []string    `json:"inclusions"` // What the price covers (flights, hotel, ...).
	Months           []string    `json:"months"`     // Month names in which the trip is offered.
	FeaturedHome     bool        `json:"featuredHome"`
}

// Normalize replaces nil list fields with empty slices so they encode as [] instead of null.
func (p *Package) Normalize() {
	if p.Images == nil {
		p.Images = []string{}
	}
	if p.Inclusions == nil {
		p.Inclusions = []string{}
	}
	if p.Months == nil {
		p.Months = []string{}
	}
}

// PackageFilter narrows the catalog the way the public packages page does.
// Zero values disable the corresponding criterion.
type PackageFilter struct {
	Type         PackageType // Only packages of this type.
	Region       string      // Exact region match.
	Month        string      // Packages offered in this month.
	MinDuration  int         // Minimum duration in days.
	MaxDuration  int         // Maximum duration in days.
	Term         string      // Case-insensitive search over title and destination.
	FeaturedOnly bool        // Only packages highlighted on the homepage.
}

// IsZero reports whether the filter has no criteria set.
func (f PackageFilter) IsZero() bool {
	return f == PackageFilter{}
}

// Matches reports whether the package satisfies every criterion of the filter.
func (f PackageFilter) Matches(p *Package) bool {
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if f.Region != "" && p.Region != f.Region {
		return false
	}
	if f.Month != "" && !slices.Contains(p.Months, f.Month) {
		return false
	}
	if f.MinDuration > 0 && p.Duration < f.MinDuration {
		return false
	}
	if f.MaxDuration > 0 && p.Duration > f.MaxDuration {
		return false
	}
	if f.FeaturedOnly && !p.FeaturedHome {
		return false
	}
	if f.Term != "" {
		haystack := strings.ToLower(p.Title + " " + p.Destination)
		if !strings.Contains(haystack, strings.ToLower(f.Term)) {
			return false
		}
	}
	return true
}

// Apply returns the packages that match the filter, preserving their order.
func (f PackageFilter) Apply(pkgs []*Package) []*Package {
	matched := make([]*Package, 0, len(pkgs))
	for _, p := range pkgs {
		if f.Matches(p) {
			matched = append(matched, p)
		}
	}
	return matched
}

// Regions returns the distinct, non-empty regions of the packages in first-seen order.
func Regions(pkgs []*Package) []string {
	regions := make([]string, 0)
	for _, p := range pkgs {
		if p.Region != "" && !slices.Contains(regions, p.Region) {
			regions = append(regions, p.Region)
		}
	}
	return regions
}
