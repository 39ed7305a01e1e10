package domain

// StatsRepository defines the interface for retrieving statistics about the catalog.
type StatsRepository interface {
	// CountPackages returns the total number of packages in the catalog.
	CountPackages() (int, error)
	// CountFeatured returns the number of packages highlighted on the homepage.
	CountFeatured() (int, error)
	// CountByType returns the number of packages per package type.
	CountByType() (map[PackageType]int, error)
}

// CatalogStats summarizes the catalog for the admin dashboard.
type CatalogStats struct {
	Packages int                 `json:"packages"`
	Featured int                 `json:"featured"`
	ByType   map[PackageType]int `json:"byType"`
}
