// Package db provides the database layer for the travel catalog.
// It encapsulates all interactions with the underlying SQLite database, managing
// persistence for packages, the current banner pointer, admin accounts, audit logs
// and catalog statistics.
//
// This package is responsible for:
//   - Establishing and managing database connections (`db.go`).
//   - Defining database-specific data structures that map to SQL table schemas.
//   - Implementing repository interfaces (e.g., `PackageRepository`, `BannerRepository`)
//     to perform CRUD operations.
//   - Handling data conversion between domain structs and database rows, including the
//     use of `sql.Null*` types for columns that older databases left empty.
//   - Managing versioned database migrations (`migrations/`).
//   - Providing common database utility types (`types.go`).
package db
