// Package domain defines the core data structures of the travel catalog.
// It contains the primary domain models, such as Package, Banner and Log,
// as well as the repository interfaces that define the contracts for data persistence.
//
// This package serves as the central point for application-wide types and business rules,
// ensuring a clean separation between the catalog logic and its implementation details,
// such as the database, the HTTP surface or the file system. By defining interfaces for
// repositories, the domain package remains independent of the data storage technology.
package domain
