package db

import (
	"os"
	"testing"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "test_*.db")
	if err != nil {
		t.Fatalf("os.CreateTemp() failed: %v", err)
	}
	tempFile.Close()

	dbConn, err := New(tempFile.Name())
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}

	repo := NewCatalogRepo(dbConn, nil)

	teardown := func() {
		repo.Close()
		os.Remove(tempFile.Name())
	}

	return repo, teardown
}

func testPackage(t *testing.T, repo *Repository, pkg *domain.Package) string {
	t.Helper()

	slug, err := repo.UpsertPackage(pkg)
	if err != nil {
		t.Fatalf("upserting package %q: %v", pkg.Title, err)
	}
	return slug
}
