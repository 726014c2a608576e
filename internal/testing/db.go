// Package testing provides database helpers and fixtures for pricepoint tests.
package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/pricepoint/internal/database"
)

// profiles maps schema names to the profile production uses for them
var profiles = map[string]database.DatabaseProfile{
	database.NameCatalog: database.ProfileStandard,
	database.NameLedger:  database.ProfileLedger,
	database.NameCache:   database.ProfileCache,
}

// NewTestDB creates a temporary file-backed SQLite database with the schema for name applied.
// Returns the database and a cleanup function that closes it and removes its files.
// The cleanup function is idempotent.
//
// Supported schema names are "catalog", "ledger" and "cache".
// Unknown names produce an empty database.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "pricepoint_test_"+name+"_*")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %v", err)
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(dir, name+".db"),
		Profile: profiles[name],
		Name:    name,
	})
	if err != nil {
		_ = os.RemoveAll(dir)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.RemoveAll(dir)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		if err := os.RemoveAll(dir); err != nil {
			t.Logf("Warning: Failed to remove temporary directory %s: %v", dir, err)
		}
	}
}

// Databases bundles the three application databases for tests that span them
type Databases struct {
	Catalog *database.DB
	Ledger  *database.DB
	Cache   *database.DB
}

// NewTestDatabases creates all application databases and registers their cleanup with t
func NewTestDatabases(t *testing.T) *Databases {
	t.Helper()

	catalog, cleanupCatalog := NewTestDB(t, database.NameCatalog)
	t.Cleanup(cleanupCatalog)
	ledger, cleanupLedger := NewTestDB(t, database.NameLedger)
	t.Cleanup(cleanupLedger)
	cache, cleanupCache := NewTestDB(t, database.NameCache)
	t.Cleanup(cleanupCache)

	return &Databases{Catalog: catalog, Ledger: ledger, Cache: cache}
}

// All returns the databases in catalog, ledger, cache order
func (d *Databases) All() []*database.DB {
	return []*database.DB{d.Catalog, d.Ledger, d.Cache}
}
