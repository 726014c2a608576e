package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileDB(t *testing.T, name string, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func tableNames(t *testing.T, db *DB) []string {
	t.Helper()

	rows, err := db.Conn().Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}

func TestMigrate_CreatesTables(t *testing.T) {
	tests := []struct {
		name     string
		profile  DatabaseProfile
		expected []string
	}{
		{NameCatalog, ProfileStandard, []string{"competitors", "price_recommendations", "products", "users"}},
		{NameLedger, ProfileLedger, []string{"competitor_prices", "price_history", "sales"}},
		{NameCache, ProfileCache, []string{"feature_snapshots", "job_history"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFileDB(t, tt.name, tt.profile)

			require.NoError(t, db.Migrate())
			assert.Equal(t, tt.expected, tableNames(t, db))

			// Running again is a no-op
			require.NoError(t, db.Migrate())
		})
	}
}

func TestMigrate_UnknownName(t *testing.T) {
	db := newFileDB(t, "scratch", ProfileStandard)

	require.NoError(t, db.Migrate())
	assert.Empty(t, tableNames(t, db))
}

func TestNew_ProfilePragmas(t *testing.T) {
	tests := []struct {
		profile     DatabaseProfile
		synchronous int
	}{
		{ProfileLedger, 2},
		{ProfileStandard, 1},
		{ProfileCache, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.profile), func(t *testing.T) {
			db := newFileDB(t, "pragmas", tt.profile)

			var journal string
			require.NoError(t, db.Conn().QueryRow("PRAGMA journal_mode").Scan(&journal))
			assert.Equal(t, "wal", journal)

			var sync int
			require.NoError(t, db.Conn().QueryRow("PRAGMA synchronous").Scan(&sync))
			assert.Equal(t, tt.synchronous, sync)

			var fk int
			require.NoError(t, db.Conn().QueryRow("PRAGMA foreign_keys").Scan(&fk))
			assert.Equal(t, 1, fk)
		})
	}
}

func TestNew_DefaultsToStandardProfile(t *testing.T) {
	db := newFileDB(t, "defaults", "")
	assert.Equal(t, ProfileStandard, db.Profile())
	assert.True(t, filepath.IsAbs(db.Path()))
}

func TestWithTransaction(t *testing.T) {
	db := newFileDB(t, NameLedger, ProfileLedger)
	require.NoError(t, db.Migrate())

	count := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM sales").Scan(&n))
		return n
	}
	insert := func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO sales (product_id, quantity, price, sold_at) VALUES (1, 1, 10.0, 0)")
		return err
	}

	t.Run("commit", func(t *testing.T) {
		require.NoError(t, WithTransaction(db.Conn(), insert))
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on error", func(t *testing.T) {
		boom := errors.New("boom")
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx))
			return boom
		})
		require.ErrorIs(t, err, boom)
		assert.Equal(t, 1, count())
	})

	t.Run("rollback on panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			require.NoError(t, insert(tx))
			panic("unexpected")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
		assert.Equal(t, 1, count())
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(nil, insert))
	})
}

func TestSnapshotTo(t *testing.T) {
	db := newFileDB(t, NameCatalog, ProfileStandard)
	require.NoError(t, db.Migrate())

	_, err := db.Conn().Exec(
		"INSERT INTO users (username, email, password_hash, created_at) VALUES ('ann', 'ann@example.com', 'x', 0)")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.SnapshotTo(context.Background(), dest))

	snap, err := New(Config{Path: dest, Name: "snapshot"})
	require.NoError(t, err)
	defer snap.Close()

	var username string
	require.NoError(t, snap.Conn().QueryRow("SELECT username FROM users").Scan(&username))
	assert.Equal(t, "ann", username)
}

func TestQuickCheck(t *testing.T) {
	db := newFileDB(t, NameLedger, ProfileLedger)
	require.NoError(t, db.Migrate())

	require.NoError(t, db.QuickCheck(context.Background()))

	require.NoError(t, db.Close())
	err := db.QuickCheck(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quick check failed for ledger")
}

func TestGetStats(t *testing.T) {
	db := newFileDB(t, NameCache, ProfileCache)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.WALCheckpoint(""))

	stats, err := db.GetStats()
	require.NoError(t, err)

	assert.Greater(t, stats.SizeBytes, int64(0))
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
