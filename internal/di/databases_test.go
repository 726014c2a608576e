package di

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aristath/pricepoint/internal/database"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDatabases(t *testing.T) {
	cfg := testConfig(t)

	container, err := InitializeDatabases(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	assert.Equal(t, database.ProfileStandard, container.CatalogDB.Profile())
	assert.Equal(t, database.ProfileLedger, container.LedgerDB.Profile())
	assert.Equal(t, database.ProfileCache, container.CacheDB.Profile())

	var count int
	require.NoError(t, container.LedgerDB.Conn().QueryRow("SELECT COUNT(*) FROM sales").Scan(&count))
	assert.Zero(t, count)
}

func TestInitializeDatabases_BadDataDir(t *testing.T) {
	cfg := testConfig(t)
	blocker := filepath.Join(cfg.DataDir, "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	cfg.DataDir = blocker

	_, err := InitializeDatabases(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog")
}
