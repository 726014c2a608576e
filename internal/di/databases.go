package di

import (
	"fmt"
	"path/filepath"

	"github.com/aristath/pricepoint/internal/config"
	"github.com/aristath/pricepoint/internal/database"
	"github.com/rs/zerolog"
)

// databaseDefs lists the databases in open order with their profiles
var databaseDefs = []struct {
	name    string
	profile database.DatabaseProfile
}{
	{database.NameCatalog, database.ProfileStandard},
	{database.NameLedger, database.ProfileLedger}, // Maximum safety for the append-only trail
	{database.NameCache, database.ProfileCache},   // Maximum speed for ephemeral data
}

// InitializeDatabases opens the three databases under cfg.DataDir and applies their schemas.
// Databases opened before a failure are closed.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}
	opened := make([]*database.DB, 0, len(databaseDefs))

	closeOpened := func() {
		for _, db := range opened {
			_ = db.Close()
		}
	}

	for _, def := range databaseDefs {
		db, err := database.New(database.Config{
			Path:    filepath.Join(cfg.DataDir, def.name+".db"),
			Profile: def.profile,
			Name:    def.name,
		})
		if err != nil {
			closeOpened()
			return nil, fmt.Errorf("failed to initialize %s database: %w", def.name, err)
		}
		opened = append(opened, db)

		if err := db.Migrate(); err != nil {
			closeOpened()
			return nil, fmt.Errorf("failed to apply schema to %s: %w", def.name, err)
		}
	}

	container.CatalogDB = opened[0]
	container.LedgerDB = opened[1]
	container.CacheDB = opened[2]

	log.Info().Int("databases", len(opened)).Msg("All databases initialized and schemas applied")

	return container, nil
}
