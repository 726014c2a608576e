package di

import (
	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/recommendations"
	"github.com/aristath/pricepoint/internal/modules/sales"
	"github.com/aristath/pricepoint/internal/modules/users"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates every repository on the container's databases
func InitializeRepositories(container *Container, log zerolog.Logger) {
	catalog := container.CatalogDB.Conn()
	ledger := container.LedgerDB.Conn()
	cacheConn := container.CacheDB.Conn()

	// catalog.db
	container.UserRepo = users.NewRepository(catalog, log)
	container.ProductRepo = products.NewRepository(catalog, log)
	container.CompetitorRepo = competitors.NewRepository(catalog, log)
	container.RecommendationRepo = recommendations.NewRepository(catalog, log)

	// ledger.db
	container.HistoryRepo = history.NewRepository(ledger, log)
	container.SalesRepo = sales.NewRepository(ledger, log)
	container.CompetitorPriceRepo = competitors.NewPriceRepository(ledger, log)

	// cache.db
	container.FeatureRepo = cache.NewFeatureRepository(cacheConn)
	container.JobHistoryRepo = cache.NewJobHistoryRepository(cacheConn)

	log.Debug().Msg("Repositories initialized")
}
