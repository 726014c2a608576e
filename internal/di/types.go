// Package di wires pricepoint's databases, repositories, services and jobs.
package di

import (
	"errors"

	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/database"
	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/dashboard"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/aristath/pricepoint/internal/modules/pricing"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/recommendations"
	"github.com/aristath/pricepoint/internal/modules/sales"
	"github.com/aristath/pricepoint/internal/modules/users"
	"github.com/aristath/pricepoint/internal/reliability"
	"github.com/aristath/pricepoint/internal/scheduler"
)

// Container holds all dependencies for the application.
// It is created by Wire and handed to the server.
type Container struct {
	// Databases
	CatalogDB *database.DB // Users, products, competitors, recommendations
	LedgerDB  *database.DB // Append-only sales, price history, competitor prices
	CacheDB   *database.DB // Feature snapshots and job history

	// Events
	EventBus     *events.Bus
	EventManager *events.Manager

	// Repositories
	UserRepo            *users.Repository
	ProductRepo         *products.Repository
	HistoryRepo         *history.Repository
	SalesRepo           *sales.Repository
	CompetitorRepo      *competitors.Repository
	CompetitorPriceRepo *competitors.PriceRepository
	RecommendationRepo  *recommendations.Repository
	FeatureRepo         *cache.FeatureRepository
	JobHistoryRepo      *cache.JobHistoryRepository

	// Services
	TokenManager          *users.TokenManager
	UserService           *users.Service
	ProductService        *products.Service
	SalesService          *sales.Service
	CompetitorService     *competitors.Service
	RecommendationService *recommendations.Service
	DashboardService      *dashboard.Service
	Optimizer             *pricing.Optimizer
	BackupService         *reliability.BackupService // nil when backups are disabled

	// Background jobs
	Scheduler *scheduler.Scheduler

	stopListeners func()
}

// JobInstances holds the registered jobs for manual triggering
type JobInstances struct {
	RefreshRecommendations scheduler.Job
	CacheCleanup           scheduler.Job
	Maintenance            scheduler.Job
	Backup                 scheduler.Job // nil when backups are disabled
}

// Databases returns every open database in catalog, ledger, cache order
func (c *Container) Databases() []*database.DB {
	var dbs []*database.DB
	for _, db := range []*database.DB{c.CatalogDB, c.LedgerDB, c.CacheDB} {
		if db != nil {
			dbs = append(dbs, db)
		}
	}
	return dbs
}

// Close detaches event listeners and closes every database.
// Stop the scheduler first so no job is mid-query.
func (c *Container) Close() error {
	if c.stopListeners != nil {
		c.stopListeners()
		c.stopListeners = nil
	}

	var errs []error
	for _, db := range c.Databases() {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
