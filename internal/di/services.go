package di

import (
	"context"
	"fmt"

	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/config"
	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/dashboard"
	"github.com/aristath/pricepoint/internal/modules/pricing"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/recommendations"
	"github.com/aristath/pricepoint/internal/modules/sales"
	"github.com/aristath/pricepoint/internal/modules/users"
	"github.com/aristath/pricepoint/internal/reliability"
	"github.com/rs/zerolog"
)

// InitializeServices creates the event bus and every service.
// The S3 backup client is only built when backups are enabled.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.EventBus = events.NewBus()
	container.EventManager = events.NewManager(container.EventBus, log)

	container.TokenManager = users.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	container.UserService = users.NewService(container.UserRepo, container.TokenManager, log)

	container.ProductService = products.NewService(
		container.ProductRepo,
		container.HistoryRepo,
		container.EventManager,
		log,
	)
	container.SalesService = sales.NewService(
		container.SalesRepo,
		container.ProductService,
		container.EventManager,
		log,
	)
	container.CompetitorService = competitors.NewService(
		container.CompetitorRepo,
		container.CompetitorPriceRepo,
		container.ProductService,
		container.EventManager,
		log,
	)

	container.Optimizer = pricing.NewOptimizer(log)
	container.RecommendationService = recommendations.NewService(
		container.RecommendationRepo,
		container.ProductService,
		container.SalesRepo,
		container.CompetitorPriceRepo,
		container.HistoryRepo,
		container.FeatureRepo,
		container.Optimizer,
		container.EventManager,
		log,
	)
	container.DashboardService = dashboard.NewService(
		container.ProductService,
		container.SalesRepo,
		container.HistoryRepo,
		container.CompetitorService,
		container.RecommendationService,
		log,
	)

	// Feature snapshots go stale as soon as a product's inputs change
	container.stopListeners = cache.RegisterInvalidationListeners(container.EventBus, container.FeatureRepo, log)

	if cfg.Backup != nil && cfg.Backup.Enabled {
		store, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.BackupService = reliability.NewBackupService(store, container.Databases(), cfg.DataDir, log)
	}

	log.Debug().Bool("backups", container.BackupService != nil).Msg("Services initialized")

	return nil
}
