package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/dashboard"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/aristath/pricepoint/internal/modules/pricing"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/recommendations"
	"github.com/aristath/pricepoint/internal/modules/sales"
	"github.com/aristath/pricepoint/internal/modules/users"
	testingpkg "github.com/aristath/pricepoint/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()

	dbs := testingpkg.NewTestDatabases(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	manager := events.NewManager(events.NewBus(), log)

	historyRepo := history.NewRepository(dbs.Ledger.Conn(), log)
	salesRepo := sales.NewRepository(dbs.Ledger.Conn(), log)
	priceRepo := competitors.NewPriceRepository(dbs.Ledger.Conn(), log)
	productService := products.NewService(products.NewRepository(dbs.Catalog.Conn(), log), historyRepo, manager, log)
	service := dashboard.NewService(
		productService, salesRepo, historyRepo,
		competitors.NewService(competitors.NewRepository(dbs.Catalog.Conn(), log), priceRepo, productService, manager, log),
		recommendations.NewService(
			recommendations.NewRepository(dbs.Catalog.Conn(), log),
			productService, salesRepo, priceRepo, historyRepo,
			cache.NewFeatureRepository(dbs.Cache.Conn()),
			pricing.NewOptimizer(log), manager, log,
		),
		log,
	)

	userID := testingpkg.InsertUser(t, dbs.Catalog.Conn(), "ann")
	testingpkg.InsertProduct(t, dbs.Catalog.Conn(), testingpkg.ProductFixture{UserID: userID, CurrentPrice: 25})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(users.WithUserID(req.Context(), userID)))
		})
	})
	NewHandler(service, log).RegisterRoutes(r)
	return r
}

func get(router http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandleGetStats(t *testing.T) {
	router := setupRouter(t)

	w := get(router, "/dashboard")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats dashboard.Stats
	require.NoError(t, json.NewDecoder(w.Body).Decode(&stats))
	assert.Equal(t, 1, stats.ProductCount)
	assert.Equal(t, 25.0, stats.AveragePrice)
	assert.Len(t, stats.DailySales, dashboard.DefaultDays)
}

func TestHandleGetData(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		path   string
		status int
		days   int
	}{
		{"/dashboard/data", http.StatusOK, dashboard.DefaultDays},
		{"/dashboard/data?days=7", http.StatusOK, 7},
		{"/dashboard/data?days=abc", http.StatusBadRequest, 0},
		{"/dashboard/data?days=0", http.StatusBadRequest, 0},
		{"/dashboard/data?days=1000", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(router, tt.path)
			require.Equal(t, tt.status, w.Code, w.Body.String())
			if tt.status != http.StatusOK {
				return
			}

			var data dashboard.DailyData
			require.NoError(t, json.NewDecoder(w.Body).Decode(&data))
			assert.Equal(t, tt.days, data.Days)
			assert.Len(t, data.DailySales, tt.days)
		})
	}
}
