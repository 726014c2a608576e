package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/pricepoint/internal/cache"
	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/competitors"
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

type testServer struct {
	router    *chi.Mux
	service   *recommendations.Service
	userID    int64
	productID int64
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	dbs := testingpkg.NewTestDatabases(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	manager := events.NewManager(events.NewBus(), log)

	historyRepo := history.NewRepository(dbs.Ledger.Conn(), log)
	productService := products.NewService(products.NewRepository(dbs.Catalog.Conn(), log), historyRepo, manager, log)
	service := recommendations.NewService(
		recommendations.NewRepository(dbs.Catalog.Conn(), log),
		productService,
		sales.NewRepository(dbs.Ledger.Conn(), log),
		competitors.NewPriceRepository(dbs.Ledger.Conn(), log),
		historyRepo,
		cache.NewFeatureRepository(dbs.Cache.Conn()),
		pricing.NewOptimizer(log),
		manager,
		log,
	)

	userID := testingpkg.InsertUser(t, dbs.Catalog.Conn(), "ann")
	productID := testingpkg.InsertProduct(t, dbs.Catalog.Conn(), testingpkg.ProductFixture{UserID: userID, CurrentPrice: 20, StockLevel: 5})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(users.WithUserID(req.Context(), userID)))
		})
	})
	NewHandler(service, log).RegisterRoutes(r)

	return &testServer{router: r, service: service, userID: userID, productID: productID}
}

func (s *testServer) do(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHandleList(t *testing.T) {
	s := setupServer(t)

	for i := 0; i < 3; i++ {
		_, err := s.service.Generate(context.Background(), s.userID, s.productID)
		require.NoError(t, err)
	}

	w := s.do(http.MethodGet, "/recommendations?limit=2")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Recommendations []recommendations.Recommendation `json:"recommendations"`
		Count           int                              `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, 2, body.Count)
	assert.Equal(t, s.productID, body.Recommendations[0].ProductID)

	w = s.do(http.MethodGet, "/recommendations?limit=zero")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleReject(t *testing.T) {
	s := setupServer(t)

	rec, err := s.service.Generate(context.Background(), s.userID, s.productID)
	require.NoError(t, err)

	w := s.do(http.MethodPost, "/recommendations/"+rec.UUID+"/reject")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var rejected recommendations.Recommendation
	require.NoError(t, json.NewDecoder(w.Body).Decode(&rejected))
	assert.Equal(t, pricing.StatusRejected, rejected.Status)

	w = s.do(http.MethodPost, "/recommendations/"+rec.UUID+"/reject")
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/recommendations/does-not-exist/reject")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
