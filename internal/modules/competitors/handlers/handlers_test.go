package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/pricepoint/internal/events"
	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/users"
	testingpkg "github.com/aristath/pricepoint/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router    http.Handler
	userID    int64
	productID int64
}

func setupServer(t *testing.T) *testServer {
	t.Helper()

	dbs := testingpkg.NewTestDatabases(t)
	log := zerolog.New(nil).Level(zerolog.Disabled)
	manager := events.NewManager(events.NewBus(), log)

	productService := products.NewService(
		products.NewRepository(dbs.Catalog.Conn(), log),
		history.NewRepository(dbs.Ledger.Conn(), log),
		manager, log,
	)
	service := competitors.NewService(
		competitors.NewRepository(dbs.Catalog.Conn(), log),
		competitors.NewPriceRepository(dbs.Ledger.Conn(), log),
		productService, manager, log,
	)
	handler := NewHandler(service, log)

	userID := testingpkg.InsertUser(t, dbs.Catalog.Conn(), "ann")
	productID := testingpkg.InsertProduct(t, dbs.Catalog.Conn(), testingpkg.ProductFixture{UserID: userID, CurrentPrice: 20})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(users.WithUserID(req.Context(), userID)))
		})
	})
	handler.RegisterRoutes(r)

	return &testServer{router: r, userID: userID, productID: productID}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestCompetitorRoutes(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/competitors", map[string]string{"name": "Alpha Mart"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created competitors.Competitor
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	w = s.do(t, http.MethodGet, "/competitors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Competitors []competitors.Competitor `json:"competitors"`
		Count       int                      `json:"count"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, "Alpha Mart", list.Competitors[0].Name)

	w = s.do(t, http.MethodPost, fmt.Sprintf("/competitors/%d/prices", created.ID), map[string]interface{}{
		"product_id": s.productID, "price": 18.99,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var price competitors.Price
	require.NoError(t, json.NewDecoder(w.Body).Decode(&price))
	assert.Equal(t, 18.99, price.Price)
}

func TestCompetitorRoutes_Errors(t *testing.T) {
	s := setupServer(t)

	w := s.do(t, http.MethodPost, "/competitors", map[string]string{"name": "Alpha Mart"})
	require.Equal(t, http.StatusCreated, w.Code)
	var created competitors.Competitor
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"missing name", http.MethodPost, "/competitors", map[string]string{"name": ""}, http.StatusBadRequest},
		{"bad id", http.MethodPost, "/competitors/abc/prices", map[string]interface{}{"product_id": s.productID, "price": 1}, http.StatusBadRequest},
		{"unknown competitor", http.MethodPost, "/competitors/999/prices", map[string]interface{}{"product_id": s.productID, "price": 1}, http.StatusNotFound},
		{"unknown product", http.MethodPost, fmt.Sprintf("/competitors/%d/prices", created.ID), map[string]interface{}{"product_id": 999, "price": 1}, http.StatusNotFound},
		{"negative price", http.MethodPost, fmt.Sprintf("/competitors/%d/prices", created.ID), map[string]interface{}{"product_id": s.productID, "price": -3}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}
