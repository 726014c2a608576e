// Package handlers provides HTTP handlers for products and their per-product actions.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/aristath/pricepoint/internal/modules/competitors"
	"github.com/aristath/pricepoint/internal/modules/dashboard"
	"github.com/aristath/pricepoint/internal/modules/history"
	"github.com/aristath/pricepoint/internal/modules/products"
	"github.com/aristath/pricepoint/internal/modules/recommendations"
	"github.com/aristath/pricepoint/internal/modules/sales"
	"github.com/aristath/pricepoint/internal/modules/users"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const (
	detailSalesLimit           = 30
	detailRecommendationsLimit = 5
)

// Handler handles product HTTP requests
type Handler struct {
	productService        *products.Service
	salesService          *sales.Service
	competitorService     *competitors.Service
	recommendationService *recommendations.Service
	dashboardService      *dashboard.Service
	log                   zerolog.Logger
}

// NewHandler creates a new products handler
func NewHandler(
	productService *products.Service,
	salesService *sales.Service,
	competitorService *competitors.Service,
	recommendationService *recommendations.Service,
	dashboardService *dashboard.Service,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		productService:        productService,
		salesService:          salesService,
		competitorService:     competitorService,
		recommendationService: recommendationService,
		dashboardService:      dashboardService,
		log:                   log.With().Str("handler", "products").Logger(),
	}
}

// ProductDetail is the response of GET /products/{id}
type ProductDetail struct {
	Product          *products.Product                `json:"product"`
	Sales            []sales.Sale                     `json:"sales"`
	PriceHistory     []history.Entry                  `json:"price_history"`
	CompetitorPrices []competitors.Price              `json:"competitor_prices"`
	Recommendations  []recommendations.Recommendation `json:"recommendations"`
}

// HandleList returns the user's products
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.productService.List(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"products": list,
		"count":    len(list),
	})
}

// HandleCreate adds a product
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req products.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.productService.Create(r.Context(), userID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, p)
}

// HandleGet returns a product with its recent sales, price history,
// competitor prices and latest recommendations
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productParams(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	p, err := h.productService.Get(ctx, userID, productID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	detail := ProductDetail{Product: p}
	if detail.Sales, err = h.salesService.ListRecent(ctx, userID, productID, detailSalesLimit); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if detail.PriceHistory, err = h.productService.History(ctx, userID, productID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if detail.CompetitorPrices, err = h.competitorService.ProductPrices(ctx, userID, productID); err != nil {
		h.writeServiceError(w, err)
		return
	}
	if detail.Recommendations, err = h.recommendationService.ListForProduct(ctx, productID, detailRecommendationsLimit); err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, detail)
}

// HandleRecommend runs the pricing engine and stores a new recommendation
func (h *Handler) HandleRecommend(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productParams(w, r)
	if !ok {
		return
	}

	rec, err := h.recommendationService.Generate(r.Context(), userID, productID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, rec)
}

// HandleUpdatePrice sets a new price, optionally accepting a recommendation
func (h *Handler) HandleUpdatePrice(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productParams(w, r)
	if !ok {
		return
	}

	var update products.PriceUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	change, err := h.recommendationService.ApplyPrice(r.Context(), userID, productID, update)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, change)
}

// HandleRecordSale records a sale and returns the remaining stock
func (h *Handler) HandleRecordSale(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productParams(w, r)
	if !ok {
		return
	}

	var req sales.RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.salesService.Record(r.Context(), userID, productID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, result)
}

// HandleGetFeatures returns the product's feature vector
func (h *Handler) HandleGetFeatures(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productParams(w, r)
	if !ok {
		return
	}

	snapshot, err := h.recommendationService.Features(r.Context(), userID, productID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, snapshot)
}

// HandleGetChart returns chart data (?sma=N sets the moving average window)
func (h *Handler) HandleGetChart(w http.ResponseWriter, r *http.Request) {
	userID, productID, ok := h.productParams(w, r)
	if !ok {
		return
	}

	period := dashboard.DefaultSMAPeriod
	if raw := r.URL.Query().Get("sma"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 2 {
			http.Error(w, "Invalid sma parameter", http.StatusBadRequest)
			return
		}
		period = parsed
	}

	chart, err := h.dashboardService.Chart(r.Context(), userID, productID, period)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, chart)
}

// productParams reads the user from the context and the product id from the path.
// It writes the error response and returns false when either is missing or invalid.
func (h *Handler) productParams(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, ok := users.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, 0, false
	}

	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid product id", http.StatusBadRequest)
		return 0, 0, false
	}

	return userID, productID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, products.ErrInvalidPrice),
		errors.Is(err, products.ErrInvalidInput),
		errors.Is(err, sales.ErrInvalidSale):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, products.ErrNotFound), errors.Is(err, recommendations.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, recommendations.ErrInvalidStatusTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		h.log.Error().Err(err).Msg("Request failed")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
