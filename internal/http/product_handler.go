package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"
)

type ProductLister interface {
	FetchProducts(ctx context.Context, limit int) ([]domain.Product, error)
}

type ProductHandler struct {
	catalog      ProductLister
	defaultLimit int
	timeout      time.Duration
}

func NewProductHandler(catalog ProductLister, defaultLimit int, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		catalog:      catalog,
		defaultLimit: defaultLimit,
		timeout:      timeout,
	}
}

// ProductsResponse separates an empty catalog from a failed fetch: the
// former is a 200 with Empty set.
type ProductsResponse struct {
	Products []domain.Product `json:"products"`
	Empty    bool             `json:"empty"`
}

// GET /api/v1/products?limit=N
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	limit := h.defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.FetchProducts(ctx, limit)
	if err != nil {
		handleError(w, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	respondJSON(w, http.StatusOK, &ProductsResponse{Products: products, Empty: len(products) == 0})
}
