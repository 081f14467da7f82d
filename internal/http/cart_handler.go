package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/store"
)

// MaxQuantity is the most units of one variant a cart line may hold.
const MaxQuantity = 99

// CartStore is the part of store.Store the handlers drive.
type CartStore interface {
	AddItem(ctx context.Context, item domain.LineItem, qty int) error
	UpdateQuantity(ctx context.Context, variantID string, n int)
	RemoveItem(ctx context.Context, variantID string)
	ClearCart(ctx context.Context)
	Reload(ctx context.Context)
	CreateCheckout(ctx context.Context) (string, error)
	Snapshot() domain.Cart
	Subscribe(fn store.Listener) (unsubscribe func())
}

type CartHandler struct {
	store   CartStore
	timeout time.Duration
}

func NewCartHandler(s CartStore, timeout time.Duration) *CartHandler {
	return &CartHandler{
		store:   s,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	VariantID string            `json:"variant_id"`
	Product   domain.ProductRef `json:"product"`
	UnitPrice domain.Money      `json:"unit_price"`
	Quantity  int               `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int `json:"quantity"`
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.store.Snapshot())
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity > MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	item := domain.LineItem{
		VariantID: req.VariantID,
		Product:   req.Product,
		UnitPrice: req.UnitPrice,
	}
	// missing or non-positive quantities are clamped to one by the store
	if err := h.store.AddItem(r.Context(), item, req.Quantity); err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.store.Snapshot())
}

// PUT /api/v1/cart/items/{variant_id}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	variantID := variantIDParam(r)
	if variantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id is required")
		return
	}

	var req UpdateQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}
	if *req.Quantity > MaxQuantity {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be at most 99")
		return
	}

	h.store.UpdateQuantity(r.Context(), variantID, *req.Quantity)
	respondJSON(w, http.StatusOK, h.store.Snapshot())
}

// DELETE /api/v1/cart/items/{variant_id}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	variantID := variantIDParam(r)
	if variantID == "" {
		respondError(w, http.StatusBadRequest, "invalid_variant_id", "variant_id is required")
		return
	}

	h.store.RemoveItem(r.Context(), variantID)
	respondJSON(w, http.StatusOK, h.store.Snapshot())
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.store.ClearCart(r.Context())
	respondJSON(w, http.StatusOK, h.store.Snapshot())
}

// POST /api/v1/cart/reload
func (h *CartHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.store.Reload(ctx)
	respondJSON(w, http.StatusOK, h.store.Snapshot())
}

// variantIDParam reads the path parameter. Variant ids are gids containing
// slashes, so clients send them escaped.
func variantIDParam(r *http.Request) string {
	raw := chi.URLParam(r, "variant_id")
	id, err := url.PathUnescape(raw)
	if err != nil {
		return ""
	}
	return id
}
