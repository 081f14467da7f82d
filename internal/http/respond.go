package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/catalog"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/checkout"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/store"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError maps domain errors to an HTTP status and a machine-readable code.
func handleError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, store.ErrInvalidLineItem):
		httpStatus = http.StatusBadRequest
		code = "invalid_line_item"
	case errors.Is(err, store.ErrQuantityLimit):
		httpStatus = http.StatusBadRequest
		code = "invalid_quantity"
	case errors.Is(err, store.ErrCurrencyMismatch):
		httpStatus = http.StatusConflict
		code = "currency_mismatch"
	case errors.Is(err, store.ErrCheckoutStale):
		httpStatus = http.StatusConflict
		code = "cart_changed"
	case errors.Is(err, checkout.ErrEmptyCart):
		httpStatus = http.StatusUnprocessableEntity
		code = "empty_cart"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	case errors.Is(err, checkout.ErrCheckoutCreation):
		httpStatus = http.StatusBadGateway
		code = "checkout_failed"
	case errors.Is(err, catalog.ErrCatalogFetch):
		httpStatus = http.StatusBadGateway
		code = "catalog_unavailable"
	default:
		httpStatus = http.StatusInternalServerError
		code = "internal_error"
	}

	respondError(w, httpStatus, code, err.Error())
}
