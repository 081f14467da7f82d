package http

import (
	"context"
	"net/http"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	store   CartStore
	timeout time.Duration
	logger  *zap.Logger
}

func NewCheckoutHandler(s CartStore, timeout time.Duration, l *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		store:   s,
		timeout: timeout,
		logger:  logger.OrNop(l),
	}
}

type CheckoutResponseDTO struct {
	CheckoutURL string `json:"checkout_url"`
}

// POST /api/v1/cart/checkout
func (h *CheckoutHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	url, err := h.store.CreateCheckout(ctx)
	if err != nil {
		logger.WithContext(ctx, h.logger).Info("checkout request rejected",
			zap.String("request_id", getRequestID(r.Context())),
			zap.Error(err))
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{CheckoutURL: url})
}
