package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"go.uber.org/zap"
)

var (
	// ErrCheckoutCreation wraps every failure to obtain a checkout URL.
	ErrCheckoutCreation = errors.New("checkout creation failed")
	ErrEmptyCart        = fmt.Errorf("%w: cart is empty, nothing to checkout", ErrCheckoutCreation)
)

const cartCreateMutation = `mutation CartCreate($input: CartInput!) {
  cartCreate(input: $input) {
    cart { id checkoutUrl }
    userErrors { field message }
  }
}`

// Querier is the commerce transport.
type Querier interface {
	Do(ctx context.Context, query string, variables map[string]any, out any) error
}

type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// RejectedError carries the reasons the commerce system refused the session,
// e.g. a variant that is no longer purchasable.
type RejectedError struct {
	UserErrors []UserError
}

func (e *RejectedError) Error() string {
	msgs := make([]string, 0, len(e.UserErrors))
	for _, ue := range e.UserErrors {
		msgs = append(msgs, ue.Message)
	}
	return fmt.Sprintf("%s: %s", ErrCheckoutCreation, strings.Join(msgs, "; "))
}

func (e *RejectedError) Unwrap() error { return ErrCheckoutCreation }

type Bridge struct {
	api    Querier
	logger *zap.Logger
}

func NewBridge(api Querier, l *zap.Logger) *Bridge {
	return &Bridge{api: api, logger: logger.OrNop(l)}
}

type cartLine struct {
	MerchandiseID string `json:"merchandiseId"`
	Quantity      int    `json:"quantity"`
}

type cartCreateResponse struct {
	CartCreate *struct {
		Cart *struct {
			ID          string `json:"id"`
			CheckoutURL string `json:"checkoutUrl"`
		} `json:"cart"`
		UserErrors []UserError `json:"userErrors"`
	} `json:"cartCreate"`
}

// CreateSession submits the line items as a new commerce cart and returns the
// hosted checkout URL.
func (b *Bridge) CreateSession(ctx context.Context, items []domain.LineItem) (string, error) {
	if len(items) == 0 {
		return "", ErrEmptyCart
	}

	lines := make([]cartLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, cartLine{MerchandiseID: item.VariantID, Quantity: item.Quantity})
	}

	log := logger.WithContext(ctx, b.logger)

	var resp cartCreateResponse
	vars := map[string]any{"input": map[string]any{"lines": lines}}
	if err := b.api.Do(ctx, cartCreateMutation, vars, &resp); err != nil {
		log.Warn("checkout request failed", zap.Int("lines", len(lines)), zap.Error(err))
		return "", fmt.Errorf("%w: %w", ErrCheckoutCreation, err)
	}

	if resp.CartCreate == nil {
		return "", fmt.Errorf("%w: empty cartCreate payload", ErrCheckoutCreation)
	}
	if len(resp.CartCreate.UserErrors) > 0 {
		rejected := &RejectedError{UserErrors: resp.CartCreate.UserErrors}
		log.Info("checkout rejected", zap.String("reason", rejected.Error()))
		return "", rejected
	}
	if resp.CartCreate.Cart == nil || resp.CartCreate.Cart.CheckoutURL == "" {
		return "", fmt.Errorf("%w: response carried no checkout url", ErrCheckoutCreation)
	}

	log.Info("checkout session created",
		zap.String("commerce_cart_id", resp.CartCreate.Cart.ID),
		zap.Int("lines", len(lines)))
	return resp.CartCreate.Cart.CheckoutURL, nil
}
