package store

import "errors"

var (
	// ErrCurrencyMismatch rejects a line priced in a different currency than the
	// lines already in the cart.
	ErrCurrencyMismatch = errors.New("line item currency does not match cart currency")
	ErrInvalidLineItem  = errors.New("invalid line item")
	ErrQuantityLimit    = errors.New("line item quantity above limit")
	// ErrCheckoutStale is returned when the cart changed while a checkout session
	// was being created. The session URL is discarded.
	ErrCheckoutStale = errors.New("cart changed during checkout")
)
