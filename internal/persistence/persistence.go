package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrNoValue is returned by a Backend when nothing is stored under the key.
var ErrNoValue = errors.New("no value stored")

const defaultTimeout = 2 * time.Second

// Backend is a durable string-keyed slot.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Adapter reads and writes the cart line items under one fixed key.
// It never reports backend or decoding failures to callers: durability is
// best-effort and the in-memory cart stays authoritative.
type Adapter struct {
	backend Backend
	key     string
	timeout time.Duration
	logger  *zap.Logger
}

func NewAdapter(backend Backend, key string, l *zap.Logger) *Adapter {
	return &Adapter{
		backend: backend,
		key:     key,
		timeout: defaultTimeout,
		logger:  logger.OrNop(l).With(zap.String("storage_key", key)),
	}
}

// Load returns the last saved items, or an empty slice when the slot is
// missing, unreadable or holds an invalid shape.
func (a *Adapter) Load(ctx context.Context) []domain.LineItem {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	data, err := a.backend.Get(ctx, a.key)
	if errors.Is(err, ErrNoValue) {
		return []domain.LineItem{}
	}
	if err != nil {
		a.logger.Warn("cart load failed, starting empty", zap.Error(err))
		return []domain.LineItem{}
	}

	items, err := Decode(data)
	if err != nil {
		a.logger.Warn("stored cart discarded", zap.Error(err))
		return []domain.LineItem{}
	}
	return items
}

// Save stores items. Failures are logged and dropped.
func (a *Adapter) Save(ctx context.Context, items []domain.LineItem) {
	if items == nil {
		items = []domain.LineItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		a.logger.Warn("cart encode failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	if err := a.backend.Set(ctx, a.key, data); err != nil {
		a.logger.Warn("cart save failed", zap.Error(err), zap.Int("lines", len(items)))
	}
}

// Decode parses a stored slot and checks every line is usable.
func Decode(data []byte) ([]domain.LineItem, error) {
	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if items == nil {
		return []domain.LineItem{}, nil
	}

	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		if item.VariantID == "" {
			return nil, fmt.Errorf("line %d: missing variant id", i)
		}
		if _, dup := seen[item.VariantID]; dup {
			return nil, fmt.Errorf("line %d: duplicate variant %s", i, item.VariantID)
		}
		seen[item.VariantID] = struct{}{}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("line %d: quantity %d", i, item.Quantity)
		}
		if _, err := decimal.NewFromString(item.UnitPrice.Amount); err != nil {
			return nil, fmt.Errorf("line %d: bad amount %q", i, item.UnitPrice.Amount)
		}
		// carts are single-currency
		if item.UnitPrice.CurrencyCode == "" {
			return nil, fmt.Errorf("line %d: missing currency", i)
		}
		if item.UnitPrice.CurrencyCode != items[0].UnitPrice.CurrencyCode {
			return nil, fmt.Errorf("line %d: currency %s, cart is in %s", i, item.UnitPrice.CurrencyCode, items[0].UnitPrice.CurrencyCode)
		}
	}
	return items, nil
}
