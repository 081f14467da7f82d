package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/checkout"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/domain"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Persister is the durable slot behind the cart.
type Persister interface {
	Load(ctx context.Context) []domain.LineItem
	Save(ctx context.Context, items []domain.LineItem)
}

// SessionCreator turns line items into a hosted checkout URL.
type SessionCreator interface {
	CreateSession(ctx context.Context, items []domain.LineItem) (string, error)
}

// Store owns the cart. Mutations are serialised by writeMu and each one is
// persisted and announced before the next starts; mu only guards the state so
// listeners can read while being notified.
type Store struct {
	persister       Persister
	sessions        SessionCreator
	defaultCurrency string
	maxQuantity     int
	logger          *zap.Logger

	writeMu sync.Mutex

	mu          sync.RWMutex
	items       []domain.LineItem
	checkoutURL string

	// issued holds every URL handed out since the last change; concurrent
	// checkouts of the same contents each get their own session.
	issued   map[string]struct{}
	inFlight int
	version  uint64

	subsMu sync.Mutex
	subs   []subscription
	nextID int
	closed bool
}

type Option func(*Store)

// WithMaxQuantity caps the quantity a line can reach through AddItem.
func WithMaxQuantity(n int) Option {
	return func(s *Store) { s.maxQuantity = n }
}

// New builds the store and hydrates it from p.
func New(ctx context.Context, p Persister, sessions SessionCreator, defaultCurrency string, l *zap.Logger, opts ...Option) *Store {
	s := &Store{
		persister:       p,
		sessions:        sessions,
		defaultCurrency: defaultCurrency,
		logger:          logger.OrNop(l),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = p.Load(ctx)
	if s.items == nil {
		s.items = []domain.LineItem{}
	}
	s.logger.Info("cart hydrated", zap.Int("lines", len(s.items)))
	return s
}

// AddItem merges qty units of item into the cart. item.Quantity is ignored and
// qty below 1 counts as 1.
func (s *Store) AddItem(ctx context.Context, item domain.LineItem, qty int) error {
	if qty < 1 {
		qty = 1
	}
	if err := validate(item); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if len(s.items) > 0 && s.items[0].UnitPrice.CurrencyCode != item.UnitPrice.CurrencyCode {
		cur := s.items[0].UnitPrice.CurrencyCode
		s.mu.Unlock()
		return fmt.Errorf("%w: cart is in %s, got %s", ErrCurrencyMismatch, cur, item.UnitPrice.CurrencyCode)
	}
	i := s.indexLocked(item.VariantID)
	merged := qty
	if i >= 0 {
		merged += s.items[i].Quantity
	}
	if s.maxQuantity > 0 && merged > s.maxQuantity {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s would reach %d, limit %d", ErrQuantityLimit, item.VariantID, merged, s.maxQuantity)
	}
	if i >= 0 {
		s.items[i].Quantity = merged
	} else {
		item.Quantity = qty
		s.items = append(s.items, item)
	}
	ev := s.changedLocked(EventItemAdded, item.VariantID)
	s.mu.Unlock()

	s.commit(ctx, ev)
	return nil
}

// UpdateQuantity sets the quantity of a line; n <= 0 removes it. Unknown
// variants are ignored.
func (s *Store) UpdateQuantity(ctx context.Context, variantID string, n int) {
	if n <= 0 {
		s.RemoveItem(ctx, variantID)
		return
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := s.indexLocked(variantID)
	if i < 0 || s.items[i].Quantity == n {
		s.mu.Unlock()
		return
	}
	s.items[i].Quantity = n
	ev := s.changedLocked(EventItemUpdated, variantID)
	s.mu.Unlock()

	s.commit(ctx, ev)
}

func (s *Store) RemoveItem(ctx context.Context, variantID string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	i := s.indexLocked(variantID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.items = slices.Delete(s.items, i, i+1)
	ev := s.changedLocked(EventItemRemoved, variantID)
	s.mu.Unlock()

	s.commit(ctx, ev)
}

func (s *Store) ClearCart(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.items = []domain.LineItem{}
	ev := s.changedLocked(EventCleared, "")
	s.mu.Unlock()

	s.commit(ctx, ev)
}

// Reload replaces the in-memory cart with whatever the durable slot holds now.
// Another process sharing the slot may have written it; last write wins.
func (s *Store) Reload(ctx context.Context) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	items := s.persister.Load(ctx)
	if items == nil {
		items = []domain.LineItem{}
	}

	s.mu.Lock()
	s.items = items
	ev := s.changedLocked(EventHydrated, "")
	s.mu.Unlock()

	s.notify(ev)
}

// CompleteCheckout empties the cart once the commerce system reports that
// the session behind url was paid. It reports false and leaves the cart alone
// when url was not issued for the current contents.
func (s *Store) CompleteCheckout(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if _, ok := s.issued[url]; !ok {
		s.mu.Unlock()
		return false
	}
	s.items = []domain.LineItem{}
	ev := s.changedLocked(EventCleared, "")
	s.mu.Unlock()

	s.commit(ctx, ev)
	return true
}

// CreateCheckout asks for a checkout session for the current items. The cart
// is never modified on failure. When the cart changes while the request is in
// flight the new URL is dropped and ErrCheckoutStale returned.
func (s *Store) CreateCheckout(ctx context.Context) (string, error) {
	s.writeMu.Lock()
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		s.writeMu.Unlock()
		return "", checkout.ErrEmptyCart
	}
	items := slices.Clone(s.items)
	started := s.version
	s.inFlight++
	ev := s.eventLocked(EventCheckoutStarted, "")
	s.mu.Unlock()
	s.notify(ev)
	s.writeMu.Unlock()

	url, err := s.sessions.CreateSession(ctx, items)

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.inFlight--
	switch {
	case err != nil:
	case s.version != started:
		err = fmt.Errorf("%w: version %d, now %d", ErrCheckoutStale, started, s.version)
	default:
		s.checkoutURL = url
		if s.issued == nil {
			s.issued = make(map[string]struct{})
		}
		s.issued[url] = struct{}{}
	}
	kind := EventCheckoutReady
	if err != nil {
		kind = EventCheckoutFailed
	}
	ev = s.eventLocked(kind, "")
	s.mu.Unlock()

	s.notify(ev)

	log := logger.WithContext(ctx, s.logger)
	if err != nil {
		log.Warn("checkout not created", zap.Int("lines", len(items)), zap.Error(err))
		return "", err
	}
	log.Info("checkout ready", zap.Int("lines", len(items)), zap.Uint64("version", started))
	return url, nil
}

// TotalItems is the sum of all quantities.
func (s *Store) TotalItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalItems(s.items)
}

// TotalPrice is the exact sum of unit price times quantity, with two
// decimals, in the currency of the first line.
func (s *Store) TotalPrice() domain.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalPriceLocked()
}

func (s *Store) CheckoutURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkoutURL
}

func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a consistent copy of the cart.
func (s *Store) Snapshot() domain.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Cart{
		Items:       slices.Clone(s.items),
		CheckoutURL: s.checkoutURL,
		IsLoading:   s.inFlight > 0,
		TotalItems:  totalItems(s.items),
		TotalPrice:  s.totalPriceLocked(),
	}
}

// Subscribe registers fn for every later event. The returned func removes it
// and may be called more than once.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	if s.closed {
		return func() {}
	}
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscription{id: id, fn: fn})

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		s.subs = slices.DeleteFunc(s.subs, func(sub subscription) bool { return sub.id == id })
	}
}

// Close drops every subscriber. The cart keeps working but nobody is notified.
func (s *Store) Close() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.closed = true
	s.subs = nil
}

// changedLocked bumps the version and invalidates the checkout URL. Callers
// hold mu.
func (s *Store) changedLocked(kind EventKind, variantID string) Event {
	s.version++
	s.checkoutURL = ""
	s.issued = nil
	return s.eventLocked(kind, variantID)
}

func (s *Store) eventLocked(kind EventKind, variantID string) Event {
	return Event{Kind: kind, VariantID: variantID, TotalItems: totalItems(s.items), Version: s.version}
}

// commit persists the current items and announces ev. Callers hold writeMu.
func (s *Store) commit(ctx context.Context, ev Event) {
	s.mu.RLock()
	items := slices.Clone(s.items)
	s.mu.RUnlock()

	// a cancelled request must not abort the write of a change already applied
	s.persister.Save(context.WithoutCancel(ctx), items)
	s.notify(ev)
}

func (s *Store) notify(ev Event) {
	s.subsMu.Lock()
	subs := slices.Clone(s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(ev)
	}
}

func (s *Store) indexLocked(variantID string) int {
	return slices.IndexFunc(s.items, func(it domain.LineItem) bool { return it.VariantID == variantID })
}

func (s *Store) totalPriceLocked() domain.Money {
	if len(s.items) == 0 {
		return domain.Money{Amount: "0.00", CurrencyCode: s.defaultCurrency}
	}
	sum := decimal.Zero
	for _, it := range s.items {
		amount, err := decimal.NewFromString(it.UnitPrice.Amount)
		if err != nil {
			s.logger.Error("unpriceable line skipped", zap.String("variant_id", it.VariantID), zap.Error(err))
			continue
		}
		sum = sum.Add(amount.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return domain.Money{Amount: sum.StringFixed(2), CurrencyCode: s.items[0].UnitPrice.CurrencyCode}
}

func totalItems(items []domain.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

func validate(item domain.LineItem) error {
	if item.VariantID == "" {
		return fmt.Errorf("%w: missing variant id", ErrInvalidLineItem)
	}
	if item.UnitPrice.CurrencyCode == "" {
		return fmt.Errorf("%w: missing currency for %s", ErrInvalidLineItem, item.VariantID)
	}
	if _, err := decimal.NewFromString(item.UnitPrice.Amount); err != nil {
		return fmt.Errorf("%w: price %q for %s", ErrInvalidLineItem, item.UnitPrice.Amount, item.VariantID)
	}
	return nil
}
