package store

type EventKind string

const (
	EventItemAdded       EventKind = "item_added"
	EventItemUpdated     EventKind = "item_updated"
	EventItemRemoved     EventKind = "item_removed"
	EventCleared         EventKind = "cleared"
	EventHydrated        EventKind = "hydrated"
	EventCheckoutStarted EventKind = "checkout_started"
	EventCheckoutReady   EventKind = "checkout_ready"
	EventCheckoutFailed  EventKind = "checkout_failed"
)

// Event describes one change of the cart. VariantID is set for line-level kinds.
type Event struct {
	Kind       EventKind `json:"kind"`
	VariantID  string    `json:"variant_id,omitempty"`
	TotalItems int       `json:"total_items"`
	Version    uint64    `json:"version"`
}

// Listener receives events synchronously, in mutation order. It may read from
// the store but must not mutate it.
type Listener func(Event)

type subscription struct {
	id int
	fn Listener
}
