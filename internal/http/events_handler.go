package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/store"
	"go.uber.org/zap"
)

const (
	eventBuffer       = 32
	keepAliveInterval = 15 * time.Second
)

// EventsHandler streams cart events to browsers as server-sent events so a
// badge can refresh its count without polling.
type EventsHandler struct {
	store     CartStore
	keepAlive time.Duration
	done      <-chan struct{}
	logger    *zap.Logger
}

// NewEventsHandler ends every open stream once done is closed, so server
// shutdown does not wait for browsers to hang up.
func NewEventsHandler(s CartStore, done <-chan struct{}, l *zap.Logger) *EventsHandler {
	return &EventsHandler{
		store:     s,
		keepAlive: keepAliveInterval,
		done:      done,
		logger:    logger.OrNop(l),
	}
}

// GET /api/v1/cart/events
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	// streams outlive the server write timeout
	_ = rc.SetWriteDeadline(time.Time{})

	events := make(chan store.Event, eventBuffer)
	unsubscribe := h.store.Subscribe(func(e store.Event) {
		select {
		case events <- e:
		default:
			// slow reader; it resyncs from total_items on the next event
		}
	})
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// the current count, so the badge is right before the first change
	snap := h.store.Snapshot()
	if err := h.write(w, rc, "snapshot", map[string]int{"total_items": snap.TotalItems}); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-h.done:
			return
		case e := <-events:
			if err := h.write(w, rc, string(e.Kind), e); err != nil {
				logger.WithContext(r.Context(), h.logger).Debug("event stream closed", zap.Error(err))
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func (h *EventsHandler) write(w http.ResponseWriter, rc *http.ResponseController, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return rc.Flush()
}
