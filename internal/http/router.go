package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout      time.Duration
	AllowedOrigins      []string
	CatalogDefaultLimit int
	// ShuttingDown, once closed, ends open event streams.
	ShuttingDown        <-chan struct{}
	Logger              *zap.Logger
}

// NewRouter wires the storefront API. The event stream is mounted outside the
// request timeout and compression middleware.
func NewRouter(cfg RouterConfig, s CartStore, catalog ProductLister) http.Handler {
	cartHandler := NewCartHandler(s, cfg.RequestTimeout)
	checkoutHandler := NewCheckoutHandler(s, cfg.RequestTimeout, cfg.Logger)
	productHandler := NewProductHandler(catalog, cfg.CatalogDefaultLimit, cfg.RequestTimeout)
	eventsHandler := NewEventsHandler(s, cfg.ShuttingDown, cfg.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/cart/events", eventsHandler.Stream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Use(middleware.Compress(5, "application/json"))

			r.Get("/products", productHandler.Get)

			r.Get("/cart", cartHandler.GetCart)
			r.Delete("/cart", cartHandler.ClearCart)
			r.Post("/cart/reload", cartHandler.Reload)
			r.Post("/cart/checkout", checkoutHandler.CreateCheckout)
			r.Post("/cart/items", cartHandler.AddItem)
			r.Put("/cart/items/{variant_id}", cartHandler.UpdateQuantity)
			r.Delete("/cart/items/{variant_id}", cartHandler.RemoveItem)
		})
	})

	return r
}
