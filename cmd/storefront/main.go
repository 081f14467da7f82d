package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	c "github.com/ranchopanda/spice-trail-boutique-sub000/internal/cache"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/catalog"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/checkout"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/commerce"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/config"
	h "github.com/ranchopanda/spice-trail-boutique-sub000/internal/http"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/logger"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/persistence"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/poller"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/repository"
	"github.com/ranchopanda/spice-trail-boutique-sub000/internal/store"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx := context.Background()

	backend, closeBackend, err := openBackend(ctx, cfg, log)
	if err != nil {
		log.Fatal("storage backend unavailable", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer closeBackend()

	api := commerce.NewClient(commerce.Options{
		Endpoint:    cfg.CommerceAPIURL,
		AccessToken: cfg.CommerceAccessToken,
		Timeout:     cfg.CommerceTimeout,
		Logger:      log,
	})
	products := catalog.NewClient(api, log)
	bridge := checkout.NewBridge(api, log)

	adapter := persistence.NewAdapter(backend, cfg.CartStorageKey, log)
	cart := store.New(ctx, adapter, bridge, cfg.DefaultCurrency, log, store.WithMaxQuantity(h.MaxQuantity))
	defer cart.Close()

	runCtx, stopConsumers := context.WithCancel(ctx)
	defer stopConsumers()
	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(cart, log, cfg.CheckoutEventsTopic, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(runCtx)
	} else {
		log.Info("KAFKA_BROKERS not set, checkout completion consumer disabled")
	}

	shuttingDown := make(chan struct{})
	router := h.NewRouter(h.RouterConfig{
		RequestTimeout:      cfg.RequestTimeout,
		AllowedOrigins:      cfg.AllowedOrigins,
		CatalogDefaultLimit: cfg.CatalogDefaultLimit,
		ShuttingDown:        shuttingDown,
		Logger:              log,
	}, cart, products)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "storefront"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	// event streams never finish on their own
	srv.RegisterOnShutdown(func() { close(shuttingDown) })

	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")
	stopConsumers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// openBackend connects the durable slot selected by STORAGE_BACKEND.
func openBackend(ctx context.Context, cfg *config.Config, log *zap.Logger) (persistence.Backend, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		cache := c.NewRedisCache(redisClient)
		if err := cache.Ping(ctx); err != nil {
			redisClient.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("redis ping succeeded", zap.String("addr", cfg.RedisAddr))
		return cache, func() { redisClient.Close() }, nil

	case config.BackendMongo:
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(db)
		if err := repo.CreateIndexes(ctx); err != nil {
			log.Warn("mongo index creation failed", zap.Error(err))
		}
		log.Info("connected to MongoDB", zap.String("database", cfg.MongoDBName))
		return repo, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := repo.Close(closeCtx); err != nil {
				log.Warn("mongo disconnect failed", zap.Error(err))
			}
		}, nil

	case config.BackendMemory:
		log.Warn("in-memory cart storage, contents are lost on restart")
		return persistence.NewMemoryBackend(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
