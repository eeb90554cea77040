package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-catalog/api/routes"
	"github.com/angelmondragon/storefront-catalog/internal/cart"
	"github.com/angelmondragon/storefront-catalog/internal/checkout"
	"github.com/angelmondragon/storefront-catalog/internal/inventory"
	"github.com/angelmondragon/storefront-catalog/internal/items"
	"github.com/angelmondragon/storefront-catalog/internal/orders"
	"github.com/angelmondragon/storefront-catalog/internal/snapshot"
	"github.com/angelmondragon/storefront-catalog/internal/wizard"
	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/db"
	"github.com/angelmondragon/storefront-catalog/pkg/instance"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/metrics"
	"github.com/angelmondragon/storefront-catalog/pkg/migrate"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
	"github.com/angelmondragon/storefront-catalog/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	requireResource(ctx, logg, "database driver", migrate.UseDriver(cfg.DB.Driver))

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	emitter := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	itemsRepo := items.NewRepository(dbClient.DB())

	cache, err := snapshot.NewCache(itemsRepo, redisClient, cfg.Catalog.SnapshotTTL, logg)
	requireResource(ctx, logg, "snapshot cache", err)

	itemsService, err := items.NewService(itemsRepo, dbClient, redisClient, emitter, cache, cfg.Catalog.DraftTTL, logg)
	requireResource(ctx, logg, "items service", err)

	wizardService, err := wizard.NewService(redisClient, cache, cfg.Catalog.WizardSessionTTL, cfg.FeatureFlags.RootOnlyFacets, logg)
	requireResource(ctx, logg, "wizard service", err)

	cartService, err := cart.NewService(redisClient, itemsService, cfg.Catalog.CartTTL, logg)
	requireResource(ctx, logg, "cart service", err)

	stockStore := inventory.NewGormStockStore(dbClient.DB())
	reserver, err := inventory.NewReserver(stockStore, cfg.Catalog.ReserveMaxRetries, metrics.NewReservationMetrics(registry), logg)
	requireResource(ctx, logg, "stock reserver", err)

	ordersRepo := orders.NewRepository(dbClient.DB())
	checkoutService, err := checkout.NewService(dbClient, cartService, ordersRepo, reserver, stockStore, emitter, logg)
	requireResource(ctx, logg, "checkout service", err)

	ordersService, err := orders.NewService(ordersRepo, dbClient, emitter, logg)
	requireResource(ctx, logg, "orders service", err)

	router := routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		metrics.NewHTTPMetrics(registry),
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cache,
		wizardService,
		cartService,
		checkoutService,
		itemsService,
		ordersService,
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logg.Info(logCtx, "starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(logCtx, "api server stopped unexpectedly", err)
			stop()
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error(logCtx, "graceful shutdown failed", err)
	}
	logg.Info(logCtx, "api server stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
