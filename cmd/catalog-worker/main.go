package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	consumer "github.com/angelmondragon/storefront-catalog/internal/consumers/catalog"
	"github.com/angelmondragon/storefront-catalog/internal/items"
	"github.com/angelmondragon/storefront-catalog/internal/snapshot"
	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/db"
	"github.com/angelmondragon/storefront-catalog/pkg/instance"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/metrics"
	"github.com/angelmondragon/storefront-catalog/pkg/migrate"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox/idempotency"
	"github.com/angelmondragon/storefront-catalog/pkg/pubsub"
	"github.com/angelmondragon/storefront-catalog/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "catalog-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "catalog-worker"

	logg = logger.New(logger.Options{
		ServiceName: "catalog-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	requireResource(ctx, logg, "database driver", migrate.UseDriver(cfg.DB.Driver))

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleConsumer, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	subscription := pubsubClient.CatalogSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "catalog subscription", errors.New("subscription not configured"))
	}

	guard, err := idempotency.NewGuard(redisClient, cfg.Outbox.IdempotencyTTL, idempotency.DefaultLease)
	requireResource(ctx, logg, "idempotency guard", err)

	cache, err := snapshot.NewCache(items.NewRepository(dbClient.DB()), redisClient, cfg.Catalog.SnapshotTTL, logg)
	requireResource(ctx, logg, "snapshot cache", err)

	router, err := consumer.NewRouter(cache, logg)
	requireResource(ctx, logg, "catalog router", err)

	service, err := consumer.NewService(subscription, router, guard, metrics.NewJobMetrics(prometheus.DefaultRegisterer), logg)
	requireResource(ctx, logg, "catalog worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	// Warm the snapshot so the first storefront read after a deploy is a hit.
	if _, err := cache.Rebuild(runCtx); err != nil {
		logg.Warn(logg.WithField(runCtx, "error", err.Error()), "initial snapshot rebuild failed")
	}
	logg.Info(runCtx, "catalog worker ready")

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return service.Run(gctx) })
	g.Go(func() error { return metrics.Serve(gctx, cfg.Service.MetricsAddr, prometheus.DefaultGatherer, logg) })
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "catalog worker failed", err)
		os.Exit(1)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
