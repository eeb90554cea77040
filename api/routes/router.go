package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/storefront-catalog/api/controllers"
	"github.com/angelmondragon/storefront-catalog/api/middleware"
	"github.com/angelmondragon/storefront-catalog/internal/cart"
	checkoutsvc "github.com/angelmondragon/storefront-catalog/internal/checkout"
	"github.com/angelmondragon/storefront-catalog/internal/items"
	"github.com/angelmondragon/storefront-catalog/internal/orders"
	"github.com/angelmondragon/storefront-catalog/internal/wizard"
	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/db"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/metrics"
	pkgredis "github.com/angelmondragon/storefront-catalog/pkg/redis"
)

// RedisStore covers what the request middleware needs from redis.
type RedisStore interface {
	middleware.ReplayStore
	pkgredis.Pinger
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisStore RedisStore,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	catalogSource controllers.CatalogSource,
	wizardService wizard.Service,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	itemsService items.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.HTTP.AllowedOrigins),
	)

	wizardPolicy := middleware.NewRateLimitPolicy("wizard", cfg.RateLimit.WizardWindow, cfg.RateLimit.WizardLimit)
	checkoutPolicy := middleware.NewRateLimitPolicy("checkout", cfg.RateLimit.CheckoutWindow, cfg.RateLimit.CheckoutLimit)
	idempotent := middleware.Idempotency(redisStore, middleware.ReplayTTL, logg)

	readiness := []controllers.ReadinessCheck{}
	if dbP != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "database", Pinger: dbP})
	}
	if redisStore != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Pinger: redisStore})
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness...))
	})
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/catalog", func(r chi.Router) {
			r.Get("/dictionary", controllers.CatalogDictionary(catalogSource, logg))
			r.Get("/groups", controllers.CatalogGroups(catalogSource, logg))
			r.Get("/facets", controllers.CatalogFacets(catalogSource, cfg.FeatureFlags.RootOnlyFacets, logg))
			r.Get("/search", controllers.CatalogSearch(catalogSource, logg))
			r.Get("/suggest", controllers.CatalogSuggest(catalogSource, logg))
		})

		r.Route("/wizard/sessions", func(r chi.Router) {
			r.Use(middleware.RateLimit(wizardPolicy, redisStore, logg))
			r.Post("/", controllers.WizardStart(wizardService, logg))
			r.Get("/{sessionId}", controllers.WizardGet(wizardService, logg))
			r.Post("/{sessionId}/select", controllers.WizardSelect(wizardService, logg))
			r.Post("/{sessionId}/back", controllers.WizardBack(wizardService, logg))
			r.Delete("/{sessionId}", controllers.WizardCancel(wizardService, logg))
			r.Post("/{sessionId}/cart", controllers.WizardAddToCart(wizardService, cartService, logg))
		})

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", controllers.CartCreate(cartService, logg))
			r.Get("/{cartId}", controllers.CartFetch(cartService, logg))
			r.Put("/{cartId}/lines/{lineId}", controllers.CartUpdateLine(cartService, logg))
			r.Delete("/{cartId}/lines/{lineId}", controllers.CartRemoveLine(cartService, logg))
			r.With(
				middleware.RateLimit(checkoutPolicy, redisStore, logg),
				middleware.Idempotency(redisStore, middleware.CheckoutReplayTTL, logg),
			).Post("/{cartId}/checkout", controllers.CartCheckout(checkoutService, logg))
		})

		r.Route("/owner", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			// catalog editing is owner-only; staff work the orders dashboard
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.MemberRoleOwner))
				r.Get("/items", controllers.OwnerItemsList(itemsService, logg))
				r.Route("/drafts", func(r chi.Router) {
					r.Get("/", controllers.OwnerDraftView(itemsService, logg))
					r.Delete("/", controllers.OwnerDraftDiscardAll(itemsService, logg))
					r.With(idempotent).Post("/commit", controllers.OwnerDraftCommit(itemsService, logg))
					r.Put("/deletes/{itemId}", controllers.OwnerDraftStageDelete(itemsService, logg))
					r.Put("/{ref}", controllers.OwnerDraftStage(itemsService, logg))
					r.Delete("/{ref}", controllers.OwnerDraftDiscard(itemsService, logg))
				})
			})
			r.Route("/orders", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.MemberRoleOwner, enums.MemberRoleStaff))
				r.Get("/", controllers.OwnerOrdersList(ordersService, logg))
				r.Get("/{orderId}", controllers.OwnerOrderDetail(ordersService, logg))
				r.With(idempotent).Post("/{orderId}/status", controllers.OwnerOrderToggle(ordersService, logg))
				r.Delete("/{orderId}", controllers.OwnerOrderPickup(ordersService, logg))
			})
		})
	})

	return r
}
