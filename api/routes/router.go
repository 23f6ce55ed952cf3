package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storefront-checkout/api/controllers"
	"github.com/angelmondragon/storefront-checkout/api/middleware"
	"github.com/angelmondragon/storefront-checkout/internal/catalog"
	checkoutsvc "github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/coupons"
	"github.com/angelmondragon/storefront-checkout/internal/shipping"
	"github.com/angelmondragon/storefront-checkout/internal/wishlist"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/redis"
)

// Services groups the domain services mounted on the router.
type Services struct {
	Catalog  catalog.Service
	Coupons  coupons.Service
	Shipping shipping.Service
	Checkout checkoutsvc.Service
	Wishlist wishlist.Service
}

// Infra groups the shared clients the router needs. Gatherer may be nil when
// metrics are disabled.
type Infra struct {
	DB       controllers.Pinger
	Redis    *redis.Client
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	// A nil *redis.Client must not reach the middleware as a non-nil interface.
	var redisPinger controllers.Pinger
	var idemStore redis.IdempotencyStore
	var limiter redis.RateLimiter
	if infra.Redis != nil {
		redisPinger = infra.Redis
		idemStore = infra.Redis
		limiter = infra.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, infra.DB, redisPinger))
	})

	if cfg.Metrics.Enabled && infra.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(infra.Gatherer, promhttp.HandlerOpts{}))
	}

	guestPolicy := middleware.NewRateLimitPolicy(
		"guest_quote",
		cfg.Shipping.GuestRateWindow,
		cfg.Shipping.GuestRateLimit,
	)
	guestLimiter := middleware.RateLimit(guestPolicy, limiter, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Get("/products/{productId}", controllers.GetProduct(svc.Catalog, logg))
			r.Post("/pricing/quote", controllers.PriceQuote(svc.Catalog, logg))
			r.Post("/coupons/validate", controllers.ValidateCoupon(svc.Coupons, logg))
			r.With(guestLimiter).Post("/shipping/guest-quote", controllers.GuestQuote(svc.Shipping, logg))
			r.With(middleware.Idempotency(idemStore, cfg.Checkout.IdempotencyTTL, logg)).
				Post("/checkout", controllers.Checkout(svc.Checkout, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(cfg.JWT, logg))
			r.Post("/shipping/quote", controllers.ShippingQuote(svc.Shipping, logg))
			r.Get("/wishlist", controllers.ListWishlist(svc.Wishlist, logg))
			r.Put("/wishlist/{productId}", controllers.SaveWishlistItem(svc.Wishlist, logg))
			r.Delete("/wishlist/{productId}", controllers.RemoveWishlistItem(svc.Wishlist, logg))
		})
	})

	return r
}
