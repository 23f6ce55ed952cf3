package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-checkout/api/routes"
	"github.com/angelmondragon/storefront-checkout/internal/catalog"
	checkoutsvc "github.com/angelmondragon/storefront-checkout/internal/checkout"
	"github.com/angelmondragon/storefront-checkout/internal/coupons"
	"github.com/angelmondragon/storefront-checkout/internal/shipping"
	"github.com/angelmondragon/storefront-checkout/internal/wishlist"
	"github.com/angelmondragon/storefront-checkout/pkg/config"
	"github.com/angelmondragon/storefront-checkout/pkg/db"
	"github.com/angelmondragon/storefront-checkout/pkg/instance"
	"github.com/angelmondragon/storefront-checkout/pkg/logger"
	"github.com/angelmondragon/storefront-checkout/pkg/metrics"
	"github.com/angelmondragon/storefront-checkout/pkg/migrate"
	"github.com/angelmondragon/storefront-checkout/pkg/pricing"
	"github.com/angelmondragon/storefront-checkout/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	var gatherer prometheus.Gatherer
	var checkoutMetrics *metrics.CheckoutMetrics
	if cfg.Metrics.Enabled {
		checkoutMetrics = metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer)
		gatherer = prometheus.DefaultGatherer
	}

	services, err := buildServices(cfg, logg, dbClient, redisClient, checkoutMetrics)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, routes.Infra{DB: dbClient, Redis: redisClient, Gatherer: gatherer}, services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case serveErr := <-errCh:
		if errors.Is(serveErr, http.ErrServerClosed) {
			return nil
		}
		return serveErr
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, m *metrics.CheckoutMetrics) (routes.Services, error) {
	engine := pricing.NewEngine()

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogSvc, err := catalog.NewService(catalogRepo, engine, cfg.Pricing.Currency)
	if err != nil {
		return routes.Services{}, err
	}

	couponRepo := coupons.NewRepository(dbClient.DB())
	couponSvc, err := coupons.NewService(couponRepo, m, logg)
	if err != nil {
		return routes.Services{}, err
	}

	shippingSvc, err := shipping.NewService(shipping.NewRepository(dbClient.DB()), redisClient, shipping.Config{
		DefaultCountry: cfg.Shipping.DefaultCountry,
		Currency:       cfg.Pricing.Currency,
		CacheTTL:       cfg.Shipping.RateCacheTTL,
	}, m, logg)
	if err != nil {
		return routes.Services{}, err
	}

	payments, err := checkoutsvc.NewHostedPageInitiator(cfg.Checkout.PaymentBaseURL)
	if err != nil {
		return routes.Services{}, err
	}

	checkoutSvc, err := checkoutsvc.NewService(checkoutsvc.Deps{
		Tx:          dbClient,
		Catalog:     catalogSvc,
		CatalogRepo: catalogRepo,
		Coupons:     couponSvc,
		CouponRepo:  couponRepo,
		Shipping:    shippingSvc,
		Orders:      checkoutsvc.NewRepository(dbClient.DB()),
		Payments:    payments,
		Engine:      engine,
		Metrics:     m,
		Logger:      logg,
		Currency:    cfg.Pricing.Currency,
		Tolerance:   cfg.Pricing.Tolerance,
	})
	if err != nil {
		return routes.Services{}, err
	}

	wishlistSvc, err := wishlist.NewService(wishlist.NewRepository(dbClient.DB()), catalogRepo)
	if err != nil {
		return routes.Services{}, err
	}

	return routes.Services{
		Catalog:  catalogSvc,
		Coupons:  couponSvc,
		Shipping: shippingSvc,
		Checkout: checkoutSvc,
		Wishlist: wishlistSvc,
	}, nil
}
