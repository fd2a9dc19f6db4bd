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

	"github.com/freshbasket/storefront-backend/api/routes"
	"github.com/freshbasket/storefront-backend/internal/barcodes"
	"github.com/freshbasket/storefront-backend/internal/cart"
	"github.com/freshbasket/storefront-backend/internal/catalog"
	"github.com/freshbasket/storefront-backend/internal/loyalty"
	"github.com/freshbasket/storefront-backend/internal/pricing"
	"github.com/freshbasket/storefront-backend/pkg/config"
	"github.com/freshbasket/storefront-backend/pkg/db"
	"github.com/freshbasket/storefront-backend/pkg/instance"
	"github.com/freshbasket/storefront-backend/pkg/logger"
	"github.com/freshbasket/storefront-backend/pkg/metrics"
	"github.com/freshbasket/storefront-backend/pkg/migrate"
	"github.com/freshbasket/storefront-backend/pkg/outbox"
	"github.com/freshbasket/storefront-backend/pkg/redis"
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

	dbClient, err := db.Open(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	services, err := buildServices(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to build services", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
		"dialect":  dbClient.Dialect(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:   cfg,
			Logger:   logg,
			DB:       dbClient,
			Redis:    redisClient,
			Gatherer: prometheus.DefaultGatherer,
			Catalog:  services.catalog,
			Cart:     services.cart,
			Loyalty:  services.loyalty,
			Barcodes: services.barcodes,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}

	logg.Info(ctx, "api server shutting down gracefully")
}

type serviceSet struct {
	catalog  catalog.Service
	loyalty  loyalty.Service
	barcodes barcodes.Service
	cart     cart.Service
}

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*serviceSet, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), logg)
	if err != nil {
		return nil, err
	}

	loyaltySvc, err := loyalty.NewService(loyalty.ServiceParams{
		Repository:   loyalty.NewRepository(conn),
		Tx:           dbClient,
		Outbox:       emitter,
		Logger:       logg,
		DefaultLimit: cfg.Loyalty.TransactionsLimit,
	})
	if err != nil {
		return nil, err
	}

	barcodeSvc, err := barcodes.NewService(barcodes.ServiceParams{
		Repository: barcodes.NewRepository(conn),
		Tx:         dbClient,
		Ledger:     loyaltySvc,
		Outbox:     emitter,
		Config:     cfg.Loyalty,
		Metrics:    metrics.NewBarcodeMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	calc, err := pricing.NewCalculator(cfg.Pricing)
	if err != nil {
		return nil, err
	}
	cartSvc, err := cart.NewService(cart.ServiceParams{
		Repository: cart.NewRepository(conn),
		Tx:         dbClient,
		Products:   catalogSvc,
		Barcodes:   barcodeSvc,
		Pricing:    calc,
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	return &serviceSet{
		catalog:  catalogSvc,
		loyalty:  loyaltySvc,
		barcodes: barcodeSvc,
		cart:     cartSvc,
	}, nil
}
