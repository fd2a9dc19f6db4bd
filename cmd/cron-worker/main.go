package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/freshbasket/storefront-backend/internal/barcodes"
	"github.com/freshbasket/storefront-backend/internal/cron"
	"github.com/freshbasket/storefront-backend/internal/loyalty"
	"github.com/freshbasket/storefront-backend/pkg/config"
	"github.com/freshbasket/storefront-backend/pkg/db"
	"github.com/freshbasket/storefront-backend/pkg/instance"
	"github.com/freshbasket/storefront-backend/pkg/logger"
	"github.com/freshbasket/storefront-backend/pkg/metrics"
	"github.com/freshbasket/storefront-backend/pkg/migrate"
	"github.com/freshbasket/storefront-backend/pkg/outbox"
	"github.com/freshbasket/storefront-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker:"+envOrLocal(cfg.App.Env)), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"interval":    cfg.Cron.Interval.String(),
		"instance":    instance.GetID(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	ledger, err := loyalty.NewService(loyalty.ServiceParams{
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
		Ledger:     ledger,
		Outbox:     emitter,
		Config:     cfg.Loyalty,
		Metrics:    metrics.NewBarcodeMetrics(prometheus.DefaultRegisterer),
		Logger:     logg,
	})
	if err != nil {
		return nil, err
	}

	expiry, err := cron.NewBarcodeExpiryJob(cron.BarcodeExpiryJobParams{
		Logger:   logg,
		Barcodes: barcodeSvc,
	})
	if err != nil {
		return nil, err
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(conn),
		Retention:  cfg.Outbox.Retention,
	})
	if err != nil {
		return nil, err
	}
	return cron.NewRegistry(expiry, retention)
}

func envOrLocal(env string) string {
	if env == "" {
		return "local"
	}
	return env
}
