package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vaiven-app/vaiven-backend/internal/catalog"
	"github.com/vaiven-app/vaiven-backend/internal/confirmation"
	"github.com/vaiven-app/vaiven-backend/internal/cron"
	"github.com/vaiven-app/vaiven-backend/internal/delivery"
	"github.com/vaiven-app/vaiven-backend/internal/webhooks"
	"github.com/vaiven-app/vaiven-backend/pkg/config"
	"github.com/vaiven-app/vaiven-backend/pkg/db"
	"github.com/vaiven-app/vaiven-backend/pkg/logger"
	"github.com/vaiven-app/vaiven-backend/pkg/metrics"
	"github.com/vaiven-app/vaiven-backend/pkg/migrate"
	"github.com/vaiven-app/vaiven-backend/pkg/redis"
	"github.com/vaiven-app/vaiven-backend/pkg/token"
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

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()

	subscriptionRepo := webhooks.NewRepository(gormDB)
	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	notifier, err := webhooks.NewNotifier(subscriptionRepo, cfg.Webhook, logg, webhookMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook notifier", err)
		os.Exit(1)
	}
	notifier.Start()
	defer notifier.Stop()

	confirmationService, err := confirmation.NewService(
		confirmation.NewRepository(gormDB),
		delivery.NewRepository(gormDB),
		catalog.NewRepository(gormDB),
		dbClient,
		token.NewGenerator(),
		notifier,
		cfg.Confirmation,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create confirmation service", err)
		os.Exit(1)
	}

	issuanceJob, err := cron.NewConfirmationIssuanceJob(cron.ConfirmationIssuanceJobParams{
		Logger:        logg,
		Confirmations: confirmationService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create issuance job", err)
		os.Exit(1)
	}
	reminderJob, err := cron.NewConfirmationReminderJob(cron.ConfirmationReminderJobParams{
		Logger:        logg,
		Confirmations: confirmationService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder job", err)
		os.Exit(1)
	}
	expiryJob, err := cron.NewConfirmationExpiryJob(cron.ConfirmationExpiryJobParams{
		Logger:        logg,
		Confirmations: confirmationService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expiry job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cfg.Cron.LockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(issuanceJob, reminderJob, expiryJob),
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
