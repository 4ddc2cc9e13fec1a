package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/vaiven-app/vaiven-backend/api/controllers"
	"github.com/vaiven-app/vaiven-backend/api/routes"
	"github.com/vaiven-app/vaiven-backend/internal/carrier"
	"github.com/vaiven-app/vaiven-backend/internal/cart"
	"github.com/vaiven-app/vaiven-backend/internal/catalog"
	"github.com/vaiven-app/vaiven-backend/internal/checkout"
	"github.com/vaiven-app/vaiven-backend/internal/confirmation"
	"github.com/vaiven-app/vaiven-backend/internal/delivery"
	"github.com/vaiven-app/vaiven-backend/internal/orders"
	"github.com/vaiven-app/vaiven-backend/internal/tracking"
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
	tokenGen := token.NewGenerator()

	cartRepo := cart.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)
	catalogRepo := catalog.NewRepository(gormDB)
	carrierRepo := carrier.NewRepository(gormDB)
	deliveryRepo := delivery.NewRepository(gormDB)
	trackingRepo := tracking.NewRepository(gormDB)
	confirmationRepo := confirmation.NewRepository(gormDB)
	subscriptionRepo := webhooks.NewRepository(gormDB)

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	notifier, err := webhooks.NewNotifier(subscriptionRepo, cfg.Webhook, logg, webhookMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook notifier", err)
		os.Exit(1)
	}
	notifier.Start()
	defer notifier.Stop()

	cartService, err := cart.NewService(cartRepo, dbClient, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	checkoutService, err := checkout.NewService(
		cartRepo,
		orderRepo,
		catalogRepo,
		func(tx *gorm.DB) checkout.StockDecrementer { return catalogRepo.WithTx(tx) },
		dbClient,
		notifier,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	eligibility, err := carrier.NewEligibilityChecker(carrierRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create eligibility checker", err)
		os.Exit(1)
	}

	trackingService, err := tracking.NewService(trackingRepo, deliveryRepo, tokenGen)
	if err != nil {
		logg.Error(context.Background(), "failed to create tracking service", err)
		os.Exit(1)
	}

	confirmationService, err := confirmation.NewService(
		confirmationRepo,
		deliveryRepo,
		catalogRepo,
		dbClient,
		tokenGen,
		notifier,
		cfg.Confirmation,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create confirmation service", err)
		os.Exit(1)
	}

	deliveryService, err := delivery.NewService(
		deliveryRepo,
		orderRepo,
		catalogRepo,
		eligibility,
		trackingService,
		confirmationService,
		dbClient,
		notifier,
		cfg.Delivery,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery service", err)
		os.Exit(1)
	}

	subscriptionService, err := webhooks.NewSubscriptionService(subscriptionRepo, tokenGen)
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(cfg, logg, routes.Controllers{
		Health:       controllers.NewHealthController(dbClient, redisClient, logg),
		Cart:         controllers.NewCartController(cartService, logg),
		Checkout:     controllers.NewCheckoutController(checkoutService, logg),
		Orders:       controllers.NewOrderController(orderRepo, logg),
		Delivery:     controllers.NewDeliveryController(deliveryService, logg),
		Tracking:     controllers.NewTrackingController(trackingService, logg),
		Confirmation: controllers.NewConfirmationController(confirmationService, logg),
		Webhooks:     controllers.NewWebhookController(subscriptionService, logg),
	})
	router.Handle("/metrics", promhttp.Handler())

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "shutting down api server", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
