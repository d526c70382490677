package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/app"
	"carpool/internal/backend"
	"carpool/internal/config"
	"carpool/internal/domain"
	"carpool/internal/events"
	"carpool/internal/gateway"
	"carpool/internal/handler"
	"carpool/internal/logging"
	internalRedis "carpool/internal/redis"
	"carpool/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()
	logger := logging.NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so downstream clients can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", "error", err)
		} else {
			logger.Info("New Relic enabled", "app", cfg.NewRelic.AppName)
		}
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis", "addr", cfg.Redis.Addr)

	// Wire dependencies.
	server, cleanup := wireServer(redisClient, nrApp, cfg, logger)
	defer cleanup()

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	logger.Info("server exited")
}

// wireServer wires all dependencies and returns the HTTP server along with a
// cleanup func for background components.
func wireServer(redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config, logger *slog.Logger) (*http.Server, func()) {
	// Redis-backed stores.
	lockStore := internalRedis.NewLockStore(redisClient)
	reviewedStore := internalRedis.NewReviewedStore(redisClient)

	// Ride platform API client.
	api := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.Token, cfg.Backend.Timeout)

	// Payment gateway. The hosted bridge is always constructed so its
	// callback routes work; Stripe replaces it as the checkout adapter when
	// configured.
	hosted := gateway.NewHostedCheckout()
	var adapter gateway.Adapter = hosted
	if cfg.Gateway.Provider == "stripe" && cfg.Gateway.StripeKey != "" {
		adapter = gateway.NewStripeAdapter(cfg.Gateway.StripeKey, nil)
		logger.Info("using Stripe gateway adapter")
	}

	// Checkout event publishing.
	var publisher service.EventPublisher
	var closePublisher func()
	if cfg.Kafka.Enabled {
		kp := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		publisher = kp
		closePublisher = func() {
			if err := kp.Close(); err != nil {
				logger.Warn("close kafka publisher", "error", err)
			}
		}
	}

	// Services.
	pricing := service.Pricing{
		BaseFare:    cfg.Fare.BaseFare,
		MinimumFare: cfg.Fare.MinimumFare,
		BookingFee:  cfg.Fare.BookingFee,
	}
	matcher := service.NewMatchService()
	checkout := service.NewCheckoutService(api, api, adapter, lockStore, publisher, logger)
	checkout.SetVerifyTimeout(cfg.Checkout.VerifyTimeout)
	reviews := service.NewReviewSyncService(api, api, reviewedStore, cfg.Poller.Interval, logger)
	if err := reviews.Start(context.Background(), domain.Session{UserID: cfg.Backend.UserID}); err != nil {
		logger.Warn("start status sync poller", "error", err)
	}

	// Handlers.
	searchHandler := handler.NewSearchHandler(api, matcher)
	estimateHandler := handler.NewEstimateHandler(api, pricing, cfg.Fare.QuietWindow, logger)
	checkoutHandler := handler.NewCheckoutHandler(checkout, hosted)
	dashboardHandler := handler.NewDashboardHandler(api, reviews)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		SearchHandler:    searchHandler,
		EstimateHandler:  estimateHandler,
		CheckoutHandler:  checkoutHandler,
		DashboardHandler: dashboardHandler,
		RedisClient:      redisClient,
		NewRelicApp:      nrApp,
	})

	cleanup := func() {
		reviews.Stop()
		if closePublisher != nil {
			closePublisher()
		}
	}

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, cleanup
}
