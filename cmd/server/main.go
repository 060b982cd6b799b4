package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nordmark/vitrine/internal"
	"github.com/nordmark/vitrine/internal/catalog"
	"github.com/nordmark/vitrine/internal/checkout"
	"github.com/nordmark/vitrine/internal/domain"
	"github.com/nordmark/vitrine/internal/events"
	"github.com/nordmark/vitrine/internal/gateway"
	"github.com/nordmark/vitrine/internal/handler/api"
	"github.com/nordmark/vitrine/internal/middleware"
	"github.com/nordmark/vitrine/internal/order"
	"github.com/nordmark/vitrine/internal/postgres"
	"github.com/nordmark/vitrine/internal/router"
	"github.com/nordmark/vitrine/internal/routes"
	"github.com/nordmark/vitrine/internal/shipping"
	"github.com/nordmark/vitrine/internal/telemetry"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize database/sql connection for migrations
	logger.Info("Connecting to database...")
	sqlDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// Run migrations
	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(sqlDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Initialize pgx connection pool for application
	pool, err := postgres.Connect(ctx, cfg.DatabaseUrl)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Stores
	cartStore := postgres.NewCartStore(pool)
	addressStore := postgres.NewAddressStore(pool)
	orderStore := postgres.NewOrderStore(pool)
	intentStore := postgres.NewIntentStore(pool)

	// Event bus, with optional NATS bridge for downstream consumers
	bus := events.NewBus()
	bus.Subscribe(events.TopicOrderStatus, checkout.ReleaseIntentOnSettlement(intentStore, logger))
	bus.Subscribe(events.TopicOrderStatus, func(e events.Event) {
		evt, ok := e.Payload.(events.OrderStatusEvent)
		if !ok || evt.To != string(domain.OrderPaid) || evt.UserID == "" {
			return
		}
		// The cart is spent once its order is paid.
		if err := cartStore.Clear(ctx, evt.UserID); err != nil {
			logger.Error("failed to clear cart after payment", "user_id", evt.UserID, "error", err)
		}
	})
	if cfg.NATS.Enabled {
		publisher, err := events.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer publisher.Close()
		publisher.Bridge(bus)
		logger.Info("NATS order event publisher connected", "url", cfg.NATS.URL)
	}

	// Business metrics
	metrics := telemetry.NewBusinessMetrics("vitrine", prometheus.DefaultRegisterer)

	// Catalog client
	catalogClient, err := catalog.NewClient(catalog.ClientConfig{
		BaseURL: cfg.Catalog.BaseURL,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize catalog client: %w", err)
	}

	// Payment gateway
	logger.Info("Initializing payment gateway...")
	gatewayProvider, err := gateway.NewStripeProvider(gateway.StripeConfig{
		APIKey: cfg.Stripe.SecretKey,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize payment gateway: %w", err)
	}

	// Shipping
	shippingCalc := shipping.NewFlatRateCalculator(cfg.Shipping.FlatRateCents, cfg.Shipping.FreeShippingCents)

	// Checkout orchestrator
	orchestrator, err := checkout.NewOrchestrator(checkout.Config{
		Gateway:    gatewayProvider,
		Intents:    intentStore,
		Catalog:    catalogClient,
		SuccessURL: cfg.BaseURL + "/order-confirmation?status=approved&payment_id={CHECKOUT_SESSION_ID}",
		CancelURL:  cfg.BaseURL + "/checkout",
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize checkout orchestrator: %w", err)
	}

	// Order state machine
	machine, err := order.NewMachine(order.MachineConfig{
		Store:   orderStore,
		Gateway: gatewayProvider,
		Bus:     bus,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize order machine: %w", err)
	}

	// HTTP metrics and router
	httpMetrics := middleware.NewMetrics("vitrine")

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		httpMetrics.Middleware,
		middleware.WithClientIP(),
		middleware.WithRequestLogger(logger),
		router.Logger(logger),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		CartHandler:     api.NewCartHandler(cartStore, catalogClient),
		CheckoutHandler: api.NewCheckoutHandler(cartStore, addressStore, shippingCalc, orchestrator, machine, gatewayProvider),
		OrderHandler:    api.NewOrderHandler(machine, addressStore, shippingCalc),
		AddressHandler:  api.NewAddressHandler(addressStore),
		HealthHandler:   api.NewHealthHandler(pool),
		MetricsHandler:  httpMetrics.Handler(),
	})

	// CORS wraps the whole router so preflight OPTIONS requests are
	// answered even though no route matches them.
	handler := router.CORS(cfg.CORS.AllowedOrigins)(r)

	// Start server with graceful shutdown
	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
