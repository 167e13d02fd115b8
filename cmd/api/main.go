package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wanderstay/wanderstay-bookings/internal/http/handlers"
	httpmw "github.com/wanderstay/wanderstay-bookings/internal/http/middleware"
	"github.com/wanderstay/wanderstay-bookings/internal/platform/lock"
	"github.com/wanderstay/wanderstay-bookings/internal/platform/payments"
	"github.com/wanderstay/wanderstay-bookings/internal/repo/postgres"
	"github.com/wanderstay/wanderstay-bookings/internal/service"
	"github.com/wanderstay/wanderstay-bookings/pkg/config"
	"github.com/wanderstay/wanderstay-bookings/pkg/database"
	"github.com/wanderstay/wanderstay-bookings/pkg/events"
	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
	mw "github.com/wanderstay/wanderstay-bookings/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	// Repositories
	propertyRepo := postgres.NewPropertyRepository(pool)
	tenantRepo := postgres.NewTenantRepository(pool)
	availabilityRepo := postgres.NewAvailabilityRepository(pool)
	bookingRepo := postgres.NewBookingRepository(pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(pool)

	// Platform
	locks := lock.NewManager(lock.NewRedisKV(redisClient), cfg.Lock)
	var refunder payments.Refunder = payments.NoopRefunder{}
	if cfg.Stripe.SecretKey != "" {
		refunder = payments.NewStripeRefunder(cfg.Stripe.SecretKey)
	}

	// Services
	bookingService := service.NewBookingService(
		propertyRepo, tenantRepo, availabilityRepo, bookingRepo, idempotencyRepo,
		locks, eventBus, refunder,
	)
	bulk := service.NewBulkProcessor(bookingService, cfg.Bulk)

	// Expired idempotency rows are garbage-collected in the background.
	go service.CleanupIdempotencyKeys(ctx, idempotencyRepo, time.Hour)

	// Handlers
	bookingsHandler := handlers.NewBookingsHandler(bookingService, bulk)
	availabilityHandler := handlers.NewAvailabilityHandler(bookingService)

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("bookings"))
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/", func(r chi.Router) {
		// Public availability probing
		r.Mount("/properties", availabilityHandler.Routes())

		// Tenant booking routes (JWT required)
		r.Route("/bookings", func(r chi.Router) {
			r.Use(httpmw.RequireJWT(cfg.Auth.JWTSecret))
			r.Mount("/", bookingsHandler.Routes())
		})

		// Host calendar routes (JWT required)
		r.Route("/host/properties", func(r chi.Router) {
			r.Use(httpmw.RequireJWT(cfg.Auth.JWTSecret))
			r.Mount("/", availabilityHandler.HostRoutes())
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down bookings service...")
		stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Bookings service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting bookings service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Bookings service error", "error", err)
		os.Exit(1)
	}
}
