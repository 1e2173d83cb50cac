package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/brightloom/billing_api/internal/cache"
	"github.com/brightloom/billing_api/internal/config"
	"github.com/brightloom/billing_api/internal/database"
	"github.com/brightloom/billing_api/internal/handler"
	"github.com/brightloom/billing_api/internal/middleware"
	"github.com/brightloom/billing_api/internal/repository"
	"github.com/brightloom/billing_api/internal/service"
	"github.com/brightloom/billing_api/internal/utils"
	"github.com/brightloom/billing_api/internal/worker"
	"github.com/brightloom/billing_api/pkg/stripegw"
)

// main is the application entrypoint for the Brightloom billing API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting billing api")

	utils.SetJWTSecret(cfg.JWTSecret)

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	eventCache := cache.NewWebhookEventCache(redisClient)

	// 4. Initialize Stripe gateway client
	stripeClient := stripegw.NewClient(stripegw.Config{APIKey: cfg.Stripe.APIKey})

	// 5. Initialize repositories
	profileRepo := repository.NewProfileRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 6. Initialize services
	catalogSvc := service.NewCatalogService(stripeClient, cfg.Catalog.TTL)
	billingSvc := service.NewBillingService(stripeClient, catalogSvc, profileRepo, subscriptionRepo)
	webhookSvc := service.NewWebhookService(catalogSvc, profileRepo, subscriptionRepo, eventCache)
	authSvc := service.NewAuthService(profileRepo)
	adminAuthSvc := service.NewAdminAuthService(adminRepo)
	profileSvc := service.NewProfileService(profileRepo)

	// 6a. Bootstrap the first admin account if configured
	if cfg.Admin.Email != "" && cfg.Admin.Password != "" {
		if err := adminAuthSvc.EnsureAdmin(cfg.Admin.Email, cfg.Admin.Password, "Administrator"); err != nil {
			log.Error().Err(err).Msg("admin bootstrap failed")
		}
	}

	// 7. Initialize handlers
	handlers := &Handlers{
		Health:  handler.NewHealthHandler(catalogSvc),
		Catalog: handler.NewCatalogHandler(catalogSvc),
		Billing: handler.NewBillingHandler(billingSvc),
		Webhook: handler.NewWebhookHandler(webhookSvc, cfg.Stripe.WebhookSecret),
		Auth:    handler.NewAuthHandler(adminAuthSvc),
		Profile: handler.NewProfileHandler(profileSvc),
	}

	// 8. Initialize middleware
	authMw := middleware.NewAuthMiddleware(authSvc)
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, handlers, authMw, jwtMw)

	// 10. Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 11. Start catalog refresh worker
	go worker.NewCatalogRefreshWorker(catalogSvc, cfg.Worker.CatalogRefreshInterval).Start(ctx)

	// 12. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 14. Cancel context to stop workers
	cancel()

	// 15. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health  *handler.HealthHandler
	Catalog *handler.CatalogHandler
	Billing *handler.BillingHandler
	Webhook *handler.WebhookHandler
	Auth    *handler.AuthHandler
	Profile *handler.ProfileHandler
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, handlers *Handlers, authMiddleware *middleware.AuthMiddleware, jwtMiddleware *middleware.JWTMiddleware) {
	// Provider webhook endpoint (signature-verified, no API key auth)
	router.POST("/webhook/stripe", handlers.Webhook.HandleStripeWebhook)

	router.GET("/v1/health", handlers.Health.GetHealth)

	// Catalog routes (protected with client API key)
	catalog := router.Group("/v1/catalog")
	catalog.Use(authMiddleware.Handle())
	{
		catalog.GET("", handlers.Catalog.GetCatalog)
		catalog.GET("/:planId", handlers.Catalog.GetPlan)
		catalog.GET("/:planId/price", handlers.Catalog.ValidatePrice)
	}

	// Billing routes (protected with client API key)
	billing := router.Group("/v1/billing")
	billing.Use(authMiddleware.Handle())
	{
		billing.POST("/subscriptions", handlers.Billing.CreateSubscription)
		billing.GET("/subscriptions", handlers.Billing.ListSubscriptions)
		billing.GET("/subscriptions/:id", handlers.Billing.GetSubscription)
		billing.DELETE("/subscriptions/:id", handlers.Billing.CancelSubscription)
	}

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.POST("/auth/login", handlers.Auth.Login)
	admin.Use(jwtMiddleware.Handle())
	{
		admin.POST("/catalog/refresh", handlers.Catalog.Refresh)
		admin.POST("/profiles", handlers.Profile.CreateProfile)
		admin.GET("/profiles", handlers.Profile.ListProfiles)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
