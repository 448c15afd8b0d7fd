package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/getsentry/sentry-go"

	"fintrack/internal/config"
	"fintrack/internal/database"
	"fintrack/internal/logger"
	"fintrack/internal/server"
	"fintrack/internal/validator"
)

// @title           Fintrack API
// @version         1.0
// @description     Fintrack tracks income and expenses, keeps monthly summaries up to date and evaluates budgets.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if appConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         appConfig.SentryDSN,
			Environment: appConfig.Env,
		}); err != nil {
			log.Warnw("failed to initialize Sentry", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnw("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	validator.Register()

	opts := server.Options{
		Location:           appConfig.Location,
		ReportConcurrency:  appConfig.ReportConcurrency,
		PipelineAPIKey:     appConfig.PipelineAPIKey,
		CORSAllowedOrigins: appConfig.CORSAllowedOrigins,
	}
	router := server.NewRouter(server.NewServices(dbManager.DB(), opts), opts)

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           server.Handler(router, opts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Infow("Starting fintrack server",
		"port", appConfig.Port,
		"env", appConfig.Env,
		"location", appConfig.Location.String(),
	)
	log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
	return srv.ListenAndServe()
}
