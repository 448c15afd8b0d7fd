// Package server assembles the HTTP surface of the API.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "fintrack/internal/docs" // Import swagger docs
	"fintrack/internal/handlers"
	"fintrack/internal/middleware"
	"fintrack/internal/services"
)

// Options tunes the services and routes built by New.
type Options struct {
	// Location of calendar windows; nil means time.Local.
	Location *time.Location
	// Clock for period resolution; nil means time.Now.
	Clock services.Clock
	// ReportConcurrency bounds the queries of one overview request.
	ReportConcurrency int
	// PipelineAPIKey guards the pipeline routes; empty disables them.
	PipelineAPIKey string
	// CORSAllowedOrigins feeds the CORS wrapper of Handler.
	CORSAllowedOrigins []string
}

// Services bundles the business services behind the routes.
type Services struct {
	Users        services.UserServicer
	Categories   services.CategoryServicer
	Transactions services.TransactionServicer
	Rollups      services.RollupServicer
	Budgets      services.BudgetServicer
	Reports      services.ReportServicer
	Audit        services.AuditServicer
}

// NewServices wires every service on top of db.
func NewServices(db *gorm.DB, opts Options) Services {
	agg := services.NewAggregationService(db)
	rollups := services.NewRollupService(db, agg, opts.Location, opts.Clock)
	budgets := services.NewBudgetService(db, agg, opts.Location, opts.Clock)
	return Services{
		Users:        services.NewUserService(db),
		Categories:   services.NewCategoryService(db),
		Transactions: services.NewTransactionService(db, rollups, opts.Clock),
		Rollups:      rollups,
		Budgets:      budgets,
		Reports:      services.NewReportService(db, agg, budgets, opts.Location, opts.Clock, opts.ReportConcurrency),
		Audit:        services.NewAuditService(db),
	}
}

// NewRouter registers every route on a new gin engine.
func NewRouter(svc Services, opts Options) *gin.Engine {
	authHandler := handlers.NewAuthHandler(svc.Users, svc.Audit)
	categoryHandler := handlers.NewCategoryHandler(svc.Categories, svc.Audit)
	transactionHandler := handlers.NewTransactionHandler(svc.Transactions, svc.Audit)
	summaryHandler := handlers.NewSummaryHandler(svc.Rollups, svc.Audit)
	budgetHandler := handlers.NewBudgetHandler(svc.Budgets, svc.Audit)
	reportHandler := handlers.NewReportHandler(svc.Reports)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	// Pipeline routes (API key)
	pipeline := v1.Group("/pipeline")
	pipeline.Use(middleware.PipelineAuthMiddleware(opts.PipelineAPIKey))
	pipeline.POST("/summaries/:user_id/rebuild", summaryHandler.RebuildSummaries)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	protected.GET("/profile", authHandler.GetProfile)

	categories := protected.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.GET("/:id", categoryHandler.GetCategory)
	categories.PUT("/:id", categoryHandler.UpdateCategory)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	transactions := protected.Group("/transactions")
	transactions.POST("", transactionHandler.CreateTransaction)
	transactions.GET("", transactionHandler.GetUserTransactions)
	transactions.GET("/:id", transactionHandler.GetTransaction)
	transactions.PUT("/:id", transactionHandler.UpdateTransaction)
	transactions.DELETE("/:id", transactionHandler.DeleteTransaction)

	summaries := protected.Group("/summaries")
	summaries.GET("", summaryHandler.GetSummaries)
	summaries.GET("/current", summaryHandler.GetCurrentSummary)
	summaries.GET("/trends", summaryHandler.GetTrends)
	summaries.GET("/:month/:year", summaryHandler.GetMonthSummary)
	summaries.DELETE("/:id", summaryHandler.DeleteSummary)

	budgets := protected.Group("/budgets")
	budgets.POST("", budgetHandler.CreateBudget)
	budgets.GET("", budgetHandler.GetBudgets)
	budgets.GET("/warnings", budgetHandler.GetBudgetWarnings)
	budgets.GET("/:id", budgetHandler.GetBudget)
	budgets.PUT("/:id", budgetHandler.UpdateBudget)
	budgets.DELETE("/:id", budgetHandler.DeleteBudget)

	reports := protected.Group("/reports")
	reports.GET("/statistics", reportHandler.GetStatistics)
	reports.GET("/balance", reportHandler.GetBalance)
	reports.GET("/overview", reportHandler.GetOverview)

	return router
}

// Handler wraps the router with CORS handling for the allowed origins.
func Handler(router http.Handler, opts Options) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.PipelineKeyHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(router)
}
