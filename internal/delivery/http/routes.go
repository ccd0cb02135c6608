package http

import (
	"github.com/gin-gonic/gin"

	"github.com/CoffeeTonya/priceCheck/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	v1.Use(BodyLimitMiddleware(cfg.Server.MaxUploadBytes))
	{
		v1.POST("/search", handler.Search)
		v1.POST("/catalog/search", handler.SearchCatalog)

		runs := v1.Group("/runs/:id")
		{
			runs.GET("", handler.GetRun)
			runs.PUT("/rows/:code/changed-price", handler.SetChangedPrice)
			runs.GET("/result.csv", handler.DownloadResult)
			runs.GET("/exports/:platform", handler.DownloadExport)
		}

		v1.POST("/exports/:platform", handler.ExportFromResult)
	}

	return router
}
