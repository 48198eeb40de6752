package http

import (
	"github.com/cartwise/backend/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter creates and configures the Gin router. Metric gatherers from the
// gateway and the batch layer are merged onto one /metrics endpoint.
func SetupRouter(cfg *config.Config, handler *Handler, gatherers ...prometheus.Gatherer) *gin.Engine {
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

	if len(gatherers) > 0 {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
			prometheus.Gatherers(gatherers),
			promhttp.HandlerOpts{},
		)))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Price endpoints require a bearer token
		prices := v1.Group("/prices")
		prices.Use(AuthMiddleware(cfg.Server.APIToken))
		{
			prices.POST("/batch-search", handler.BatchSearch)
			prices.POST("/compare", handler.Compare)
		}
	}

	return router
}
