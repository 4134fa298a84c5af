package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/trendpipe/internal/api/handler"
	"github.com/timmy/trendpipe/internal/api/middleware"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	executor handler.RunExecutor,
	runs handler.RunReader,
	trends handler.TrendProvider,
	mode string,
) *gin.Engine {
	// Set Gin mode
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(middleware.CORSConfig{AllowAllOrigins: true}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	runHandler := handler.NewRunHandler(executor, runs)
	trendHandler := handler.NewTrendHandler(trends)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Pipeline runs
		v1.POST("/runs", runHandler.TriggerRun)
		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/runs/:id", runHandler.GetRun)

		// Trend inspection
		v1.GET("/trends", trendHandler.GetTrends)
	}

	return r
}
