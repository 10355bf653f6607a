package api

import (
	"github.com/DavidD95/Prueba-Data-Engineering/internal/api/handler"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/api/middleware"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	runs *handler.RunHandler,
	health *handler.HealthHandler,
	mode string,
	log *logger.Logger,
) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	r.GET("/health", health.Health)

	v1 := r.Group("/api/v1")
	{
		v1.POST("/runs", runs.TriggerRun)
		v1.GET("/runs/status", runs.GetRunStatus)
		v1.GET("/runs", runs.ListRuns)
		v1.GET("/runs/:id", runs.GetRun)
	}

	return r
}
