package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/gallery/internal/api/handler"
	"github.com/timmy/gallery/internal/api/middleware"
	"github.com/timmy/gallery/internal/logger"
)

// RouterConfig holds the settings the router needs.
type RouterConfig struct {
	Mode     string
	PageSize int
	CORS     middleware.CORSConfig
}

// SetupRouter configures the Gin router with all routes.
// db is optional and only used by the health check.
func SetupRouter(store handler.ImageStore, db handler.Pinger, log *logger.Logger, cfg RouterConfig) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(db)
	imageHandler := handler.NewImageHandler(store, cfg.PageSize)

	r.GET("/health", healthHandler.Health)

	images := r.Group("/api/images")
	{
		images.GET("", imageHandler.ListImages)
		images.POST("", imageHandler.CreateImage)
	}

	return r
}
