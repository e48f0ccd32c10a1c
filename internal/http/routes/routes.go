package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/phambaophuc/alt-text-relay/internal/config"
	"github.com/phambaophuc/alt-text-relay/internal/http/handlers"
	"github.com/phambaophuc/alt-text-relay/internal/http/middleware"
	"github.com/phambaophuc/alt-text-relay/internal/metrics"
	"go.uber.org/zap"
)

type Router struct {
	altTextHandler *handlers.AltTextHandler
	config         *config.Config
	logger         *zap.Logger
}

func NewRouter(
	altTextHandler *handlers.AltTextHandler,
	config *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		altTextHandler: altTextHandler,
		config:         config,
		logger:         logger,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	if !r.config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Caller(r.config.Server.InternalKey))
	router.Use(middleware.Logger(r.logger))
	router.Use(middleware.ErrorHandler(r.logger))
	router.Use(middleware.CORS(r.config.Server.AllowOrigins))
	router.Use(middleware.SecurityHeaders())

	router.GET("/", r.altTextHandler.Liveness)
	router.POST("/generate-alt", r.altTextHandler.GenerateAlt)
	router.GET("/usage", r.altTextHandler.Usage)
	router.GET("/health", r.altTextHandler.HealthCheck)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	return router
}
