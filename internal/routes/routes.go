// internal/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-bridge/internal/config"
	"printer-bridge/internal/handler"
	"printer-bridge/internal/middleware"
	"printer-bridge/internal/service"
	"printer-bridge/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	config         *config.Config
	logger         *zap.Logger
	printerService *service.PrinterService
	eventBus       *handler.EventBus
}

// NewRouter creates a new router instance
func NewRouter(
	config *config.Config,
	logger *zap.Logger,
	printerService *service.PrinterService,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		config:         config,
		logger:         logger,
		printerService: printerService,
		eventBus:       eventBus,
	}
}

// SetupRouter creates and configures the Gin router. The returned
// WebSocketHandler must be started with Run to receive events.
func (r *Router) SetupRouter() (*gin.Engine, *handler.WebSocketHandler) {
	if r.config.IsProduction() || !r.config.IsDebugEnabled() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	wsHandler := r.addRoutes(router)

	return router, wsHandler
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) *handler.WebSocketHandler {
	healthHandler := handler.NewHealthHandler(r.printerService, r.config, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.printerService, r.logger)
	connectionHandler := handler.NewConnectionHandler(r.printerService, r.logger)
	printHandler := handler.NewPrintHandler(r.printerService, r.logger)
	wsHandler := handler.NewWebSocketHandler(r.printerService, r.eventBus, r.config.Security.AllowedOrigins, r.logger)

	// Health check routes
	healthHandler.RegisterRoutes(router.Group(""))

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	discoveryHandler.RegisterRoutes(apiV1)
	connectionHandler.RegisterRoutes(apiV1)
	printHandler.RegisterRoutes(apiV1)

	// WebSocket routes
	wsHandler.RegisterRoutes(router.Group("/ws"))

	r.logger.Info("All routes configured successfully")
	return wsHandler
}
