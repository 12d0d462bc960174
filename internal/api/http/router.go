package http

import (
	"github.com/GriffinCanCode/WebDesk/internal/api/middleware"
	"github.com/GriffinCanCode/WebDesk/internal/api/ws"
	"github.com/GriffinCanCode/WebDesk/internal/domain/kernel"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/tracing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterOptions configures NewRouter
type RouterOptions struct {
	Logger    *zap.Logger
	Tracer    *tracing.Tracer
	CORS      middleware.CORSConfig
	RateLimit middleware.RateLimitConfig
}

// NewRouter builds the inspector engine for k
func NewRouter(k *kernel.Kernel, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if opts.Tracer != nil {
		router.Use(tracing.HTTPMiddleware(opts.Tracer))
	}
	router.Use(monitoring.Middleware(k.Metrics()))
	router.Use(middleware.CORS(opts.CORS))
	router.Use(middleware.RateLimit(opts.RateLimit))

	h := NewHandlers(k, logger)
	events := ws.NewHandler(k.Bus(), k.Metrics(), logger.Named("ws"))

	router.GET("/health", h.Health)
	router.GET("/state", h.State)

	router.GET("/apps", h.ListApps)
	router.POST("/apps/:id/launch", h.Launch)

	router.GET("/processes", h.ListProcesses)
	router.DELETE("/processes/:pid", h.Terminate)
	router.GET("/windows", h.ListWindows)
	router.GET("/taskbar", h.Taskbar)

	router.GET("/fs/*path", h.ReadPath)

	router.GET("/metrics", gin.WrapH(k.Metrics().Handler()))
	router.GET("/events", events.HandleConnection)

	return router
}
