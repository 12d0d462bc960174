package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	apihttp "github.com/GriffinCanCode/WebDesk/internal/api/http"
	"github.com/GriffinCanCode/WebDesk/internal/api/middleware"
	"github.com/GriffinCanCode/WebDesk/internal/domain/kernel"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/WebDesk/internal/infrastructure/tracing"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Server is the inspector HTTP server of one kernel
type Server struct {
	cfg    config.InspectorConfig
	router *gin.Engine
	tracer *tracing.Tracer
	logger *zap.Logger
	http   *http.Server
}

// New builds the inspector for k. development keeps gin in debug mode.
func New(k *kernel.Kernel, cfg config.InspectorConfig, development bool, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !development {
		gin.SetMode(gin.ReleaseMode)
	}

	tracer := tracing.New("inspector", logger.Named("tracing"))
	limits := middleware.DefaultRateLimitConfig()
	limits.RequestsPerSecond = cfg.RateLimit
	limits.Burst = cfg.RateLimit * 2

	router := apihttp.NewRouter(k, apihttp.RouterOptions{
		Logger:    logger,
		Tracer:    tracer,
		CORS:      middleware.DefaultCORSConfig(),
		RateLimit: limits,
	})

	addr := net.JoinHostPort(cfg.Host, cfg.Port)
	return &Server{
		cfg:    cfg,
		router: router,
		tracer: tracer,
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.http.Addr
}

// Handler returns the router, for in-process use
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.tracer.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Inspector listening", zap.String("addr", ln.Addr().String()))
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Inspector shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
