// Package server provides HTTP server lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/solatis/segmentkeeper/internal/core/api"
	"github.com/solatis/segmentkeeper/internal/core/config"
	"github.com/solatis/segmentkeeper/internal/core/logging"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

const (
	idleTimeout          = 120 * time.Second
	maxHeaderBytes       = 1 << 20
	maxConcurrentStreams = 250
	corsMaxAge           = 12 * time.Hour
	shutdownTimeout      = 30 * time.Second
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPServer manages the HTTP server lifecycle.
type HTTPServer struct {
	server   *http.Server
	listener net.Listener
	logger   *zap.Logger
	config   config.ServerConfig
}

// NewRouter builds the gin engine with middleware, health, metrics and API routes.
func NewRouter(cfg config.ServerConfig, handler *api.Handler, store Pinger, logger *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(logging.Recovery(logger), logging.RequestLogger(logger))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           corsMaxAge,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "segmentkeeper"})
	})
	r.GET("/health/db", func(c *gin.Context) {
		if err := store.Ping(c.Request.Context()); err != nil {
			logger.Warn("store health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "store unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "connected"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handler.Register(r)
	return r
}

// NewHTTPServer wraps router in an h2c-capable http.Server.
func NewHTTPServer(cfg config.ServerConfig, router http.Handler, logger *zap.Logger) (*HTTPServer, error) {
	if router == nil {
		return nil, errors.New("router cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	srv := &http.Server{
		Addr:           cfg.Addr(),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    idleTimeout,
		MaxHeaderBytes: maxHeaderBytes,
		Handler: h2c.NewHandler(router, &http2.Server{
			MaxConcurrentStreams: maxConcurrentStreams,
		}),
	}

	return &HTTPServer{server: srv, logger: logger, config: cfg}, nil
}

// Listen binds the configured address.
func (s *HTTPServer) Listen(ctx context.Context) error {
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}
	s.listener = listener
	return nil
}

// Serve handles requests on the bound listener until Shutdown is called.
// Returns nil after a graceful shutdown.
func (s *HTTPServer) Serve() error {
	if s.listener == nil {
		return errors.New("server not listening")
	}

	s.logger.Info("http server listening", zap.String("addr", s.listener.Addr().String()))
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Start binds and serves; it blocks until Shutdown is called.
func (s *HTTPServer) Start(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	return s.Serve()
}

// Addr returns the bound address once Start has run.
func (s *HTTPServer) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests, forcing close after 30 seconds.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		s.server.Close()
		return fmt.Errorf("graceful shutdown failed, forced stop: %w", err)
	}
	return nil
}
