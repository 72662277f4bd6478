package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	auditHTTP "github.com/allisson/provision/internal/audit/http"
	deploymentHTTP "github.com/allisson/provision/internal/deployment/http"
	vaultHTTP "github.com/allisson/provision/internal/vault/http"
)

// ServerConfig holds the settings for the public HTTP server.
type ServerConfig struct {
	Host                    string
	Port                    int
	RateLimitEnabled        bool
	RateLimitRequestsPerSec float64
	RateLimitBurst          int
	CORSEnabled             bool
	CORSAllowOrigins        string
}

// Server represents the HTTP server.
type Server struct {
	server            *http.Server
	config            ServerConfig
	logger            *slog.Logger
	sessionHandler    *deploymentHTTP.SessionHandler
	exportHandler     *vaultHTTP.ExportHandler
	auditHandler      *auditHTTP.AuditHandler
	metricsMiddleware gin.HandlerFunc
}

// NewServer creates a new HTTP server. metricsMiddleware may be nil when
// metrics collection is disabled.
func NewServer(
	config ServerConfig,
	logger *slog.Logger,
	sessionHandler *deploymentHTTP.SessionHandler,
	exportHandler *vaultHTTP.ExportHandler,
	auditHandler *auditHTTP.AuditHandler,
	metricsMiddleware gin.HandlerFunc,
) *Server {
	return &Server{
		config:            config,
		logger:            logger,
		sessionHandler:    sessionHandler,
		exportHandler:     exportHandler,
		auditHandler:      auditHandler,
		metricsMiddleware: metricsMiddleware,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
			ReadTimeout:  15 * time.Second,
			// Streaming endpoints hold the response open; no write deadline.
			WriteTimeout: 0,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// buildRouter assembles the gin engine with middleware and routes. The context
// drives the readiness endpoint: once it is cancelled the server reports not
// ready.
func (s *Server) buildRouter(ctx context.Context) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(
		s.config.CORSEnabled,
		s.config.CORSAllowOrigins,
		s.logger,
	); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if s.metricsMiddleware != nil {
		router.Use(s.metricsMiddleware)
	}

	router.GET("/health", HealthHandler())
	router.GET("/ready", ReadinessHandler(ctx))

	v1 := router.Group("/v1")
	v1.Use(CallerIdentityMiddleware(s.logger))

	if s.config.RateLimitEnabled {
		v1.Use(RateLimitMiddleware(
			s.config.RateLimitRequestsPerSec,
			s.config.RateLimitBurst,
			s.logger,
		))
	}

	sessions := v1.Group("/sessions")
	{
		sessions.POST("", s.sessionHandler.CreateHandler)
		sessions.GET("/:id", s.sessionHandler.GetHandler)
		sessions.POST("/:id/resources", s.sessionHandler.AddResourceHandler)
		sessions.DELETE("/:id/resources/:type", s.sessionHandler.RemoveResourceHandler)
		sessions.POST("/:id/submit", s.sessionHandler.SubmitHandler)
		sessions.POST("/:id/approve", s.sessionHandler.ApproveHandler)
		sessions.POST("/:id/cancel", s.sessionHandler.CancelHandler)
		sessions.GET("/:id/stream", s.sessionHandler.StreamHandler)
		sessions.POST("/:id/export", s.sessionHandler.ExportHandler)
	}

	v1.GET("/exports/:token", s.exportHandler.RedeemHandler)
	v1.GET("/projects/:project_id/audit", s.auditHandler.ListHandler)

	return router
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.buildRouter(ctx)

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
