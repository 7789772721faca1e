// Package api exposes the agent's message contract over local HTTP so a
// settings UI can request fills.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/grez-lucas/dialer-helper/internal/dialer/agent"
	"github.com/grez-lucas/dialer-helper/internal/settings"
)

const (
	readTimeout     = 10 * time.Second
	writeTimeout    = 30 * time.Second
	idleTimeout     = 120 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Handler is the agent surface served over HTTP.
type Handler interface {
	Handle(ctx context.Context, req agent.Request) agent.Response
	Settings() *settings.Live
}

// Config configures the server.
type Config struct {
	Addr string
	// FillRate bounds on-demand fill requests per second; Burst requests may
	// arrive at once.
	FillRate  float64
	FillBurst int
	Debug     bool
}

// Server represents the HTTP server
type Server struct {
	router *gin.Engine
	server *http.Server
	logger *zap.Logger
}

// NewServer creates the router. gatherer backs /metrics and may be nil.
func NewServer(cfg Config, h Handler, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	limit := rate.Inf
	if cfg.FillRate > 0 {
		limit = rate.Limit(cfg.FillRate)
	}
	burst := cfg.FillBurst
	if burst < 1 {
		burst = 1
	}

	v1 := router.Group("/api/v1")
	v1.POST("/messages", rateLimit(rate.NewLimiter(limit, burst)), messageHandler(h))
	v1.GET("/settings", func(c *gin.Context) {
		c.JSON(http.StatusOK, h.Settings().Current())
	})

	return &Server{
		router: router,
		server: &http.Server{
			Addr:         cfg.Addr,
			Handler:      router,
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			IdleTimeout:  idleTimeout,
		},
		logger: logger,
	}
}

// Router returns the HTTP handler, for tests.
func (s *Server) Router() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Serving dialer API", zap.String("addr", s.server.Addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func messageHandler(h Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, agent.Response{Error: err.Error()})
			return
		}
		req, err := agent.DecodeRequest(body)
		if err != nil {
			c.JSON(http.StatusBadRequest, agent.Response{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, h.Handle(c.Request.Context(), req))
	}
}

func rateLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, agent.Response{Error: "too many requests"})
			return
		}
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
