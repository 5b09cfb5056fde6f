// Package server exposes the map controller over HTTP. Mutating routes are
// turned into dispatcher events so they share the intent handlers used by
// websocket clients and the terminal panel.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/venuemap/explorer/internal/config"
	"github.com/venuemap/explorer/internal/dispatcher"
	"github.com/venuemap/explorer/internal/export"
	"github.com/venuemap/explorer/internal/intent"
	"github.com/venuemap/explorer/internal/logging"
	"github.com/venuemap/explorer/internal/mapctl"
	"github.com/venuemap/explorer/internal/queue"
	"github.com/venuemap/explorer/internal/registry"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Dispatcher routes intents.
type Dispatcher interface {
	Dispatch(e dispatcher.Event) (any, error)
}

// Controller is the read side of the map controller.
type Controller interface {
	Snapshot() mapctl.State
	Entries() []mapctl.Entry
}

// MetricsFunc collects the current metrics.
type MetricsFunc func(ctx context.Context) (metricdata.ResourceMetrics, error)

// Option configures a Server.
type Option func(*Server)

// WithWebsocket mounts h at /ws.
func WithWebsocket(h http.Handler) Option {
	return func(s *Server) { s.ws = h }
}

// WithMetrics serves collected metrics at /api/metrics.
func WithMetrics(fn MetricsFunc) Option {
	return func(s *Server) { s.metrics = fn }
}

// Server is the HTTP front of the explorer.
type Server struct {
	cfg      config.ServerConfig
	dispatch Dispatcher
	ctl      Controller
	notes    *queue.Queue[mapctl.Notification]
	ws       http.Handler
	metrics  MetricsFunc
	logger   *slog.Logger

	engine *gin.Engine
	http   *http.Server
}

// New builds the router. notes is drained by GET /api/notifications.
func New(cfg config.ServerConfig, d Dispatcher, ctl Controller, notes *queue.Queue[mapctl.Notification], logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		dispatch: d,
		ctl:      ctl,
		notes:    notes,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
	s.engine = gin.New()
	s.engine.Use(gin.Recovery(), s.requestLogger())
	s.routes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthcheck", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		api.GET("/state", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.ctl.Snapshot())
		})
		api.GET("/markers", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.ctl.Entries())
		})
		api.GET("/notifications", func(c *gin.Context) {
			notes := s.notes.GetAndEmpty()
			if notes == nil {
				notes = []mapctl.Notification{}
			}
			c.JSON(http.StatusOK, notes)
		})
		api.GET("/export.xlsx", s.exportMarkers)

		api.POST("/query", s.query)
		api.POST("/markers/:id/click", s.markerIntent(intent.Click))
		api.POST("/markers/:id/close", s.markerIntent(intent.Close))
		api.POST("/markers/:id/hover", s.hover)
		api.POST("/filter", s.filter)
		api.DELETE("/filter", func(c *gin.Context) {
			s.intent(c, dispatcher.Event{Name: intent.FilterOff})
		})
		api.POST("/viewport", s.viewport)

		if s.metrics != nil {
			api.GET("/metrics", func(c *gin.Context) {
				rm, err := s.metrics(c.Request.Context())
				if err != nil {
					c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
					return
				}
				c.JSON(http.StatusOK, rm)
			})
		}
	}

	if s.ws != nil {
		r.GET("/ws", gin.WrapH(s.ws))
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := logging.WithContextAttrs(c.Request.Context(), slog.String("client", c.ClientIP()))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		s.logger.DebugContext(ctx, "HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// intent dispatches e and writes the result. An unknown marker is a 404,
// any other failure a 400.
func (s *Server) intent(c *gin.Context, e dispatcher.Event) {
	e.Source = "http"
	result, err := s.dispatch.Dispatch(e)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, registry.ErrUnknownMarker) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": result})
}

type queryRequest struct {
	Text     string `json:"text" binding:"required"`
	Category string `json:"category"`
}

func (s *Server) query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.intent(c, dispatcher.Event{Name: intent.Query, Args: []string{req.Text, req.Category}})
}

func (s *Server) markerIntent(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		s.intent(c, dispatcher.Event{Name: name, Args: []string{c.Param("id")}})
	}
}

type hoverRequest struct {
	On    *bool `json:"on"`
	Focus bool  `json:"focus"`
}

func (s *Server) hover(c *gin.Context) {
	var req hoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	on := true
	if req.On != nil {
		on = *req.On
	}
	s.intent(c, dispatcher.Event{
		Name: intent.Hover,
		Args: []string{c.Param("id"), strconv.FormatBool(on), strconv.FormatBool(req.Focus)},
	})
}

type filterRequest struct {
	Text string `json:"text"`
}

func (s *Server) filter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.intent(c, dispatcher.Event{Name: intent.Filter, Args: []string{req.Text}})
}

type viewportRequest struct {
	Width  int `json:"width" binding:"required,gt=0"`
	Height int `json:"height" binding:"required,gt=0"`
}

func (s *Server) viewport(c *gin.Context) {
	var req viewportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.intent(c, dispatcher.Event{
		Name: intent.Resize,
		Args: []string{strconv.Itoa(req.Width), strconv.Itoa(req.Height)},
	})
}

func (s *Server) exportMarkers(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="markers.xlsx"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	if err := export.Write(c.Writer, s.ctl.Entries()); err != nil {
		s.logger.ErrorContext(c.Request.Context(), "Export failed", "error", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", s.cfg.Address)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	}
}
