// Package api exposes the road damage entry service over HTTP.
package api

import (
	"crypto/rand"
	"log"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/dalanapp/dalan-go/internal/auth"
	"github.com/dalanapp/dalan-go/internal/conf"
	"github.com/dalanapp/dalan-go/internal/entries"
	"github.com/dalanapp/dalan-go/internal/logging"
	"github.com/dalanapp/dalan-go/internal/observability"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Settings *conf.Settings
	Service  *entries.Service

	logger         *log.Logger
	apiLogger      *slog.Logger
	apiLoggerClose func() error
	metrics        *observability.Metrics
	authMiddleware echo.MiddlewareFunc
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuthProvider installs bearer token authentication on the entry routes.
func WithAuthProvider(provider auth.Provider) Option {
	return func(c *Controller) {
		c.authMiddleware = auth.Middleware(provider)
	}
}

// WithMetrics attaches the metrics registry and mounts its handler.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates the controller and registers all routes on e.
func New(e *echo.Echo, settings *conf.Settings, service *entries.Service, opts ...Option) *Controller {
	c := &Controller{
		Echo:     e,
		Settings: settings,
		Service:  service,
		logger:   log.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	apiLogger, closeFn, err := logging.NewFileLogger(
		filepath.Join("logs", "api.log"), "api", slog.LevelInfo)
	if err != nil {
		c.logger.Printf("Failed to initialize API structured logger: %v", err)
		apiLogger = logging.ForService("api")
		closeFn = func() error { return nil }
	}
	c.apiLogger = apiLogger
	c.apiLoggerClose = closeFn

	e.Use(middleware.Recover())

	c.Group = e.Group("/api/v1")
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Group.GET("/health", c.HealthCheck)

	g := c.Group.Group("/entries")
	if c.authMiddleware != nil {
		g.Use(c.authMiddleware)
	}
	g.GET("", c.ListEntries)
	g.POST("", c.CreateEntry)
	g.GET("/:id", c.GetEntry)
	g.PUT("/:id", c.UpdateEntry)
	g.DELETE("/:id", c.DeleteEntry)

	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}
}

// HealthCheck handles the API health check endpoint.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"name":      c.Settings.Main.Name,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// Shutdown releases controller resources.
func (c *Controller) Shutdown() {
	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API log file: %v", err)
		}
	}
}

// ErrorResponse is the JSON body returned for all handler errors.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"`
}

// NewErrorResponse creates a new API error response.
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: generateCorrelationID(),
	}
}

// generateCorrelationID creates a short random identifier for error tracking.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	c.apiLogger.Error("API Error",
		"correlation_id", errorResp.CorrelationID,
		"message", message,
		"error", errorResp.Error,
		"code", code,
		"path", ctx.Request().URL.Path,
		"method", ctx.Request().Method,
		"ip", ctx.RealIP(),
	)

	return ctx.JSON(code, errorResp)
}
