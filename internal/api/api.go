// Package api exposes the detection pipeline over HTTP: the detect and
// history endpoints, single-result lookup, health, metrics and read-only
// serving of uploaded images.
package api

import (
	"crypto/rand"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/haritpath/pestwatch/internal/conf"
	"github.com/haritpath/pestwatch/internal/datastore"
	"github.com/haritpath/pestwatch/internal/detection"
	"github.com/haritpath/pestwatch/internal/logging"
	"github.com/haritpath/pestwatch/internal/observability"
)

// Controller manages the API routes and handlers.
type Controller struct {
	Echo      *echo.Echo
	Group     *echo.Group
	DS        datastore.Interface
	Settings  *conf.Settings
	Processor *detection.Processor

	uploadsDir string
	metrics    *observability.Metrics
	apiLogger  *slog.Logger
	startTime  time.Time
}

// New creates the API controller and registers all routes.
func New(e *echo.Echo, settings *conf.Settings, ds datastore.Interface,
	processor *detection.Processor, metrics *observability.Metrics, uploadsDir string) *Controller {

	c := &Controller{
		Echo:       e,
		DS:         ds,
		Settings:   settings,
		Processor:  processor,
		uploadsDir: uploadsDir,
		metrics:    metrics,
		apiLogger:  logging.ForService("api"),
		startTime:  time.Now(),
	}

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	if settings.Ingest.MaxUploadSize > 0 {
		// Headroom for the multipart framing around the image payload.
		e.Use(middleware.BodyLimit(strconv.FormatInt(settings.Ingest.MaxUploadSize+1<<20, 10)))
	}
	e.Use(c.LoggingMiddleware())

	c.Group = e.Group("/api/v1")

	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints.
func (c *Controller) initRoutes() {
	c.Group.POST("/detect", c.Detect)
	c.Group.GET("/history", c.GetHistory)
	c.Group.GET("/detections/:id", c.GetDetection)

	// Compatibility aliases for clients using the unversioned paths.
	c.Echo.POST("/detect", c.Detect)
	c.Echo.GET("/history", c.GetHistory)

	c.Echo.GET("/healthz", c.HealthCheck)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	// Read-only passthrough for stored images. echo's static handler
	// rejects path traversal.
	c.Echo.Static("/uploads", c.uploadsDir)
}

// LoggingMiddleware logs each request with structured data.
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			if c.apiLogger == nil {
				return err
			}

			req := ctx.Request()
			res := ctx.Response()

			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)
			return err
		}
	}
}

// ErrorBody is the error envelope returned by all endpoints. Internal
// error details are never exposed to the caller; message is a fixed,
// user-safe string and the correlation id ties the response to the log.
type ErrorBody struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// HandleError logs err and returns the generic error envelope.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	correlationID := generateCorrelationID()

	if c.apiLogger != nil {
		var errorStr string
		if err != nil {
			errorStr = err.Error()
		} else {
			errorStr = message
		}
		c.apiLogger.Error("API Error",
			"correlation_id", correlationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ctx.RealIP(),
		)
	}

	return ctx.JSON(code, ErrorBody{
		Success:       false,
		Message:       message,
		CorrelationID: correlationID,
	})
}

// generateCorrelationID creates a short random identifier for tying error
// responses to log entries.
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

// HealthCheck reports service and database status.
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(c.startTime).String(),
	}

	dbStatus := "connected"
	if _, err := c.DS.CountDetections(); err != nil {
		dbStatus = "disconnected"
		response["status"] = "degraded"
	}
	response["database_status"] = dbStatus

	return ctx.JSON(http.StatusOK, response)
}
