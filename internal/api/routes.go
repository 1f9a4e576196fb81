// routes.go - Route registration helpers
package api

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mediayear/backend/internal/analysis"
	"github.com/mediayear/backend/internal/storage"
	"github.com/mediayear/backend/internal/uploadform"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store             storage.Store
	Analyses          analysis.Store
	Processor         MediaProcessor
	Archiver          storage.Archiver
	Metrics           *Metrics
	AllowedExtensions []string
	SummaryLimit      int
	Version           string
	Logger            *slog.Logger
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// Handlers holds all handler instances
type Handlers struct {
	Health  HealthHandler
	Upload  UploadHandler
	Results ResultsHandler
	Pages   PageHandler
	Metrics *Metrics
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:  NewHealthHandler(deps),
		Upload:  NewUploadHandler(deps),
		Results: NewResultsHandler(deps),
		Pages:   NewPageHandler(deps),
		Metrics: deps.Metrics,
	}
}

// RegisterRoutes registers all routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/health", handlers.Health.HandleHealth)
	if handlers.Metrics != nil {
		e.GET("/metrics", handlers.Metrics.Handler())
	}

	// Pages
	e.GET("/", handlers.Pages.HandleIndex)
	e.GET(ResultsPath, handlers.Results.HandleResultsPage)

	// Upload endpoint
	e.POST(uploadform.DefaultEndpoint, handlers.Upload.HandleUpload)

	// Analyses API
	apiGroup := e.Group("/api/analyses")
	apiGroup.GET("", handlers.Results.HandleListAnalyses)
	apiGroup.GET("/msgpack", handlers.Results.HandleListAnalysesMsgpack)
}

// MiddlewareConfig selects the common middleware
type MiddlewareConfig struct {
	BodyLimit      string
	RequestLogging bool
	ShowErrors     bool
	AllowOrigins   []string // CORS is enabled when non-empty
	Metrics        *Metrics
	Logger         *slog.Logger
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, cfg MiddlewareConfig) {
	e.HTTPErrorHandler = NewErrorHandler(cfg.Logger, cfg.ShowErrors)

	if cfg.RequestLogging {
		logger := cfg.Logger
		if logger == nil {
			logger = slog.Default()
		}
		e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
			Skipper:    quietPaths,
			LogMethod:  true,
			LogURI:     true,
			LogStatus:  true,
			LogLatency: true,
			LogError:   true,
			LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
				attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
				if v.Error != nil {
					attrs = append(attrs, "error", v.Error)
				}
				logger.Info("request", attrs...)
				return nil
			},
		}))
	}

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize: 1024 * 4,
	}))

	if len(cfg.AllowOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, uploadform.RequestedWithHeader},
		}))
	}

	if cfg.Metrics != nil {
		e.Use(cfg.Metrics.Middleware())
	}

	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
}

func quietPaths(c echo.Context) bool {
	path := c.Request().URL.Path
	return path == "/health" || path == "/metrics" || strings.HasPrefix(path, "/static/")
}
