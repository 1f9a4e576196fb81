package api

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcomes used as metric labels.
const (
	outcomeSuccess  = "success"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
	outcomeSkipped  = "skipped"
)

// Metrics holds the Prometheus collectors of the upload service.
type Metrics struct {
	registry *prometheus.Registry

	uploadsTotal    *prometheus.CounterVec
	filesProcessed  *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	requestDuration *prometheus.HistogramVec
}

// NewMetrics registers the service collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediayear",
			Name:      "uploads_total",
			Help:      "Upload requests by outcome",
		}, []string{"outcome"}),

		filesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mediayear",
			Name:      "files_processed_total",
			Help:      "Uploaded files by media type and outcome",
		}, []string{"media_type", "outcome"}),

		uploadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mediayear",
			Name:      "upload_duration_seconds",
			Help:      "Time spent processing an upload request",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mediayear",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration by route and status",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}

// Middleware records the duration of every request by its route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else if ae, ok := err.(*APIError); ok {
					status = ae.Status
				}
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.requestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

func (m *Metrics) observeUpload(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	m.uploadDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeFile(mediaType, outcome string) {
	if m == nil {
		return
	}
	m.filesProcessed.WithLabelValues(mediaType, outcome).Inc()
}
