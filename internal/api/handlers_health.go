// handlers_health.go - Health check handlers
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mediayear/backend/internal/analysis"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	analyses analysis.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(deps *Dependencies) HealthHandler {
	return &HealthHandlerImpl{
		version:  deps.Version,
		analyses: deps.Analyses,
	}
}

// HandleHealth returns server health status. The analysis store must answer within
// two seconds for the service to be reported healthy.
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	count, err := h.analyses.Count(ctx)
	if err != nil {
		return NewServiceUnavailableError("analysis store unavailable", err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"analyses": count,
	})
}
