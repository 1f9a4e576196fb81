// interfaces.go - Handler interface definitions
package api

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/mediayear/backend/internal/models"
)

// UploadHandler accepts media uploads
type UploadHandler interface {
	HandleUpload(c echo.Context) error
}

// ResultsHandler serves stored analyses
type ResultsHandler interface {
	HandleResultsPage(c echo.Context) error
	HandleListAnalyses(c echo.Context) error
	HandleListAnalysesMsgpack(c echo.Context) error
}

// PageHandler serves the upload page
type PageHandler interface {
	HandleIndex(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// MediaProcessor turns a stored upload into an analysis result.
// A nil result with a nil error means there was nothing to analyze.
type MediaProcessor interface {
	Process(ctx context.Context, path string, mediaType models.MediaType) (*models.AnalysisResult, error)
}
