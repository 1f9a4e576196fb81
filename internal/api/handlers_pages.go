package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mediayear/backend/internal/media"
	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/uploadform"
	"github.com/mediayear/backend/internal/web"
)

// PageHandlerImpl implements the PageHandler interface
type PageHandlerImpl struct {
	allowed []string
}

// NewPageHandler creates a new page handler
func NewPageHandler(deps *Dependencies) PageHandler {
	return &PageHandlerImpl{allowed: deps.AllowedExtensions}
}

// HandleIndex renders the upload form.
func (h *PageHandlerImpl) HandleIndex(c echo.Context) error {
	return c.Render(http.StatusOK, web.PageIndex, web.IndexData{
		Title:      "Upload",
		Endpoint:   uploadform.DefaultEndpoint,
		Extensions: h.allowed,
	})
}

func resultsPage(list []*models.MediaAnalysis, summaryLimit int) web.ResultsData {
	return web.ResultsData{
		Title:    "Results",
		Summary:  media.GenerateYearlySummary(list, summaryLimit),
		Analyses: list,
	}
}
