// handlers_results.go - Analysis results handlers
package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mediayear/backend/internal/analysis"
	"github.com/mediayear/backend/internal/media"
	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/web"
	"github.com/vmihailenco/msgpack/v5"
)

// analysesResponse is the body of the analyses listing endpoints.
type analysesResponse struct {
	Analyses []*models.MediaAnalysis `json:"analyses" msgpack:"analyses"`
	Summary  string                  `json:"summary" msgpack:"summary"`
	Count    int                     `json:"count" msgpack:"count"`
}

// ResultsHandlerImpl implements the ResultsHandler interface
type ResultsHandlerImpl struct {
	analyses     analysis.Store
	summaryLimit int
	logger       *slog.Logger
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(deps *Dependencies) ResultsHandler {
	return &ResultsHandlerImpl{
		analyses:     deps.Analyses,
		summaryLimit: deps.SummaryLimit,
		logger:       deps.logger(),
	}
}

// HandleResultsPage renders every analysis newest first with the yearly summary.
func (h *ResultsHandlerImpl) HandleResultsPage(c echo.Context) error {
	list, err := h.analyses.ListRecent(c.Request().Context(), 0)
	if err != nil {
		return NewInternalError("failed to load analyses", err)
	}

	return c.Render(http.StatusOK, web.PageResults, resultsPage(list, h.summaryLimit))
}

// HandleListAnalyses returns the analyses as JSON.
// Query param limit caps the number returned; the summary is computed over that page.
func (h *ResultsHandlerImpl) HandleListAnalyses(c echo.Context) error {
	resp, err := h.list(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// HandleListAnalysesMsgpack returns the same body as HandleListAnalyses encoded as msgpack.
func (h *ResultsHandlerImpl) HandleListAnalysesMsgpack(c echo.Context) error {
	resp, err := h.list(c)
	if err != nil {
		return err
	}

	data, err := msgpack.Marshal(resp)
	if err != nil {
		return NewInternalError("failed to encode msgpack", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", data)
}

func (h *ResultsHandlerImpl) list(c echo.Context) (*analysesResponse, error) {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, NewBadRequestError("limit must be a non-negative integer", err)
		}
		limit = n
	}

	list, err := h.analyses.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return nil, NewInternalError("failed to load analyses", err)
	}
	if list == nil {
		list = []*models.MediaAnalysis{}
	}

	return &analysesResponse{
		Analyses: list,
		Summary:  media.GenerateYearlySummary(list, h.summaryLimit),
		Count:    len(list),
	}, nil
}
