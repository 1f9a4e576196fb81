package media

import (
	"strings"

	"github.com/mediayear/backend/internal/models"
)

// Summary messages.
const (
	SummaryEmpty    = "No media has been analyzed yet."
	SummaryNoEvents = "Your media has been processed, but no significant events were detected."
	summaryPrefix   = "Here's what your year looked like: "
)

// DefaultSummaryEventLimit is the number of descriptions quoted in a summary.
const DefaultSummaryEventLimit = 5

// GenerateYearlySummary builds the results page summary from analyses in display order,
// quoting the first limit descriptions.
func GenerateYearlySummary(analyses []*models.MediaAnalysis, limit int) string {
	if len(analyses) == 0 {
		return SummaryEmpty
	}
	if limit <= 0 {
		limit = DefaultSummaryEventLimit
	}

	var events []string
	for _, a := range analyses {
		if a.Result == nil || a.Result.Description == "" {
			continue
		}
		events = append(events, a.Result.Description)
		if len(events) == limit {
			break
		}
	}

	if len(events) == 0 {
		return SummaryNoEvents
	}
	return summaryPrefix + strings.Join(events, " ")
}
