package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mediayear/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	t.Run("index with error", func(t *testing.T) {
		var buf bytes.Buffer
		err := r.Render(&buf, PageIndex, IndexData{
			Title:      "Upload",
			Endpoint:   "/upload",
			Error:      "No selected file",
			Extensions: []string{"png", "mp4"},
		}, nil)
		require.NoError(t, err)

		html := buf.String()
		assert.Contains(t, html, `action="/upload"`)
		assert.Contains(t, html, `name="media"`)
		assert.Contains(t, html, "No selected file")
		assert.Contains(t, html, ".png, .mp4")
	})

	t.Run("results escapes content", func(t *testing.T) {
		var buf bytes.Buffer
		err := r.Render(&buf, PageResults, ResultsData{
			Title:   "Results",
			Summary: "Here's what your year looked like: a beach",
			Analyses: []*models.MediaAnalysis{
				{
					Filename:   "<script>.jpg",
					MediaType:  models.MediaTypeImage,
					UploadDate: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
					Result:     &models.AnalysisResult{Description: "a beach", Tags: []string{"sand", "sea"}},
				},
				{Filename: "clip.mp4", MediaType: models.MediaTypeVideo},
			},
		}, nil)
		require.NoError(t, err)

		html := buf.String()
		assert.Contains(t, html, "&lt;script&gt;.jpg")
		assert.Contains(t, html, "2024-05-01 09:30")
		assert.Contains(t, html, "sand, sea")
		assert.Contains(t, html, "no frames analyzed")
	})

	t.Run("unknown page", func(t *testing.T) {
		var buf bytes.Buffer
		assert.Error(t, r.Render(&buf, "missing.html", nil, nil))
	})
}

func TestRegisterStaticRoutes(t *testing.T) {
	e := echo.New()
	require.NoError(t, RegisterStaticRoutes(e))

	req := httptest.NewRequest(http.MethodGet, "/static/style.css", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ".preview-grid")
}
