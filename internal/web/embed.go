// Package web provides the embedded page templates and static assets.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mediayear/backend/internal/models"
)

//go:embed templates/*.html
var templateFiles embed.FS

//go:embed static/*
var staticFiles embed.FS

// Page names accepted by Renderer.
const (
	PageIndex   = "index.html"
	PageResults = "results.html"
)

// IndexData feeds the upload page.
type IndexData struct {
	Title      string
	Endpoint   string
	Error      string
	Extensions []string
}

// ResultsData feeds the results page.
type ResultsData struct {
	Title    string
	Summary  string
	Analyses []*models.MediaAnalysis
}

// Renderer renders the embedded page templates. It implements echo.Renderer.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every page together with the shared layout.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, page := range []string{PageIndex, PageResults} {
		tmpl, err := template.ParseFS(templateFiles, "templates/layout.html", "templates/"+page)
		if err != nil {
			return nil, err
		}
		r.pages[page] = tmpl
	}
	return r, nil
}

// Render implements echo.Renderer.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "unknown page: "+name)
	}
	return tmpl.ExecuteTemplate(w, name, data)
}

// GetFileSystem returns the embedded static assets with the static folder as root.
func GetFileSystem() (fs.FS, error) {
	return fs.Sub(staticFiles, "static")
}

// RegisterStaticRoutes serves the embedded assets under /static/.
func RegisterStaticRoutes(e *echo.Echo) error {
	staticFS, err := GetFileSystem()
	if err != nil {
		return err
	}
	e.StaticFS("/static", staticFS)
	return nil
}
