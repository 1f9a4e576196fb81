package api

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/testutil"
	"github.com/mediayear/backend/internal/web"
	"github.com/stretchr/testify/require"
)

type testPart struct {
	field       string
	filename    string
	contentType string
	content     string
}

func media(filename, contentType, content string) testPart {
	return testPart{field: "media", filename: filename, contentType: contentType, content: content}
}

func newMultipartRequest(t *testing.T, parts []testPart, xhr bool) *http.Request {
	t.Helper()

	body := new(bytes.Buffer)
	writer := multipart.NewWriter(body)
	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.field, p.filename))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}
		part, err := writer.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte(p.content))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	if xhr {
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
	}
	return req
}

type testServer struct {
	e         *echo.Echo
	store     *testutil.MockStorage
	analyses  *testutil.MockAnalysisStore
	processor *testutil.StubProcessor
	metrics   *Metrics
	deps      *Dependencies
}

func newTestServer(t *testing.T, seed ...*models.MediaAnalysis) *testServer {
	t.Helper()

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	ts := &testServer{
		store:    testutil.NewMockStorage(t.TempDir()),
		analyses: testutil.NewMockAnalysisStore(seed...),
		processor: &testutil.StubProcessor{
			Results: map[models.MediaType]*models.AnalysisResult{
				models.MediaTypeImage: {Description: "a bright blue scene", Tags: []string{"sky"}},
				models.MediaTypeVideo: {Description: "a dim gray snapshot"},
			},
		},
		metrics: NewMetrics(),
	}
	ts.deps = &Dependencies{
		Store:             ts.store,
		Analyses:          ts.analyses,
		Processor:         ts.processor,
		Metrics:           ts.metrics,
		AllowedExtensions: []string{"png", "jpg", "jpeg", "gif", "mp4", "mov", "avi"},
		SummaryLimit:      5,
		Version:           "test",
	}

	ts.e = echo.New()
	ts.e.Renderer = renderer
	SetupMiddleware(ts.e, MiddlewareConfig{BodyLimit: "16M", Metrics: ts.metrics})
	RegisterRoutes(ts.e, NewHandlers(ts.deps))
	return ts
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}
