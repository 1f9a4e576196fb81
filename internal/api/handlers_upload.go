// handlers_upload.go - Media upload handler
package api

import (
	"context"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mediayear/backend/internal/analysis"
	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/storage"
	"github.com/mediayear/backend/internal/uploadform"
	"github.com/mediayear/backend/internal/web"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Messages returned to the client in {success:false, error}.
const (
	MsgNoFilePart      = "No file part"
	MsgNoSelectedFile  = "No selected file"
	MsgNothingAnalyzed = "No files were successfully processed"
)

var (
	errNoFilePart     = errors.New(MsgNoFilePart)
	errNoSelectedFile = errors.New(MsgNoSelectedFile)
)

// ResultsPath is where a successful upload sends the client.
const ResultsPath = "/results"

// UploadHandlerImpl implements the UploadHandler interface
type UploadHandlerImpl struct {
	store     storage.Store
	analyses  analysis.Store
	processor MediaProcessor
	archiver  storage.Archiver
	metrics   *Metrics
	allowed   []string
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// NewUploadHandler creates a new upload handler instance
func NewUploadHandler(deps *Dependencies) UploadHandler {
	archiver := deps.Archiver
	if archiver == nil {
		archiver = storage.NopArchiver{}
	}
	return &UploadHandlerImpl{
		store:     deps.Store,
		analyses:  deps.Analyses,
		processor: deps.Processor,
		archiver:  archiver,
		metrics:   deps.Metrics,
		allowed:   deps.AllowedExtensions,
		logger:    deps.logger(),
		tracer:    otel.Tracer("github.com/mediayear/backend/internal/api"),
		now:       time.Now,
	}
}

// HandleUpload accepts the multi-part field "media" with one or more files, analyzes
// every allowed file and records the results in one transaction.
func (h *UploadHandlerImpl) HandleUpload(c echo.Context) error {
	started := time.Now()
	ctx, span := h.tracer.Start(c.Request().Context(), "upload",
		trace.WithSpanKind(trace.SpanKindServer))
	defer span.End()

	files, err := mediaFiles(c)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		h.metrics.observeUpload(outcomeRejected, time.Since(started))
		return h.respond(c, models.UploadFailed(err.Error()))
	}
	span.SetAttributes(attribute.Int("upload.files", len(files)))

	var analyses []*models.MediaAnalysis
	for _, fh := range files {
		if fh.Filename == "" || !AllowedFile(fh.Filename, h.allowed) {
			h.logger.Debug("skipping file", "filename", fh.Filename)
			h.metrics.observeFile("unknown", outcomeSkipped)
			continue
		}

		a, err := h.processFile(ctx, fh)
		if err != nil {
			h.logger.Error("failed to process upload", "filename", fh.Filename, "error", err)
			span.RecordError(err)
			h.metrics.observeFile(string(mediaTypeOf(fh.Header.Get(echo.HeaderContentType), fh.Filename)), outcomeFailed)
			continue
		}
		h.metrics.observeFile(string(a.MediaType), outcomeSuccess)
		analyses = append(analyses, a)
	}

	if len(analyses) == 0 {
		span.SetStatus(codes.Error, MsgNothingAnalyzed)
		h.metrics.observeUpload(outcomeFailed, time.Since(started))
		return h.respond(c, models.UploadFailed(MsgNothingAnalyzed))
	}

	if err := h.analyses.Insert(ctx, analyses); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to store analyses")
		h.metrics.observeUpload(outcomeFailed, time.Since(started))
		return NewInternalError("failed to store analyses", err)
	}

	span.SetAttributes(attribute.Int("upload.analyses", len(analyses)))
	span.SetStatus(codes.Ok, "")
	h.metrics.observeUpload(outcomeSuccess, time.Since(started))
	h.logger.Info("upload processed", "files", len(files), "analyses", len(analyses), "duration", time.Since(started))
	return h.respond(c, models.UploadSucceeded(ResultsPath))
}

// mediaFiles returns the files of the "media" field or a user-facing rejection.
func mediaFiles(c echo.Context) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, errNoFilePart
	}
	files := form.File[uploadform.DefaultFileField]
	if len(files) == 0 {
		// parts sent with an empty filename are parsed as plain values
		if _, ok := form.Value[uploadform.DefaultFileField]; ok {
			return nil, errNoSelectedFile
		}
		return nil, errNoFilePart
	}
	for _, fh := range files {
		if fh.Filename != "" {
			return files, nil
		}
	}
	return nil, errNoSelectedFile
}

// processFile stages one upload in the temp store, archives the original, runs the
// processor and removes the temp copy whatever happens.
func (h *UploadHandlerImpl) processFile(ctx context.Context, fh *multipart.FileHeader) (*models.MediaAnalysis, error) {
	filename := SecureFilename(fh.Filename)
	if filename == "" {
		return nil, goerr.New("filename is empty after sanitizing", goerr.V("original", fh.Filename))
	}
	contentType := fh.Header.Get(echo.HeaderContentType)

	src, err := fh.Open()
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open upload", goerr.V("filename", filename))
	}
	defer src.Close()

	info, err := h.store.Save(filename, contentType, src)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to stage upload", goerr.V("filename", filename))
	}
	defer func() {
		if err := h.store.Delete(info.ID); err != nil {
			h.logger.Warn("failed to remove temp file", "id", info.ID, "error", err)
		}
	}()

	h.archive(ctx, info)

	path, err := h.store.GetFilePath(info.ID)
	if err != nil {
		return nil, err
	}

	mediaType := mediaTypeOf(contentType, filename)
	result, err := h.processor.Process(ctx, path, mediaType)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to process media", goerr.V("filename", filename))
	}

	return &models.MediaAnalysis{
		Filename:   filename,
		UploadDate: h.now(),
		Result:     result,
		MediaType:  mediaType,
		Processed:  true,
	}, nil
}

// archive keeps the original. Failures are logged and do not fail the upload.
func (h *UploadHandlerImpl) archive(ctx context.Context, info *models.FileInfo) {
	if _, ok := h.archiver.(storage.NopArchiver); ok {
		return
	}
	rc, err := h.store.Open(info.ID)
	if err != nil {
		h.logger.Warn("failed to open upload for archiving", "id", info.ID, "error", err)
		return
	}
	defer rc.Close()

	location, err := h.archiver.Archive(ctx, info, rc)
	if err != nil {
		h.logger.Warn("failed to archive upload", "filename", info.Name, "error", err)
		return
	}
	h.logger.Debug("upload archived", "filename", info.Name, "location", location)
}

// respond answers programmatic requests with JSON. A plain form post is redirected on
// success or gets the upload page back with the error.
func (h *UploadHandlerImpl) respond(c echo.Context, resp *models.SubmissionResponse) error {
	if isProgrammatic(c.Request()) {
		return c.JSON(http.StatusOK, resp)
	}
	if resp.Success {
		return c.Redirect(http.StatusSeeOther, resp.Redirect)
	}
	return c.Render(http.StatusOK, web.PageIndex, web.IndexData{
		Title:      "Upload",
		Endpoint:   uploadform.DefaultEndpoint,
		Error:      resp.Error,
		Extensions: h.allowed,
	})
}

func isProgrammatic(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get(uploadform.RequestedWithHeader), uploadform.RequestedWithValue)
}
