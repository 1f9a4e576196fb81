package uploadform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mediayear/backend/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultEndpoint is the path the upload form posts to.
	DefaultEndpoint = "/upload"

	// DefaultFileField is the multi-part field name carrying the selected files.
	DefaultFileField = "media"

	// RequestedWithHeader marks a request as programmatic rather than a page navigation.
	RequestedWithHeader = "X-Requested-With"
	RequestedWithValue  = "XMLHttpRequest"

	maxResponseBytes = 1 << 20
)

const tracerName = "github.com/mediayear/backend/internal/uploadform"

// HTTPSubmitter posts payloads as multipart/form-data over HTTP.
// It sets no timeout of its own; the caller's context bounds the request.
type HTTPSubmitter struct {
	client   *http.Client
	endpoint string
	tracer   trace.Tracer
}

// SubmitterOption configures an HTTPSubmitter.
type SubmitterOption func(*HTTPSubmitter)

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(client *http.Client) SubmitterOption {
	return func(s *HTTPSubmitter) {
		if client != nil {
			s.client = client
		}
	}
}

// WithTracer sets the tracer used for submission spans.
func WithTracer(tracer trace.Tracer) SubmitterOption {
	return func(s *HTTPSubmitter) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// NewHTTPSubmitter creates a submitter posting to endpoint resolved against baseURL.
// An empty endpoint means DefaultEndpoint.
func NewHTTPSubmitter(baseURL, endpoint string, opts ...SubmitterOption) (*HTTPSubmitter, error) {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid server URL", goerr.V("url", baseURL))
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, goerr.New("server URL must be http or https", goerr.V("url", baseURL))
	}
	ref, err := url.Parse(endpoint)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid upload endpoint", goerr.V("endpoint", endpoint))
	}

	s := &HTTPSubmitter{
		client:   &http.Client{},
		endpoint: base.ResolveReference(ref).String(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Endpoint returns the absolute upload URL.
func (s *HTTPSubmitter) Endpoint() string {
	return s.endpoint
}

// Submit encodes payload, posts it and validates the JSON answer.
// Non-2xx statuses and bodies that are not a well-formed upload response are errors.
func (s *HTTPSubmitter) Submit(ctx context.Context, payload *Payload, progress ProgressFunc) (*models.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "uploadform.Submit", trace.WithAttributes(
		attribute.String("upload.endpoint", s.endpoint),
		attribute.Int("upload.files", len(payload.Files)),
	))
	defer span.End()

	resp, err := s.submit(ctx, payload, progress)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("upload.success", resp.Success))
	return resp, nil
}

func (s *HTTPSubmitter) submit(ctx context.Context, payload *Payload, progress ProgressFunc) (*models.SubmissionResponse, error) {
	body, contentType, err := EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	total := int64(body.Len())
	var reader io.Reader = bytes.NewReader(body.Bytes())
	if progress != nil {
		reader = &progressReader{r: reader, total: total, report: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to build upload request")
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestedWithHeader, RequestedWithValue)

	httpResp, err := s.client.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "upload request failed", goerr.V("endpoint", s.endpoint))
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read upload response")
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, goerr.New("upload endpoint returned an error status",
			goerr.V("status", httpResp.StatusCode),
			goerr.V("body", truncate(string(raw), 256)))
	}

	resp, err := models.ParseSubmissionResponse(raw)
	if err != nil {
		return nil, goerr.Wrap(err, "unexpected upload response", goerr.V("body", truncate(string(raw), 256)))
	}
	return resp, nil
}

// EncodePayload writes payload as multipart/form-data: text fields first, then one
// part per file under the payload's file field, each carrying its declared type.
func EncodePayload(payload *Payload) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, field := range payload.Fields {
		if err := mw.WriteField(field.Name, field.Value); err != nil {
			return nil, "", goerr.Wrap(err, "failed to write form field", goerr.V("field", field.Name))
		}
	}

	fileField := payload.FileField
	if fileField == "" {
		fileField = DefaultFileField
	}

	for _, f := range payload.Files {
		contentType := f.Type()
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			quoteEscaper.Replace(fileField), quoteEscaper.Replace(f.Name())))
		h.Set("Content-Type", contentType)

		part, err := mw.CreatePart(h)
		if err != nil {
			return nil, "", goerr.Wrap(err, "failed to create file part", goerr.V("file", f.Name()))
		}

		if err := copyFile(part, f.Open); err != nil {
			return nil, "", goerr.Wrap(err, "failed to read selected file", goerr.V("file", f.Name()))
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", goerr.Wrap(err, "failed to finish multipart body")
	}
	return &buf, mw.FormDataContentType(), nil
}

func copyFile(dst io.Writer, open func() (io.ReadCloser, error)) error {
	src, err := open()
	if err != nil {
		return err
	}
	defer src.Close()
	_, err = io.Copy(dst, src)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// progressReader reports how many bytes of the request body have been consumed.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		pr.report(pr.sent, pr.total)
	}
	return n, err
}
