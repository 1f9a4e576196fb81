// Package uploadform implements the upload form controller: it previews selected
// media files and submits the form out of band, reacting to the JSON answer of the
// upload endpoint.
//
// The controller never looks its UI surfaces up globally. Everything it touches is
// handed to New, so a terminal, a browser bridge or a test fake can stand in for
// the form, the progress indicator and the preview grid.
package uploadform

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/preview"
)

// GenericFailureMessage is shown when a submission fails for any reason other than
// an explicit rejection by the server.
const GenericFailureMessage = "An error occurred during upload"

const rejectionPrefix = "Upload failed: "

// ErrSubmitInFlight is returned by HandleSubmit while another submission is running.
var ErrSubmitInFlight = errors.New("submission already in flight")

// Field is a textual form field.
type Field struct {
	Name  string
	Value string
}

// Payload is the multi-part content of the form at submit time.
type Payload struct {
	Fields    []Field
	FileField string
	Files     []preview.File
}

// Form is the form element holding the fields and the file selection control.
type Form interface {
	Payload() (*Payload, error)
	SetSubmitEnabled(enabled bool)
}

// ProgressIndicator is the progress bar shown while a submission is in flight.
type ProgressIndicator interface {
	Show()
	Hide()
	SetFill(percent float64)
}

// PreviewGrid is the container receiving preview cards.
type PreviewGrid interface {
	Clear()
	Append(card *preview.Card)
}

// IconRenderer turns icon placeholders into rendered icons.
type IconRenderer interface {
	RenderIcons()
}

// Navigator performs a full page navigation.
type Navigator interface {
	Navigate(url string)
}

// Alerter shows a blocking message to the user.
type Alerter interface {
	Alert(message string)
}

// ProgressFunc receives the number of payload bytes sent so far.
type ProgressFunc func(sent, total int64)

// Submitter posts a payload to the upload endpoint.
type Submitter interface {
	Submit(ctx context.Context, payload *Payload, progress ProgressFunc) (*models.SubmissionResponse, error)
}

// Dependencies are the collaborators of a Controller. All fields are required.
type Dependencies struct {
	Form      Form
	Progress  ProgressIndicator
	Grid      PreviewGrid
	Icons     IconRenderer
	Navigator Navigator
	Alerter   Alerter
	Submitter Submitter
}

func (d *Dependencies) validate() error {
	missing := func(name string) error {
		return goerr.New("missing controller dependency", goerr.V("dependency", name))
	}
	switch {
	case d.Form == nil:
		return missing("Form")
	case d.Progress == nil:
		return missing("Progress")
	case d.Grid == nil:
		return missing("Grid")
	case d.Icons == nil:
		return missing("Icons")
	case d.Navigator == nil:
		return missing("Navigator")
	case d.Alerter == nil:
		return missing("Alerter")
	case d.Submitter == nil:
		return missing("Submitter")
	}
	return nil
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for diagnostic records.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithFileReader replaces the function that turns an image file into a data URL.
func WithFileReader(read func(preview.File) (string, error)) Option {
	return func(c *Controller) {
		if read != nil {
			c.readFile = read
		}
	}
}

// RejectedError is returned by HandleSubmit when the server answered success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return "upload rejected: " + e.Message
}

// Controller wires file selection and form submission to their UI reactions.
type Controller struct {
	deps     Dependencies
	logger   *slog.Logger
	readFile func(preview.File) (string, error)

	// mu serializes grid mutations and guards the selection generation.
	mu         sync.Mutex
	generation uint64
	pending    *sync.WaitGroup

	submitting atomic.Bool
}

// New creates a Controller.
func New(deps Dependencies, opts ...Option) (*Controller, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	c := &Controller{
		deps:     deps,
		logger:   slog.Default(),
		readFile: preview.ReadDataURL,
		pending:  &sync.WaitGroup{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// HandleSelectionChange rebuilds the preview grid for a new file selection.
//
// The grid is cleared first. Video placeholders are appended immediately; image
// cards are appended whenever their asynchronous read completes, in whatever order
// the reads finish. Reads that complete after a newer selection has started are
// discarded.
func (c *Controller) HandleSelectionChange(ctx context.Context, files []preview.File) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	gen := c.generation
	wg := &sync.WaitGroup{}
	c.pending = wg

	c.deps.Grid.Clear()

	for _, f := range files {
		switch preview.Classify(f.Type()) {
		case preview.KindImage:
			wg.Add(1)
			go c.readImage(ctx, gen, wg, f)
		case preview.KindVideo:
			c.deps.Grid.Append(preview.VideoCard(f.Name()))
			c.deps.Icons.RenderIcons()
		default:
			c.logger.Debug("no preview for file", "name", f.Name(), "type", f.Type())
		}
	}
}

func (c *Controller) readImage(ctx context.Context, gen uint64, wg *sync.WaitGroup, f preview.File) {
	defer wg.Done()

	if ctx.Err() != nil {
		return
	}

	dataURL, err := c.readFile(f)
	if err != nil {
		c.logger.Debug("failed to read image for preview", "name", f.Name(), "error", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation || ctx.Err() != nil {
		return
	}
	c.deps.Grid.Append(preview.ImageCard(f.Name(), dataURL))
}

// Wait blocks until every image read of the current selection has settled.
func (c *Controller) Wait() {
	c.mu.Lock()
	wg := c.pending
	c.mu.Unlock()
	wg.Wait()
}

// HandleSubmit submits the form and reacts to the response.
//
// On success the navigator is sent to the redirect target. An explicit rejection
// alerts the server's message; every other failure alerts GenericFailureMessage.
// Whatever happens, the progress indicator ends hidden and empty and the submit
// control is enabled again. A call made while a submission is in flight returns
// ErrSubmitInFlight without touching the UI.
func (c *Controller) HandleSubmit(ctx context.Context) error {
	if !c.submitting.CompareAndSwap(false, true) {
		return ErrSubmitInFlight
	}
	defer c.submitting.Store(false)

	c.deps.Form.SetSubmitEnabled(false)
	defer func() {
		c.deps.Progress.Hide()
		c.deps.Progress.SetFill(0)
		c.deps.Form.SetSubmitEnabled(true)
	}()

	payload, err := c.deps.Form.Payload()
	if err != nil {
		return c.fail(goerr.Wrap(err, "failed to collect form payload"))
	}

	c.deps.Progress.Show()

	resp, err := c.deps.Submitter.Submit(ctx, payload, c.reportProgress)
	if err != nil {
		return c.fail(err)
	}

	if resp.Success {
		c.deps.Navigator.Navigate(resp.Redirect)
		return nil
	}

	if resp.Error == "" {
		return c.fail(goerr.New("upload rejected without a message"))
	}
	c.deps.Alerter.Alert(rejectionPrefix + resp.Error)
	return &RejectedError{Message: resp.Error}
}

func (c *Controller) fail(err error) error {
	c.logger.Error("upload submission failed", "error", err)
	c.deps.Alerter.Alert(GenericFailureMessage)
	return err
}

func (c *Controller) reportProgress(sent, total int64) {
	if total <= 0 {
		return
	}
	percent := float64(sent) / float64(total) * 100
	if percent > 100 {
		percent = 100
	}
	c.deps.Progress.SetFill(percent)
}
