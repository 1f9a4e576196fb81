package uploadform

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/mediayear/backend/internal/models"
	"github.com/mediayear/backend/internal/preview"
)

type fakeFile struct {
	name     string
	mimeType string
	content  []byte
	openErr  error
}

func (f *fakeFile) Name() string { return f.name }
func (f *fakeFile) Type() string { return f.mimeType }
func (f *fakeFile) Open() (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(bytes.NewReader(f.content)), nil
}

type fakeGrid struct {
	mu     sync.Mutex
	cards  []*preview.Card
	clears int
}

func (g *fakeGrid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards = nil
	g.clears++
}

func (g *fakeGrid) Append(card *preview.Card) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards = append(g.cards, card)
}

func (g *fakeGrid) names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.cards))
	for _, c := range g.cards {
		names = append(names, c.Name)
	}
	return names
}

func (g *fakeGrid) snapshot() []*preview.Card {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*preview.Card(nil), g.cards...)
}

type fakeProgress struct {
	mu      sync.Mutex
	visible bool
	fill    float64
	events  []string
	fills   []float64
}

func (p *fakeProgress) Show() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
	p.events = append(p.events, "show")
}

func (p *fakeProgress) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = false
	p.events = append(p.events, "hide")
}

func (p *fakeProgress) SetFill(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fill = percent
	p.fills = append(p.fills, percent)
	p.events = append(p.events, "fill")
}

type fakeIcons struct {
	mu    sync.Mutex
	calls int
}

func (i *fakeIcons) RenderIcons() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls++
}

type fakeNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *fakeNavigator) Navigate(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
}

type fakeAlerter struct {
	mu       sync.Mutex
	messages []string
}

func (a *fakeAlerter) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
}

type fakeForm struct {
	mu         sync.Mutex
	payload    *Payload
	payloadErr error
	enabled    []bool
}

func (f *fakeForm) Payload() (*Payload, error) {
	if f.payloadErr != nil {
		return nil, f.payloadErr
	}
	return f.payload, nil
}

func (f *fakeForm) SetSubmitEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = append(f.enabled, enabled)
}

// stubSubmitter answers with a fixed response or error, optionally blocking until release.
type stubSubmitter struct {
	resp    *models.SubmissionResponse
	err     error
	started chan struct{}
	release chan struct{}
}

func (s *stubSubmitter) Submit(ctx context.Context, payload *Payload, progress ProgressFunc) (*models.SubmissionResponse, error) {
	if s.started != nil {
		close(s.started)
	}
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if progress != nil {
		progress(50, 100)
		progress(100, 100)
	}
	return s.resp, s.err
}

type harness struct {
	form      *fakeForm
	progress  *fakeProgress
	grid      *fakeGrid
	icons     *fakeIcons
	navigator *fakeNavigator
	alerter   *fakeAlerter
}

func newHarness() *harness {
	return &harness{
		form:      &fakeForm{payload: &Payload{FileField: DefaultFileField}},
		progress:  &fakeProgress{},
		grid:      &fakeGrid{},
		icons:     &fakeIcons{},
		navigator: &fakeNavigator{},
		alerter:   &fakeAlerter{},
	}
}

func (h *harness) deps(s Submitter) Dependencies {
	return Dependencies{
		Form:      h.form,
		Progress:  h.progress,
		Grid:      h.grid,
		Icons:     h.icons,
		Navigator: h.navigator,
		Alerter:   h.alerter,
		Submitter: s,
	}
}

var errUnreadable = errors.New("unreadable")
