// Package terminal renders the upload form surfaces on a text terminal.
package terminal

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mediayear/backend/internal/preview"
	"github.com/mediayear/backend/internal/uploadform"
)

var (
	nameColor  = color.New(color.Bold)
	iconColor  = color.New(color.FgCyan)
	alertColor = color.New(color.FgRed, color.Bold)
	navColor   = color.New(color.FgGreen)
)

// Icons resolves icon placeholders into glyphs once RenderIcons has been called.
type Icons struct {
	mu       sync.Mutex
	rendered bool
	glyphs   map[string]string
}

// NewIcons creates the default icon set.
func NewIcons() *Icons {
	return &Icons{
		glyphs: map[string]string{
			preview.VideoIcon: "▶",
			"image":           "▣",
		},
	}
}

// RenderIcons switches placeholders to glyphs.
func (i *Icons) RenderIcons() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.rendered = true
}

// Glyph returns the rendered glyph for name, or a textual placeholder before rendering.
func (i *Icons) Glyph(name string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	g, ok := i.glyphs[name]
	if !i.rendered || !ok {
		return "[" + name + "]"
	}
	return g
}

// Grid collects preview cards and prints them as a list.
type Grid struct {
	mu    sync.Mutex
	w     io.Writer
	icons *Icons
	cards []*preview.Card
}

// NewGrid creates a Grid writing to w.
func NewGrid(w io.Writer, icons *Icons) *Grid {
	return &Grid{w: w, icons: icons}
}

// Clear discards every card.
func (g *Grid) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards = nil
}

// Append adds a card.
func (g *Grid) Append(card *preview.Card) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards = append(g.cards, card)
}

// Len returns the number of cards.
func (g *Grid) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.cards)
}

// Flush prints the current cards.
func (g *Grid) Flush() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.cards) == 0 {
		fmt.Fprintln(g.w, "No previewable files selected")
		return
	}
	for _, card := range g.cards {
		switch card.Kind {
		case preview.KindImage:
			iconColor.Fprint(g.w, g.icons.Glyph("image"))
			fmt.Fprint(g.w, "  ")
			nameColor.Fprint(g.w, card.Name)
			fmt.Fprintf(g.w, "  (%s preview)\n", humanBytes(dataURLSize(card.DataURL)))
		case preview.KindVideo:
			iconColor.Fprint(g.w, g.icons.Glyph(card.Icon))
			fmt.Fprint(g.w, "  ")
			nameColor.Fprintln(g.w, card.Name)
		}
	}
}

// dataURLSize returns the decoded size of a base64 data URL payload.
func dataURLSize(dataURL string) int64 {
	i := strings.Index(dataURL, ",")
	if i < 0 {
		return 0
	}
	n := int64(len(dataURL) - i - 1)
	return n * 3 / 4
}

func humanBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

// ProgressBar draws an upload progress bar on a single line.
type ProgressBar struct {
	mu         sync.Mutex
	w          io.Writer
	width      int
	visible    bool
	fill       float64
	startTime  time.Time
	lastUpdate time.Time
}

// NewProgressBar creates a hidden progress bar writing to w.
func NewProgressBar(w io.Writer) *ProgressBar {
	return &ProgressBar{w: w, width: 40}
}

// Show makes the bar visible.
func (p *ProgressBar) Show() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.visible = true
	p.startTime = time.Now()
	p.draw(true)
}

// Hide ends the bar line.
func (p *ProgressBar) Hide() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.visible {
		fmt.Fprintln(p.w)
	}
	p.visible = false
}

// SetFill sets the filled percentage.
func (p *ProgressBar) SetFill(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fill = percent
	p.draw(percent >= 100)
}

// Fill returns the current percentage.
func (p *ProgressBar) Fill() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fill
}

// Visible reports whether the bar is shown.
func (p *ProgressBar) Visible() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.visible
}

func (p *ProgressBar) draw(force bool) {
	if !p.visible {
		return
	}
	// Only redraw every 100ms unless forced, to avoid flicker.
	if !force && time.Since(p.lastUpdate) < 100*time.Millisecond {
		return
	}
	p.lastUpdate = time.Now()

	completed := int(float64(p.width) * p.fill / 100)
	if completed > p.width {
		completed = p.width
	}
	if completed < 0 {
		completed = 0
	}
	bar := strings.Repeat("█", completed) + strings.Repeat("░", p.width-completed)
	fmt.Fprintf(p.w, "\r⬆️  Uploading... [%s] %.1f%%", bar, p.fill)
}

// Alerter prints alerts.
type Alerter struct {
	mu       sync.Mutex
	w        io.Writer
	messages []string
}

// NewAlerter creates an Alerter writing to w.
func NewAlerter(w io.Writer) *Alerter {
	return &Alerter{w: w}
}

// Alert prints message.
func (a *Alerter) Alert(message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, message)
	alertColor.Fprintf(a.w, "✗ %s\n", message)
}

// Messages returns every alert shown so far.
func (a *Alerter) Messages() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.messages...)
}

// Navigator resolves redirect targets against the server URL and prints them.
type Navigator struct {
	mu   sync.Mutex
	w    io.Writer
	base *url.URL
	last string
}

// NewNavigator creates a Navigator resolving relative targets against baseURL.
func NewNavigator(w io.Writer, baseURL string) (*Navigator, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Navigator{w: w, base: base}, nil
}

// Navigate records and prints the absolute target.
func (n *Navigator) Navigate(target string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	resolved := target
	if ref, err := url.Parse(target); err == nil {
		resolved = n.base.ResolveReference(ref).String()
	}
	n.last = resolved
	navColor.Fprintf(n.w, "✓ Upload complete, results at %s\n", resolved)
}

// Last returns the last navigation target, or "" when none happened.
func (n *Navigator) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

// Form is a fixed set of fields and files gathered from the command line.
type Form struct {
	mu            sync.Mutex
	fields        []uploadform.Field
	fileField     string
	files         []preview.File
	submitEnabled bool
}

// NewForm creates a Form.
func NewForm(fields []uploadform.Field, fileField string, files []preview.File) *Form {
	return &Form{fields: fields, fileField: fileField, files: files, submitEnabled: true}
}

// Payload returns the form content.
func (f *Form) Payload() (*uploadform.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &uploadform.Payload{
		Fields:    append([]uploadform.Field(nil), f.fields...),
		FileField: f.fileField,
		Files:     append([]preview.File(nil), f.files...),
	}, nil
}

// SetSubmitEnabled records whether submission is allowed.
func (f *Form) SetSubmitEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitEnabled = enabled
}

// SubmitEnabled reports whether submission is allowed.
func (f *Form) SubmitEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitEnabled
}

// ParseField parses a "name=value" command line field.
func ParseField(s string) (uploadform.Field, error) {
	name, value, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return uploadform.Field{}, fmt.Errorf("invalid field %q, expected name=value", s)
	}
	return uploadform.Field{Name: name, Value: value}, nil
}
