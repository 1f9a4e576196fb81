package media

import (
	"bytes"
	"context"
	_ "embed"
	"image"
	"os"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mediayear/backend/internal/models"
	"gopkg.in/yaml.v3"
)

// Analyzer describes the content of an encoded image.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*models.AnalysisResult, error)
}

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Vocabulary maps measured image properties to words.
type Vocabulary struct {
	Brightness   []BrightnessTerm  `yaml:"brightness"`
	Orientations map[string]string `yaml:"orientations"`
	Colors       []ColorTerm       `yaml:"colors"`
}

// BrightnessTerm applies to images whose mean luma is at most Max (0..1).
type BrightnessTerm struct {
	Max       float64  `yaml:"max"`
	Adjective string   `yaml:"adjective"`
	Tags      []string `yaml:"tags"`
}

// ColorTerm is a named reference colour.
type ColorTerm struct {
	Name    string   `yaml:"name"`
	RGB     [3]uint8 `yaml:"rgb"`
	Tags    []string `yaml:"tags"`
	Objects []string `yaml:"objects"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := ParseVocabulary(defaultVocabulary)
	if err != nil {
		panic(err)
	}
	return v
}

// LoadVocabulary reads a vocabulary file. An empty path returns the built-in vocabulary.
func LoadVocabulary(path string) (*Vocabulary, error) {
	if path == "" {
		return DefaultVocabulary(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read vocabulary", goerr.V("path", path))
	}
	v, err := ParseVocabulary(data)
	if err != nil {
		return nil, goerr.Wrap(err, "invalid vocabulary", goerr.V("path", path))
	}
	return v, nil
}

// ParseVocabulary decodes and validates a YAML vocabulary.
func ParseVocabulary(data []byte) (*Vocabulary, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, goerr.Wrap(err, "failed to parse vocabulary")
	}
	if len(v.Colors) == 0 {
		return nil, goerr.New("vocabulary has no colors")
	}
	if len(v.Brightness) == 0 {
		return nil, goerr.New("vocabulary has no brightness terms")
	}
	return &v, nil
}

// PaletteAnalyzer describes an image by its orientation, brightness and dominant colour.
// It does not detect faces.
type PaletteAnalyzer struct {
	vocab      *Vocabulary
	maxSamples int
}

// NewPaletteAnalyzer creates an analyzer. A nil vocabulary selects the built-in one.
func NewPaletteAnalyzer(vocab *Vocabulary) *PaletteAnalyzer {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &PaletteAnalyzer{vocab: vocab, maxSamples: 10000}
}

// Analyze implements Analyzer.
func (a *PaletteAnalyzer) Analyze(ctx context.Context, data []byte) (*models.AnalysisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode image for analysis")
	}

	stats := measure(img, a.maxSamples)
	brightness := a.brightnessTerm(stats.luma)
	color := a.vocab.Colors[a.dominantColor(stats.votes)]
	orientation := orientationOf(img.Bounds())

	noun := a.vocab.Orientations[orientation]
	if noun == "" {
		noun = "image"
	}

	result := &models.AnalysisResult{
		Description: strings.Join(nonEmpty(brightness.Adjective, color.Name, noun), " "),
		Objects:     append([]string{}, color.Objects...),
	}
	result.Tags = dedupe(append(append(append([]string{}, brightness.Tags...), color.Tags...), orientation))
	return result, nil
}

func (a *PaletteAnalyzer) brightnessTerm(luma float64) BrightnessTerm {
	for _, t := range a.vocab.Brightness {
		if luma <= t.Max {
			return t
		}
	}
	return a.vocab.Brightness[len(a.vocab.Brightness)-1]
}

// dominantColor returns the index of the colour closest to the most sampled pixels,
// preferring earlier entries on ties.
func (a *PaletteAnalyzer) dominantColor(pixels []rgb) int {
	counts := make([]int, len(a.vocab.Colors))
	for _, p := range pixels {
		counts[a.nearestColor(p)]++
	}
	best := 0
	for i, n := range counts {
		if n > counts[best] {
			best = i
		}
	}
	return best
}

func (a *PaletteAnalyzer) nearestColor(p rgb) int {
	best, bestDist := 0, -1
	for i, c := range a.vocab.Colors {
		dr := int(p.r) - int(c.RGB[0])
		dg := int(p.g) - int(c.RGB[1])
		db := int(p.b) - int(c.RGB[2])
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

type rgb struct{ r, g, b uint8 }

type imageStats struct {
	luma  float64
	votes []rgb
}

func measure(img image.Image, maxSamples int) imageStats {
	b := img.Bounds()
	step := 1
	for (b.Dx()/step)*(b.Dy()/step) > maxSamples {
		step++
	}

	var stats imageStats
	var sum float64
	for y := b.Min.Y; y < b.Max.Y; y += step {
		for x := b.Min.X; x < b.Max.X; x += step {
			r, g, bl, _ := img.At(x, y).RGBA()
			p := rgb{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8)}
			stats.votes = append(stats.votes, p)
			sum += (0.299*float64(p.r) + 0.587*float64(p.g) + 0.114*float64(p.b)) / 255
		}
	}
	if n := len(stats.votes); n > 0 {
		stats.luma = sum / float64(n)
	}
	return stats
}

func orientationOf(b image.Rectangle) string {
	w, h := b.Dx(), b.Dy()
	switch {
	case w*10 > h*11:
		return "landscape"
	case h*10 > w*11:
		return "portrait"
	default:
		return "square"
	}
}

func nonEmpty(parts ...string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
