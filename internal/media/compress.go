package media

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/image/draw"
)

// CompressOptions bound the size and quality of a compressed image.
type CompressOptions struct {
	MaxWidth  int
	MaxHeight int
	Quality   int
}

// DefaultCompressOptions fit images inside 800x800 at JPEG quality 85.
var DefaultCompressOptions = CompressOptions{MaxWidth: 800, MaxHeight: 800, Quality: 85}

// CompressImage decodes a JPEG, PNG or GIF image, shrinks it to fit inside the configured
// bounds keeping its aspect ratio, and re-encodes it as JPEG. Images already inside the
// bounds are only re-encoded.
func CompressImage(data []byte, opts CompressOptions) ([]byte, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decode image", goerr.V("size", len(data)))
	}

	b := src.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), opts.MaxWidth, opts.MaxHeight)

	var out image.Image = src
	if w != b.Dx() || h != b.Dy() {
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
		out = dst
	}

	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: quality}); err != nil {
		return nil, goerr.Wrap(err, "failed to encode jpeg", goerr.V("source_format", format))
	}
	return buf.Bytes(), nil
}

// FitWithin returns the largest size not above maxW x maxH with the aspect ratio of w x h.
// Sizes already inside the bounds are returned unchanged; a non-positive bound is ignored.
func FitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return w, h
	}
	if maxW > 0 && w > maxW {
		h = max(1, h*maxW/w)
		w = maxW
	}
	if maxH > 0 && h > maxH {
		w = max(1, w*maxH/h)
		h = maxH
	}
	return w, h
}
