// Package preview classifies selected files and builds the cards shown before upload.
package preview

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the preview category of a selected file.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// VideoIcon is the icon name used on video placeholder cards.
const VideoIcon = "video"

// File is a selected file handle.
type File interface {
	Name() string
	// Type returns the declared MIME type, possibly empty.
	Type() string
	Open() (io.ReadCloser, error)
}

// Classify returns the preview kind for a declared MIME type.
func Classify(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindUnsupported
	}
}

// Card is one preview entry in the grid.
type Card struct {
	Kind    Kind
	Name    string
	DataURL string // set for image cards
	Icon    string // set for video placeholders
}

// ImageCard builds the card for an image whose content has been read.
func ImageCard(name, dataURL string) *Card {
	return &Card{Kind: KindImage, Name: name, DataURL: dataURL}
}

// VideoCard builds the placeholder card for a video.
func VideoCard(name string) *Card {
	return &Card{Kind: KindVideo, Name: name, Icon: VideoIcon}
}

// ReadDataURL reads the full content of f and encodes it as a base64 data URL.
func ReadDataURL(f File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	var buf bytes.Buffer
	mimeType := f.Type()
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	buf.WriteString("data:")
	buf.WriteString(mimeType)
	buf.WriteString(";base64,")

	enc := base64.NewEncoder(base64.StdEncoding, &buf)
	if _, err := io.Copy(enc, rc); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// videoTypes covers video extensions missing from minimal mime tables.
var videoTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// LocalFile is a File backed by the local filesystem.
type LocalFile struct {
	path     string
	mimeType string
}

// NewLocalFile stats path and detects its MIME type from the extension,
// falling back to sniffing the first 512 bytes.
func NewLocalFile(path string) (*LocalFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrInvalid}
	}

	ext := strings.ToLower(filepath.Ext(path))
	mimeType := mime.TypeByExtension(ext)
	if mimeType == "" {
		mimeType = videoTypes[ext]
	}
	if mimeType == "" {
		mimeType, err = sniff(path)
		if err != nil {
			return nil, err
		}
	}
	// Drop parameters such as "; charset=utf-8".
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return &LocalFile{path: path, mimeType: mimeType}, nil
}

func sniff(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

// Name returns the base name of the file.
func (f *LocalFile) Name() string { return filepath.Base(f.path) }

// Type returns the detected MIME type.
func (f *LocalFile) Type() string { return f.mimeType }

// Path returns the filesystem path.
func (f *LocalFile) Path() string { return f.path }

// Open opens the file for reading.
func (f *LocalFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }
