package media

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/m-mizutani/goerr/v2"
)

// FrameExtractor pulls still frames out of a video file.
type FrameExtractor interface {
	ExtractFrames(ctx context.Context, videoPath string) ([][]byte, error)
}

// FFmpegExtractor extracts every Interval-th frame with the ffmpeg binary and compresses
// each one.
type FFmpegExtractor struct {
	Path     string
	Interval int
	Compress CompressOptions
	TempDir  string
	Logger   *slog.Logger
}

// NewFFmpegExtractor creates an extractor. An empty path looks ffmpeg up in PATH.
func NewFFmpegExtractor(path string, interval int, compress CompressOptions, logger *slog.Logger) *FFmpegExtractor {
	if path == "" {
		path = "ffmpeg"
	}
	if interval <= 0 {
		interval = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegExtractor{Path: path, Interval: interval, Compress: compress, Logger: logger}
}

// Args returns the ffmpeg arguments writing selected frames to outPattern.
func (e *FFmpegExtractor) Args(videoPath, outPattern string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-i", videoPath,
		"-vf", fmt.Sprintf(`select=not(mod(n\,%d))`, e.Interval),
		"-vsync", "vfr",
		"-q:v", "2",
		outPattern,
	}
}

// ExtractFrames implements FrameExtractor. A video that yields no frames returns an
// empty slice and no error.
func (e *FFmpegExtractor) ExtractFrames(ctx context.Context, videoPath string) ([][]byte, error) {
	workDir, err := os.MkdirTemp(e.TempDir, "frames-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create frame directory")
	}
	defer os.RemoveAll(workDir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.Path, e.Args(videoPath, filepath.Join(workDir, "frame_%05d.jpg"))...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, goerr.Wrap(err, "ffmpeg failed",
			goerr.V("video", videoPath),
			goerr.V("stderr", stderr.String()))
	}

	names, err := filepath.Glob(filepath.Join(workDir, "frame_*.jpg"))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list frames")
	}
	sort.Strings(names)

	frames := make([][]byte, 0, len(names))
	for _, name := range names {
		raw, err := os.ReadFile(name)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read frame", goerr.V("frame", name))
		}
		compressed, err := CompressImage(raw, e.Compress)
		if err != nil {
			e.Logger.Warn("skipping undecodable frame", "frame", filepath.Base(name), "error", err)
			continue
		}
		frames = append(frames, compressed)
	}

	e.Logger.Debug("frames extracted", "video", filepath.Base(videoPath), "count", len(frames))
	return frames, nil
}
