// Package media turns uploaded files into analysis results.
package media

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/mediayear/backend/internal/models"
)

// Stage names a step of media processing, reported in logs.
type Stage string

const (
	StageCompressing Stage = "compressing"
	StageExtracting  Stage = "extracting frames"
	StageAnalyzing   Stage = "analyzing"
	StageComplete    Stage = "complete"
)

// Processor compresses images or extracts video frames and runs the analyzer on them.
type Processor struct {
	analyzer  Analyzer
	extractor FrameExtractor
	compress  CompressOptions
	logger    *slog.Logger
}

// NewProcessor creates a processor. A nil logger uses slog.Default().
func NewProcessor(analyzer Analyzer, extractor FrameExtractor, compress CompressOptions, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		analyzer:  analyzer,
		extractor: extractor,
		compress:  compress,
		logger:    logger,
	}
}

// Process analyzes the file at path. Videos are described by their first extracted frame;
// a video without frames yields a nil result and no error.
func (p *Processor) Process(ctx context.Context, path string, mediaType models.MediaType) (*models.AnalysisResult, error) {
	started := time.Now()
	log := p.logger.With("file", filepath.Base(path), "media_type", mediaType)

	var (
		frame []byte
		err   error
	)
	switch mediaType {
	case models.MediaTypeImage:
		frame, err = p.compressFile(path, log)
	case models.MediaTypeVideo:
		frame, err = p.firstFrame(ctx, path, log)
	default:
		return nil, goerr.New("unsupported media type", goerr.V("media_type", mediaType))
	}
	if err != nil {
		return nil, err
	}
	if frame == nil {
		log.Info("no frames extracted")
		return nil, nil
	}

	log.Debug("processing stage", "stage", StageAnalyzing)
	result, err := p.analyzer.Analyze(ctx, frame)
	if err != nil {
		return nil, goerr.Wrap(err, "analysis failed", goerr.V("path", path))
	}

	log.Info("media processed", "stage", StageComplete, "duration", time.Since(started))
	return result, nil
}

func (p *Processor) compressFile(path string, log *slog.Logger) ([]byte, error) {
	log.Debug("processing stage", "stage", StageCompressing)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read image", goerr.V("path", path))
	}
	return CompressImage(data, p.compress)
}

func (p *Processor) firstFrame(ctx context.Context, path string, log *slog.Logger) ([]byte, error) {
	log.Debug("processing stage", "stage", StageExtracting)
	if p.extractor == nil {
		return nil, goerr.New("no frame extractor configured")
	}
	frames, err := p.extractor.ExtractFrames(ctx, path)
	if err != nil {
		return nil, goerr.Wrap(err, "frame extraction failed", goerr.V("path", path))
	}
	if len(frames) == 0 {
		return nil, nil
	}
	return frames[0], nil
}
