package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/m-mizutani/goerr/v2"
	"github.com/mediayear/backend/internal/analysis"
	"github.com/mediayear/backend/internal/api"
	"github.com/mediayear/backend/internal/config"
	"github.com/mediayear/backend/internal/media"
	"github.com/mediayear/backend/internal/storage"
	"github.com/mediayear/backend/internal/web"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return goerr.Wrap(err, "failed to load configuration", goerr.V("path", configPath))
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Temporary upload storage
	fileStore, err := storage.NewLocalStore(cfg.GetTempDir())
	if err != nil {
		return goerr.Wrap(err, "failed to initialize storage")
	}
	go cleanupLoop(ctx, fileStore, cfg, logger)

	analyses, err := analysis.OpenDuckStore(cfg.Storage.DatabaseFile, analysis.Options{
		Threads:     cfg.Advanced.DuckDBThreads,
		MemoryLimit: cfg.Advanced.DuckDBMemoryLimit,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer analyses.Close()

	processor, err := newProcessor(cfg, logger)
	if err != nil {
		return err
	}

	var archiver storage.Archiver = storage.NopArchiver{}
	if cfg.Archive.Bucket != "" {
		client := storage.NewS3Client(cfg.Archive.Region, cfg.Archive.Endpoint)
		archiver = storage.NewS3Archiver(client, cfg.Archive.Bucket, cfg.Archive.Prefix)
	}

	var metrics *api.Metrics
	if cfg.Advanced.EnableMetrics {
		metrics = api.NewMetrics()
	}

	renderer, err := web.NewRenderer()
	if err != nil {
		return goerr.Wrap(err, "failed to parse page templates")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer

	api.SetupMiddleware(e, api.MiddlewareConfig{
		BodyLimit:      cfg.Server.BodyLimit,
		RequestLogging: cfg.Advanced.EnableRequestLogging,
		ShowErrors:     cfg.Advanced.LogLevel == "debug",
		AllowOrigins:   allowOrigins(cfg),
		Metrics:        metrics,
		Logger:         logger,
	})

	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:             fileStore,
		Analyses:          analyses,
		Processor:         processor,
		Archiver:          archiver,
		Metrics:           metrics,
		AllowedExtensions: cfg.GetAllowedExtensions(),
		SummaryLimit:      cfg.Processing.SummaryEventLimit,
		Version:           Version,
		Logger:            logger,
	}))

	if err := web.RegisterStaticRoutes(e); err != nil {
		return goerr.Wrap(err, "failed to register static routes")
	}

	// Configure server with settings from XML config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cfg, configPath)

	errCh := make(chan error, 1)
	go func() {
		if err := e.StartServer(s); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func allowOrigins(cfg *config.AppConfig) []string {
	if !cfg.Server.EnableCORS {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(cfg.Server.AllowOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return origins
}

// resolveConfigPath returns MEDIAYEAR_CONFIG or MediaYear.config next to the executable.
func resolveConfigPath() (string, error) {
	if p := os.Getenv("MEDIAYEAR_CONFIG"); p != "" {
		return p, nil
	}
	exePath, err := os.Executable()
	if err != nil {
		return "", goerr.Wrap(err, "failed to get executable path")
	}
	return filepath.Join(filepath.Dir(exePath), "MediaYear.config"), nil
}

func newProcessor(cfg *config.AppConfig, logger *slog.Logger) (*media.Processor, error) {
	vocab, err := media.LoadVocabulary(cfg.Processing.VocabularyFile)
	if err != nil {
		return nil, err
	}

	compress := media.CompressOptions{
		MaxWidth:  cfg.Processing.MaxImageDimension,
		MaxHeight: cfg.Processing.MaxImageDimension,
		Quality:   cfg.Processing.JPEGQuality,
	}
	extractor := media.NewFFmpegExtractor(cfg.Processing.FFmpegPath, cfg.Processing.FrameInterval, compress, logger)
	extractor.TempDir = cfg.GetTempDir()

	return media.NewProcessor(media.NewPaletteAnalyzer(vocab), extractor, compress, logger), nil
}

// cleanupLoop removes stale temporary uploads until ctx is done.
func cleanupLoop(ctx context.Context, store storage.Store, cfg *config.AppConfig, logger *slog.Logger) {
	interval := time.Duration(cfg.Storage.CleanupIntervalMinutes) * time.Minute
	maxAge := time.Duration(cfg.Storage.TempMaxAgeMinutes) * time.Minute
	if interval <= 0 || maxAge <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := store.CleanupOlderThan(maxAge)
			if err != nil {
				logger.Warn("temp cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Info("temp files removed", "count", removed)
			}
		}
	}
}

func printBanner(cfg *config.AppConfig, configPath string) {
	archive := "disabled"
	if cfg.Archive.Bucket != "" {
		archive = "s3://" + cfg.Archive.Bucket + "/" + cfg.Archive.Prefix
	}

	fmt.Printf("\n")
	fmt.Printf("╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Printf("║           Media Year Upload Service                       ║\n")
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Version:    %-45s║\n", Version)
	fmt.Printf("║  Build Time: %-45s║\n", BuildTime)
	fmt.Printf("╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Printf("║  Config:    %-46s║\n", configPath)
	fmt.Printf("║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Printf("║  Data Dir:  %-46s║\n", cfg.GetDataDir())
	fmt.Printf("║  Archive:   %-46s║\n", archive)
	fmt.Printf("╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Printf("\n")
}
