// Package config provides XML-based configuration management for the media upload service.
package config

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// AppConfig represents the root XML configuration structure
type AppConfig struct {
	XMLName xml.Name `xml:"MediaYear"`

	// Server configuration
	Server ServerConfig `xml:"Server"`

	// Storage configuration
	Storage StorageConfig `xml:"Storage"`

	// Processing configuration
	Processing ProcessingConfig `xml:"Processing"`

	// Archive configuration
	Archive ArchiveConfig `xml:"Archive"`

	// Advanced options
	Advanced AdvancedConfig `xml:"Advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `xml:"Port"`
	BindAddress  string `xml:"BindAddress"`
	EnableCORS   bool   `xml:"EnableCORS"`
	AllowOrigins string `xml:"AllowOrigins"`
	ReadTimeout  int    `xml:"ReadTimeoutSeconds"`
	WriteTimeout int    `xml:"WriteTimeoutSeconds"`
	IdleTimeout  int    `xml:"IdleTimeoutSeconds"`
	BodyLimit    string `xml:"BodyLimit"`
}

// StorageConfig contains file storage settings
type StorageConfig struct {
	DataDirectory          string `xml:"DataDirectory"`
	TempDirectory          string `xml:"TempDirectory"`
	DatabaseFile           string `xml:"DatabaseFile"`
	TempMaxAgeMinutes      int    `xml:"TempMaxAgeMinutes"`
	CleanupIntervalMinutes int    `xml:"CleanupIntervalMinutes"`
}

// ProcessingConfig contains media processing settings
type ProcessingConfig struct {
	AllowedExtensions string `xml:"AllowedExtensions"`
	MaxImageDimension int    `xml:"MaxImageDimension"`
	JPEGQuality       int    `xml:"JPEGQuality"`
	FrameInterval     int    `xml:"FrameInterval"`
	FFmpegPath        string `xml:"FFmpegPath"`
	VocabularyFile    string `xml:"VocabularyFile"`
	SummaryEventLimit int    `xml:"SummaryEventLimit"`
}

// ArchiveConfig contains settings for keeping original uploads in S3.
// Archiving is disabled when Bucket is empty.
type ArchiveConfig struct {
	Bucket   string `xml:"Bucket"`
	Prefix   string `xml:"Prefix"`
	Region   string `xml:"Region"`
	Endpoint string `xml:"Endpoint"`
}

// AdvancedConfig contains advanced/tuning options
type AdvancedConfig struct {
	LogLevel             string `xml:"LogLevel"`
	LogJSON              bool   `xml:"LogJSON"`
	EnableRequestLogging bool   `xml:"EnableRequestLogging"`
	EnableMetrics        bool   `xml:"EnableMetrics"`
	DuckDBThreads        int    `xml:"DuckDBThreads"`
	DuckDBMemoryLimit    string `xml:"DuckDBMemoryLimit"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   false,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 120,
			IdleTimeout:  120,
			BodyLimit:    "16M",
		},
		Storage: StorageConfig{
			DataDirectory:          "./data",
			TempDirectory:          "./data/temp_uploads",
			DatabaseFile:           "./data/media_analysis.duckdb",
			TempMaxAgeMinutes:      60,
			CleanupIntervalMinutes: 5,
		},
		Processing: ProcessingConfig{
			AllowedExtensions: "png,jpg,jpeg,gif,mp4,mov,avi",
			MaxImageDimension: 800,
			JPEGQuality:       85,
			FrameInterval:     30,
			FFmpegPath:        "ffmpeg",
			VocabularyFile:    "",
			SummaryEventLimit: 5,
		},
		Archive: ArchiveConfig{
			Prefix: "originals/",
			Region: "us-east-1",
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			LogJSON:              false,
			EnableRequestLogging: true,
			EnableMetrics:        true,
			DuckDBThreads:        2,
			DuckDBMemoryLimit:    "512MB",
		},
	}
}

// LoadConfig loads configuration from XML file
func LoadConfig(configPath string) (*AppConfig, error) {
	// If file doesn't exist, create default
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := config.Save(configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		config.applyEnvironmentOverrides()
		config.resolvePaths(filepath.Dir(configPath))
		return config, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := xml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	config.applyEnvironmentOverrides()

	// Resolve relative paths
	config.resolvePaths(filepath.Dir(configPath))

	return config, nil
}

// Save saves the configuration to XML file
func (c *AppConfig) Save(configPath string) error {
	output, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(xml.Header + "\n<!-- MediaYear Upload Service Configuration -->\n<!-- This file is auto-generated on first run -->\n\n")
	content := append(header, output...)

	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	// PORT override
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	// DATA_DIR moves every data path that still lives under the old data directory
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		old := c.Storage.DataDirectory
		c.Storage.DataDirectory = dataDir
		c.Storage.TempDirectory = rebase(c.Storage.TempDirectory, old, dataDir)
		c.Storage.DatabaseFile = rebase(c.Storage.DatabaseFile, old, dataDir)
	}

	if bucket := os.Getenv("MEDIAYEAR_S3_BUCKET"); bucket != "" {
		c.Archive.Bucket = bucket
	}

	if level := os.Getenv("MEDIAYEAR_LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

func rebase(path, oldRoot, newRoot string) string {
	rel, err := filepath.Rel(oldRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.Join(newRoot, rel)
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	if !filepath.IsAbs(c.Storage.DataDirectory) {
		c.Storage.DataDirectory = filepath.Join(configDir, c.Storage.DataDirectory)
	}
	if !filepath.IsAbs(c.Storage.TempDirectory) {
		c.Storage.TempDirectory = filepath.Join(configDir, c.Storage.TempDirectory)
	}
	if !filepath.IsAbs(c.Storage.DatabaseFile) {
		c.Storage.DatabaseFile = filepath.Join(configDir, c.Storage.DatabaseFile)
	}
	if c.Processing.VocabularyFile != "" && !filepath.IsAbs(c.Processing.VocabularyFile) {
		c.Processing.VocabularyFile = filepath.Join(configDir, c.Processing.VocabularyFile)
	}
}

// GetDataDir returns the absolute data directory path
func (c *AppConfig) GetDataDir() string {
	return c.Storage.DataDirectory
}

// GetTempDir returns the absolute temporary upload directory path
func (c *AppConfig) GetTempDir() string {
	return c.Storage.TempDirectory
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// GetAllowedExtensions returns the lower-cased upload extension allow-list without dots
func (c *AppConfig) GetAllowedExtensions() []string {
	var exts []string
	for _, ext := range strings.Split(c.Processing.AllowedExtensions, ",") {
		ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
		if ext != "" {
			exts = append(exts, ext)
		}
	}
	return exts
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.TempDirectory,
		filepath.Dir(c.Storage.DatabaseFile),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
