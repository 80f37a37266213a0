// Package config provides configuration loading and structs for the GuardRail server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Blob      BlobConfig      `yaml:"blob"`
	Redact    RedactConfig    `yaml:"redact"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chat      ChatConfig      `yaml:"chat"`
	OCR       OCRConfig       `yaml:"ocr"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes returns the request body limit for uploads.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// StorageConfig selects the document database and the keyword index location.
// Driver is one of sqlite3, postgres or mysql. For sqlite3 an empty DSN means DatabasePath.
type StorageConfig struct {
	Driver         string `yaml:"driver"`
	DSN            string `yaml:"dsn"`
	DatabasePath   string `yaml:"database_path"`
	BleveIndexPath string `yaml:"bleve_index_path"`
}

// DataSource returns the driver name and DSN to open.
func (s StorageConfig) DataSource() (driver, dsn string) {
	if s.Driver == "sqlite3" && s.DSN == "" {
		return s.Driver, s.DatabasePath
	}
	return s.Driver, s.DSN
}

// BlobConfig selects where raw uploads are kept.
type BlobConfig struct {
	Backend   string      `yaml:"backend"`
	UploadDir string      `yaml:"upload_dir"`
	Minio     MinioConfig `yaml:"minio"`
}

// MinioConfig holds S3-compatible object storage settings. Credentials come from the environment.
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

// RedactConfig holds PII redaction settings.
type RedactConfig struct {
	DetectorURL       string        `yaml:"detector_url"`
	EntityCharLimit   int           `yaml:"entity_char_limit"`
	DetectPhone       bool          `yaml:"detect_phone"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RetryBackoff      time.Duration `yaml:"retry_backoff"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Token             string        `yaml:"-"`
}

// EmbeddingConfig holds embedding provider settings.
// Provider is one of huggingface, openai, onnx or mock.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"`
	URL               string        `yaml:"url"`
	Model             string        `yaml:"model"`
	Dimensions        int           `yaml:"dimensions"`
	ContextChars      int           `yaml:"context_chars"`
	Timeout           time.Duration `yaml:"timeout"`
	WarmupDelay       time.Duration `yaml:"warmup_delay"`
	CacheSize         int           `yaml:"cache_size"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	ModelPath         string        `yaml:"model_path"`
	MaxTokens         int           `yaml:"max_tokens"`
	APIKey            string        `yaml:"-"`
}

// ChatConfig holds answer streaming and transcription settings.
type ChatConfig struct {
	BaseURL            string   `yaml:"base_url"`
	Model              string   `yaml:"model"`
	Temperature        *float32 `yaml:"temperature"`
	HistoryTurns       *int     `yaml:"history_turns"`
	TopK               int      `yaml:"top_k"`
	DebugEvents        bool     `yaml:"debug_events"`
	TranscriptionModel string   `yaml:"transcription_model"`
	Language           string   `yaml:"language"`
	APIKey             string   `yaml:"-"`
}

// TemperatureOrDefault returns the sampling temperature; 0.2 when unset.
func (c ChatConfig) TemperatureOrDefault() float32 {
	if c.Temperature != nil {
		return *c.Temperature
	}
	return 0.2
}

// HistoryTurnsOrDefault returns how many prior messages to replay; 4 when unset.
// An explicit 0 disables history.
func (c ChatConfig) HistoryTurnsOrDefault() int {
	if c.HistoryTurns != nil {
		return *c.HistoryTurns
	}
	return 4
}

// OCRConfig holds scanned-page fallback settings.
type OCRConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Language     string `yaml:"language"`
	MinPageChars int    `yaml:"min_page_chars"`
	DPI          int    `yaml:"dpi"`
}

// PipelineConfig sizes the background processing pool.
type PipelineConfig struct {
	Workers   int `yaml:"workers"`
	QueueSize int `yaml:"queue_size"`
}

// WatchConfig holds inbox directory settings. Files dropped into a directory are
// ingested for Owner.
type WatchConfig struct {
	Directories       []string `yaml:"directories"`
	Extensions        []string `yaml:"extensions"`
	Owner             string   `yaml:"owner"`
	Recursive         *bool    `yaml:"recursive"`
	RemoveAfterIngest bool     `yaml:"remove_after_ingest"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Default returns a config with defaults and environment overrides applied.
func Default() (*Config, error) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Load reads and parses the config file at path, applies defaults and environment
// overrides, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, configDir)
	cfg.Blob.UploadDir = expandPath(cfg.Blob.UploadDir, configDir)
	if cfg.Embedding.ModelPath != "" {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}

	return &cfg, cfg.Validate()
}

// LoadOrDefault loads path when it exists and falls back to Default otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config: %w", err)
		}
	}
	return Default()
}

// Save writes the config to path. Secrets are never written.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate rejects unknown drivers, backends and providers.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite3", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Backend {
	case "local":
	case "minio":
		if c.Blob.Minio.Endpoint == "" || c.Blob.Minio.Bucket == "" {
			return errors.New("minio backend requires endpoint and bucket")
		}
	default:
		return fmt.Errorf("unsupported blob backend %q", c.Blob.Backend)
	}
	switch c.Embedding.Provider {
	case "huggingface", "openai", "onnx", "mock":
	default:
		return fmt.Errorf("unsupported embedding provider %q", c.Embedding.Provider)
	}
	if c.Embedding.Provider == "onnx" && c.Embedding.ModelPath == "" {
		return errors.New("onnx provider requires embedding.model_path")
	}
	if c.Chat.HistoryTurns != nil && *c.Chat.HistoryTurns < 0 {
		return fmt.Errorf("chat.history_turns must not be negative, got %d", *c.Chat.HistoryTurns)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
