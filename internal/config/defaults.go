package config

import "time"

// DefaultAllowedOrigin is the frontend origin allowed when none is configured.
const DefaultAllowedOrigin = "http://localhost:3000"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{DefaultAllowedOrigin}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 25
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite3"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/db/guardrail.db"
	}
	if cfg.Storage.BleveIndexPath == "" {
		cfg.Storage.BleveIndexPath = "./data/indices/bleve"
	}

	if cfg.Blob.Backend == "" {
		cfg.Blob.Backend = "local"
	}
	if cfg.Blob.UploadDir == "" {
		cfg.Blob.UploadDir = "./data/uploads"
	}
	if cfg.Blob.Minio.Bucket == "" {
		cfg.Blob.Minio.Bucket = "guardrail-uploads"
	}

	if cfg.Redact.DetectorURL == "" {
		cfg.Redact.DetectorURL = "https://api-inference.huggingface.co/models/dslim/bert-base-NER"
	}
	if cfg.Redact.EntityCharLimit == 0 {
		cfg.Redact.EntityCharLimit = 2000
	}
	if cfg.Redact.RequestTimeout == 0 {
		cfg.Redact.RequestTimeout = 15 * time.Second
	}
	if cfg.Redact.RetryBackoff == 0 {
		cfg.Redact.RetryBackoff = 2 * time.Second
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "huggingface"
	}
	if cfg.Embedding.URL == "" && cfg.Embedding.Provider == "huggingface" {
		cfg.Embedding.URL = "https://router.huggingface.co/hf-inference/models/sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embedding.Model == "" && cfg.Embedding.Provider == "openai" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.ContextChars == 0 {
		cfg.Embedding.ContextChars = 1000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 10 * time.Second
	}
	if cfg.Embedding.WarmupDelay == 0 {
		cfg.Embedding.WarmupDelay = 20 * time.Second
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}

	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "https://api.groq.com/openai/v1"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "llama-3.3-70b-versatile"
	}
	if cfg.Chat.TopK == 0 {
		cfg.Chat.TopK = 3
	}
	if cfg.Chat.TranscriptionModel == "" {
		cfg.Chat.TranscriptionModel = "whisper-large-v3"
	}
	if cfg.Chat.Language == "" {
		cfg.Chat.Language = "en"
	}

	if cfg.OCR.Language == "" {
		cfg.OCR.Language = "eng"
	}
	if cfg.OCR.MinPageChars == 0 {
		cfg.OCR.MinPageChars = 10
	}
	if cfg.OCR.DPI == 0 {
		cfg.OCR.DPI = 200
	}

	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Pipeline.QueueSize == 0 {
		cfg.Pipeline.QueueSize = 64
	}

	if cfg.Watch.Extensions == nil {
		cfg.Watch.Extensions = []string{".txt", ".md", ".pdf", ".docx", ".xlsx"}
	}
	if cfg.Watch.Owner == "" {
		cfg.Watch.Owner = "inbox"
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Watch.Directories) > 0 && cfg.Watch.Recursive == nil {
		t := true
		cfg.Watch.Recursive = &t
	}
}
