package main

import (
	"context"
	"fmt"

	"github.com/NamanLimani/guardrail-ai/internal/blob"
	"github.com/NamanLimani/guardrail-ai/internal/chat"
	"github.com/NamanLimani/guardrail-ai/internal/config"
	"github.com/NamanLimani/guardrail-ai/internal/embedding"
	"github.com/NamanLimani/guardrail-ai/internal/extract"
	"github.com/NamanLimani/guardrail-ai/internal/keyword"
	"github.com/NamanLimani/guardrail-ai/internal/pipeline"
	"github.com/NamanLimani/guardrail-ai/internal/redact"
	"github.com/NamanLimani/guardrail-ai/internal/retrieval"
	"github.com/NamanLimani/guardrail-ai/internal/storage"
	"go.uber.org/zap"
)

// Components holds everything behind the API and the local commands.
type Components struct {
	Storage   *storage.SQLStorage
	Blobs     blob.Store
	Extractor *extract.Extractor
	Redactor  *redact.Redactor
	Embedding *embedding.Client
	Keyword   *keyword.BleveIndex
	Pipeline  *pipeline.Pipeline
	Engine    *retrieval.Engine
	Composer  *chat.Composer

	// Transcriber is nil when no chat API key is set.
	Transcriber *chat.Transcriber
}

// Close releases storage, index and embedder resources.
func (c *Components) Close() {
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Embedding != nil {
		_ = c.Embedding.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	store, err := storage.Open(cfg.Storage.DataSource())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	c.Storage = store

	c.Blobs, err = buildBlobStore(ctx, cfg.Blob)
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	c.Keyword, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	if err != nil {
		return nil, fmt.Errorf("open keyword index: %w", err)
	}

	embedder, err := buildEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	c.Embedding = embedding.NewClient(embedder, cfg.Embedding.Dimensions,
		embedding.WithCache(cfg.Embedding.CacheSize),
		embedding.WithWarmupDelay(cfg.Embedding.WarmupDelay),
		embedding.WithClientLogger(logger),
	)

	c.Extractor = buildExtractor(cfg.OCR, logger)
	c.Redactor = buildRedactor(cfg.Redact, logger)
	c.Pipeline = pipeline.New(c.Storage, c.Blobs, c.Extractor, c.Redactor, c.Embedding,
		pipeline.WithLogger(logger),
		pipeline.WithContextChars(cfg.Embedding.ContextChars),
		pipeline.WithKeywordIndex(c.Keyword),
	)
	c.Engine = retrieval.NewEngine(c.Storage, c.Embedding, logger)

	var model chat.Model
	if cfg.Chat.APIKey != "" {
		model = chat.NewOpenAIModel(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.Chat.Model, cfg.Chat.TemperatureOrDefault())
		c.Transcriber = chat.NewTranscriber(cfg.Chat.BaseURL, cfg.Chat.APIKey, cfg.Chat.TranscriptionModel, cfg.Chat.Language)
	} else {
		logger.Warn("chat API key not set; answers will report an error")
	}
	c.Composer = chat.NewComposer(model, chat.WithHistoryTurns(cfg.Chat.HistoryTurnsOrDefault()), chat.WithLogger(logger))

	ok = true
	return c, nil
}

func buildBlobStore(ctx context.Context, cfg config.BlobConfig) (blob.Store, error) {
	if cfg.Backend == "minio" {
		m := cfg.Minio
		return blob.NewMinioStore(ctx, m.Endpoint, m.Region, m.Bucket, m.AccessKey, m.SecretKey, m.UseSSL)
	}
	return blob.NewLocalStore(cfg.UploadDir)
}

// buildEmbedder returns nil (and no error) when the hosted provider has no credentials;
// the client then degrades every vector to zeros.
func buildEmbedder(cfg config.EmbeddingConfig) (embedding.Embedder, error) {
	switch cfg.Provider {
	case "huggingface":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return embedding.NewHFEmbedder(cfg.URL, cfg.APIKey, cfg.Dimensions, cfg.Timeout,
			embedding.WithHFRateLimit(cfg.RequestsPerSecond, 1)), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, nil
		}
		return embedding.NewOpenAIEmbedder(cfg.URL, cfg.APIKey, cfg.Model, cfg.Dimensions), nil
	case "onnx":
		return embedding.NewONNXEmbedder(cfg.ModelPath, cfg.Dimensions, cfg.MaxTokens)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Dimensions), nil
	}
	return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Provider)
}

func buildExtractor(cfg config.OCRConfig, logger *zap.Logger) *extract.Extractor {
	opts := []extract.Option{extract.WithLogger(logger), extract.WithMinPageChars(cfg.MinPageChars)}
	if cfg.Enabled {
		if !extract.TesseractAvailable {
			logger.Warn("ocr enabled but binary built without tesseract; scanned pages will be skipped")
		}
		opts = append(opts, extract.WithOCR(extract.NewTesseractOCR(cfg.Language), extract.NewPopplerRenderer(cfg.DPI)))
	}
	return extract.NewExtractor(opts...)
}

func buildRedactor(cfg config.RedactConfig, logger *zap.Logger) *redact.Redactor {
	opts := []redact.Option{
		redact.WithLogger(logger),
		redact.WithCharLimit(cfg.EntityCharLimit),
		redact.WithRetryBackoff(cfg.RetryBackoff),
		redact.WithPhonePattern(cfg.DetectPhone),
	}
	if cfg.Token == "" {
		logger.Warn("entity detector token not set; only pattern redaction will run")
		return redact.NewRedactor(nil, opts...)
	}
	detector := redact.NewHuggingFaceDetector(cfg.DetectorURL, cfg.Token, cfg.RequestTimeout,
		redact.WithRateLimit(cfg.RequestsPerSecond, 1))
	return redact.NewRedactor(detector, opts...)
}

// providers describes the configured backends for the status endpoint.
func providers(cfg *config.Config, c *Components) map[string]string {
	entity := "patterns-only"
	if cfg.Redact.Token != "" {
		entity = cfg.Redact.DetectorURL
	}
	emb := cfg.Embedding.Provider
	if !c.Embedding.Configured() {
		emb += " (not configured)"
	}
	llm := cfg.Chat.Model
	if cfg.Chat.APIKey == "" {
		llm += " (not configured)"
	}
	return map[string]string{
		"storage":   cfg.Storage.Driver,
		"blob":      c.Blobs.Location(),
		"entities":  entity,
		"embedding": emb,
		"chat":      llm,
	}
}
