// Package pipeline turns uploaded files into redacted, scored and embedded documents.
//
// Intake stores the upload and creates the document in processing. The Dispatcher
// runs Pipeline.Process in the background, which moves the document to completed
// or failed exactly once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/NamanLimani/guardrail-ai/internal/blob"
	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/outcome"
	"github.com/NamanLimani/guardrail-ai/internal/redact"
	"github.com/NamanLimani/guardrail-ai/internal/risk"
	"github.com/NamanLimani/guardrail-ai/internal/storage"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

// DefaultContextChars is how much of the redacted text is embedded.
const DefaultContextChars = 1000

// Failure reasons persisted on failed documents.
const (
	ReasonBlobUnavailable  = "blob_unavailable"
	ReasonExtractionFailed = "extraction_failed"
	ReasonProcessingFailed = "processing_failed"
	ReasonStorageFailed    = "storage_failed"
	ReasonQueueFull        = "queue_full"
	ReasonEnqueueFailed    = "enqueue_failed"
	ReasonInterrupted      = "interrupted"
)

// Extractor turns raw bytes into plain text.
type Extractor interface {
	ExtractBytes(ctx context.Context, content []byte, ext string) (string, error)
}

// Redactor removes PII from text. It never fails.
type Redactor interface {
	Redact(ctx context.Context, text string) redact.Result
}

// Embedder maps text to a vector. It never fails; degraded results carry a zero vector.
type Embedder interface {
	Embed(ctx context.Context, text string) outcome.Outcome[[]float32]
}

// KeywordIndexer receives completed documents for full-text lookup.
type KeywordIndexer interface {
	Index(ctx context.Context, doc *models.Document) error
}

// Pipeline processes one document at a time. It is safe for concurrent use.
type Pipeline struct {
	store        storage.Storage
	blobs        blob.Store
	extractor    Extractor
	redactor     Redactor
	embedder     Embedder
	keyword      KeywordIndexer
	contextChars int
	logger       *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. Document text is never logged.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithContextChars sets how many runes of redacted text are embedded.
func WithContextChars(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.contextChars = n
		}
	}
}

// WithKeywordIndex indexes completed documents for keyword lookup.
func WithKeywordIndex(idx KeywordIndexer) Option {
	return func(p *Pipeline) { p.keyword = idx }
}

// New creates a pipeline.
func New(store storage.Storage, blobs blob.Store, extractor Extractor, redactor Redactor, embedder Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:        store,
		blobs:        blobs,
		extractor:    extractor,
		redactor:     redactor,
		embedder:     embedder,
		contextChars: DefaultContextChars,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = utils.OrNop(p.logger)
	return p
}

// Process runs extraction, redaction, scoring and embedding for doc and records the
// terminal status. The returned error describes why the document failed; the
// failure itself is already persisted.
func (p *Pipeline) Process(ctx context.Context, doc *models.Document) (models.Status, error) {
	log := p.logger.With(zap.String("document_id", doc.ID))

	raw, err := p.blobs.Get(ctx, doc.FilePath)
	if err != nil {
		return p.fail(ctx, log, doc.ID, ReasonBlobUnavailable, fmt.Errorf("read blob: %w", err))
	}

	text, err := p.extract(ctx, raw, strings.ToLower(filepath.Ext(doc.Filename)))
	if err != nil {
		return p.fail(ctx, log, doc.ID, ReasonExtractionFailed, fmt.Errorf("extract: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		return p.fail(ctx, log, doc.ID, ReasonExtractionFailed, errors.New("no text extracted"))
	}

	res, err := p.analyze(ctx, text)
	if err != nil {
		return p.fail(ctx, log, doc.ID, ReasonProcessingFailed, err)
	}

	if err := p.store.CompleteDocument(ctx, doc.ID, res); err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrNotProcessing) {
			log.Warn("document changed while processing, result dropped", zap.Error(err))
			return "", err
		}
		return p.fail(ctx, log, doc.ID, ReasonStorageFailed, fmt.Errorf("save result: %w", err))
	}
	log.Info("document completed",
		zap.Int("risk_score", res.RiskScore),
		zap.Int("pii_total", res.PiiStats.Total()),
	)

	if p.keyword != nil {
		indexed := *doc
		indexed.TextContent = res.TextContent
		if err := p.keyword.Index(ctx, &indexed); err != nil {
			log.Warn("keyword indexing failed", zap.Error(err))
		}
	}
	return models.StatusCompleted, nil
}

// extract runs the extractor with the same panic guard as analyze.
func (p *Pipeline) extract(ctx context.Context, raw []byte, ext string) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("panic during extraction: %v", r)
		}
	}()
	return p.extractor.ExtractBytes(ctx, raw, ext)
}

// analyze is the guarded block: a panic in any stage becomes an error.
func (p *Pipeline) analyze(ctx context.Context, text string) (res models.ProcessingResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during analysis: %v", r)
		}
	}()

	redacted := p.redactor.Redact(ctx, text)
	if redacted.Entities.IsDegraded() {
		p.logger.Warn("entity pass degraded", zap.String("reason", redacted.Entities.Reason))
	}

	embedded := p.embedder.Embed(ctx, utils.Prefix(redacted.Text, p.contextChars))
	if embedded.IsDegraded() {
		p.logger.Warn("embedding degraded", zap.String("reason", embedded.Reason))
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	return models.ProcessingResult{
		TextContent: redacted.Text,
		Vector:      embedded.Value,
		RiskScore:   risk.Score(redacted.Stats),
		PiiStats:    redacted.Stats,
	}, nil
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, id, reason string, cause error) (models.Status, error) {
	log.Warn("document failed", zap.String("reason", reason), zap.Error(cause))
	if err := p.store.FailDocument(context.WithoutCancel(ctx), id, reason); err != nil {
		log.Error("failed to record failure", zap.Error(err))
	}
	return models.StatusFailed, cause
}
