// Package redact detects and removes PII from extracted text.
//
// Redaction runs in two passes. An entity pass sends an untouched, bounded prefix of
// the text to an external named-entity detector and replaces the returned spans.
// A pattern pass then runs local regular expressions, in a fixed order, over the
// substituted text. Every removed span is replaced with a "<CATEGORY>" placeholder.
package redact

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/outcome"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

const (
	// DefaultCharLimit caps the text sent to the entity detector and kept in the output.
	DefaultCharLimit = 2000
	// DefaultRetryBackoff is the wait before retrying a detector that is still loading.
	DefaultRetryBackoff = 2 * time.Second
)

// ErrDetectorNotReady is returned by detectors whose backing model is still loading.
var ErrDetectorNotReady = errors.New("entity detector not ready")

// EntityDetector finds named-entity spans in text. Offsets are in runes.
type EntityDetector interface {
	Detect(ctx context.Context, text string) ([]Span, error)
}

// Result is the outcome of one redaction.
// Entities holds the number of entity spans replaced, or a degraded zero when the entity pass was skipped.
type Result struct {
	Text     string
	Stats    models.PiiStats
	Entities outcome.Outcome[int]
}

// Redactor removes PII using an entity detector plus local patterns.
type Redactor struct {
	detector     EntityDetector
	charLimit    int
	retryBackoff time.Duration
	phone        bool
	patterns     []pattern
	logger       *zap.Logger
}

// Option configures a Redactor.
type Option func(*Redactor)

// WithLogger sets a logger for degraded entity passes.
func WithLogger(l *zap.Logger) Option {
	return func(r *Redactor) { r.logger = l }
}

// WithCharLimit sets the rune cap applied before detection. Zero or less disables the cap.
func WithCharLimit(n int) Option {
	return func(r *Redactor) { r.charLimit = n }
}

// WithRetryBackoff sets the wait before the single retry of a not-ready detector.
func WithRetryBackoff(d time.Duration) Option {
	return func(r *Redactor) { r.retryBackoff = d }
}

// WithPhonePattern enables the US phone-number pattern and the PHONE stats key.
func WithPhonePattern(enabled bool) Option {
	return func(r *Redactor) { r.phone = enabled }
}

// NewRedactor returns a Redactor. detector may be nil, in which case the entity pass is always skipped.
func NewRedactor(detector EntityDetector, opts ...Option) *Redactor {
	r := &Redactor{
		detector:     detector,
		charLimit:    DefaultCharLimit,
		retryBackoff: DefaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = utils.OrNop(r.logger)
	r.patterns = patternsFor(r.phone)
	return r
}

// Redact returns the redacted prefix of text and per-category counts.
// It never fails: a failing detector only degrades the entity pass.
func (r *Redactor) Redact(ctx context.Context, text string) Result {
	runes := []rune(text)
	if r.charLimit > 0 && len(runes) > r.charLimit {
		runes = runes[:r.charLimit]
	}

	var stats models.PiiStats
	if r.phone {
		stats = models.NewPiiStats(models.CategoryPhone)
	} else {
		stats = models.NewPiiStats()
	}

	detected := r.detect(ctx, string(runes))
	spans := ResolveSpans(detected.Value, len(runes))
	for _, s := range spans {
		stats[s.Label]++
	}
	out := ApplySpans(runes, spans)
	out = applyPatterns(out, r.patterns, stats)

	entities := outcome.Ok(len(spans))
	if detected.IsDegraded() {
		entities = outcome.Degraded(0, detected.Reason)
	}
	return Result{Text: out, Stats: stats, Entities: entities}
}

func (r *Redactor) detect(ctx context.Context, text string) outcome.Outcome[[]Span] {
	if r.detector == nil {
		return outcome.Degraded[[]Span](nil, "entity detector not configured")
	}
	if strings.TrimSpace(text) == "" {
		return outcome.Ok[[]Span](nil)
	}

	spans, err := r.detector.Detect(ctx, text)
	if errors.Is(err, ErrDetectorNotReady) {
		r.logger.Info("entity detector loading, retrying once", zap.Duration("backoff", r.retryBackoff))
		if waitErr := utils.Sleep(ctx, r.retryBackoff); waitErr != nil {
			err = waitErr
		} else {
			spans, err = r.detector.Detect(ctx, text)
		}
	}
	if err != nil {
		r.logger.Warn("entity pass skipped", zap.Error(err))
		return outcome.Degraded[[]Span](nil, err.Error())
	}

	kept := make([]Span, 0, len(spans))
	for _, s := range spans {
		label, ok := NormalizeLabel(s.Label)
		if !ok {
			continue
		}
		s.Label = label
		kept = append(kept, s)
	}
	return outcome.Ok(kept)
}
