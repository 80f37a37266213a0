package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NamanLimani/guardrail-ai/internal/outcome"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

// DefaultWarmupDelay is the wait before retrying a provider that reported ErrWarmingUp.
const DefaultWarmupDelay = 20 * time.Second

// Client embeds text through a provider and degrades to a zero vector instead of failing.
type Client struct {
	embedder    Embedder
	dimensions  int
	cache       *Cache
	warmupDelay time.Duration
	logger      *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithCache enables an LRU of successful embeddings.
func WithCache(capacity int) ClientOption {
	return func(c *Client) { c.cache = NewCache(capacity) }
}

// WithWarmupDelay overrides DefaultWarmupDelay.
func WithWarmupDelay(d time.Duration) ClientOption {
	return func(c *Client) { c.warmupDelay = d }
}

// WithClientLogger sets the logger for degraded embeddings.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient wraps embedder. embedder may be nil when no provider is configured;
// every call then returns a degraded zero vector of the given dimensions.
func NewClient(embedder Embedder, dimensions int, opts ...ClientOption) *Client {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	c := &Client{
		embedder:    embedder,
		dimensions:  dimensions,
		cache:       NewCache(0),
		warmupDelay: DefaultWarmupDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = utils.OrNop(c.logger)
	return c
}

// Dimensions returns the vector size every result has.
func (c *Client) Dimensions() int { return c.dimensions }

// Configured reports whether a provider is attached.
func (c *Client) Configured() bool { return c.embedder != nil }

// Embed returns the embedding of text. It never fails: on any provider error or a
// vector of the wrong size the result is a degraded zero vector.
func (c *Client) Embed(ctx context.Context, text string) outcome.Outcome[[]float32] {
	if c.embedder == nil {
		return outcome.Degraded(Zero(c.dimensions), "no embedding provider configured")
	}
	if v, ok := c.cache.Get(text); ok {
		return outcome.Ok(v)
	}

	v, err := c.embedder.Embed(ctx, text)
	if errors.Is(err, ErrWarmingUp) {
		c.logger.Info("embedding model warming up, retrying once", zap.Duration("delay", c.warmupDelay))
		if waitErr := utils.Sleep(ctx, c.warmupDelay); waitErr != nil {
			err = waitErr
		} else {
			v, err = c.embedder.Embed(ctx, text)
		}
	}
	if err == nil && len(v) != c.dimensions {
		err = fmt.Errorf("embedding has %d dimensions, want %d", len(v), c.dimensions)
	}
	if err != nil {
		c.logger.Warn("embedding degraded to zero vector", zap.Error(err))
		return outcome.Degraded(Zero(c.dimensions), err.Error())
	}

	c.cache.Set(text, v)
	return outcome.Ok(v)
}

// Close releases the provider.
func (c *Client) Close() error {
	if c.embedder == nil {
		return nil
	}
	return c.embedder.Close()
}
