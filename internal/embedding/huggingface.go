package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultHuggingFaceURL serves all-MiniLM-L6-v2 feature extraction.
const DefaultHuggingFaceURL = "https://router.huggingface.co/hf-inference/models/sentence-transformers/all-MiniLM-L6-v2"

// HFEmbedder calls the Hugging Face inference API.
type HFEmbedder struct {
	url        string
	token      string
	dimensions int
	client     *http.Client
	limiter    *rate.Limiter
}

// HFOption configures an HFEmbedder.
type HFOption func(*HFEmbedder)

// WithHFHTTPClient replaces the HTTP client.
func WithHFHTTPClient(c *http.Client) HFOption {
	return func(e *HFEmbedder) { e.client = c }
}

// WithHFRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func WithHFRateLimit(rps float64, burst int) HFOption {
	return func(e *HFEmbedder) {
		if rps <= 0 {
			e.limiter = nil
			return
		}
		e.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// NewHFEmbedder returns an embedder for url (DefaultHuggingFaceURL if empty).
func NewHFEmbedder(url, token string, dimensions int, timeout time.Duration, opts ...HFOption) *HFEmbedder {
	if url == "" {
		url = DefaultHuggingFaceURL
	}
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	e := &HFEmbedder{
		url:        url,
		token:      token,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Embed requests one vector from the inference endpoint.
func (e *HFEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("huggingface embed: rate limit: %w", err)
		}
	}
	body, err := json.Marshal(map[string]string{"inputs": text})
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.token != "" {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("huggingface embed: %w", ErrWarmingUp)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("huggingface embed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("huggingface embed: read response: %w", err)
	}
	return decodeHFVector(raw)
}

// decodeHFVector accepts a flat vector or a list whose first element is the vector.
func decodeHFVector(raw []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(raw, &flat); err == nil {
		return flat, nil
	}
	var nested [][]float32
	if err := json.Unmarshal(raw, &nested); err != nil {
		return nil, fmt.Errorf("huggingface embed: decode response: %w", err)
	}
	if len(nested) == 0 {
		return nil, fmt.Errorf("huggingface embed: empty response")
	}
	return nested[0], nil
}

// EmbedBatch embeds each text in turn.
func (e *HFEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, e, texts)
}

// Dimensions returns the configured vector size.
func (e *HFEmbedder) Dimensions() int { return e.dimensions }

// Close releases idle HTTP connections.
func (e *HFEmbedder) Close() error {
	e.client.CloseIdleConnections()
	return nil
}
