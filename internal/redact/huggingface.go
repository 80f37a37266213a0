package redact

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

// DefaultHuggingFaceURL is the hosted BERT NER model.
const DefaultHuggingFaceURL = "https://api-inference.huggingface.co/models/dslim/bert-base-NER"

// HuggingFaceDetector calls the Hugging Face inference API for token classification
// with merged (aggregated) entity spans.
type HuggingFaceDetector struct {
	url     string
	token   string
	client  *http.Client
	limiter *rate.Limiter
}

// HuggingFaceOption configures a HuggingFaceDetector.
type HuggingFaceOption func(*HuggingFaceDetector)

// WithHTTPClient replaces the HTTP client (and its timeout).
func WithHTTPClient(c *http.Client) HuggingFaceOption {
	return func(d *HuggingFaceDetector) { d.client = c }
}

// WithRateLimit throttles outgoing requests. rps <= 0 disables throttling.
func WithRateLimit(rps float64, burst int) HuggingFaceOption {
	return func(d *HuggingFaceDetector) {
		if rps <= 0 {
			d.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		d.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewHuggingFaceDetector returns a detector posting to url with a bearer token.
func NewHuggingFaceDetector(url, token string, timeout time.Duration, opts ...HuggingFaceOption) *HuggingFaceDetector {
	if url == "" {
		url = DefaultHuggingFaceURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	d := &HuggingFaceDetector{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type nerRequest struct {
	Inputs     string        `json:"inputs"`
	Parameters nerParameters `json:"parameters"`
}

type nerParameters struct {
	AggregationStrategy string `json:"aggregation_strategy"`
}

type nerEntity struct {
	EntityGroup string  `json:"entity_group"`
	Entity      string  `json:"entity"`
	Score       float64 `json:"score"`
	Word        string  `json:"word"`
	Start       *int    `json:"start"`
	End         *int    `json:"end"`
}

// Detect returns the raw entity spans found in text. Labels are returned as reported
// by the model; callers normalize them.
func (d *HuggingFaceDetector) Detect(ctx context.Context, text string) ([]Span, error) {
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("huggingface ner: rate limit: %w", err)
		}
	}

	body, err := json.Marshal(nerRequest{
		Inputs:     text,
		Parameters: nerParameters{AggregationStrategy: "simple"},
	})
	if err != nil {
		return nil, fmt.Errorf("huggingface ner: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("huggingface ner: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if d.token != "" {
		req.Header.Set("Authorization", "Bearer "+d.token)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("huggingface ner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusServiceUnavailable {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("huggingface ner: %w", ErrDetectorNotReady)
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("huggingface ner: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var entities []nerEntity
	if err := json.NewDecoder(resp.Body).Decode(&entities); err != nil {
		return nil, fmt.Errorf("huggingface ner: decode response: %w", err)
	}
	spans := make([]Span, 0, len(entities))
	for _, e := range entities {
		if e.Start == nil || e.End == nil {
			continue
		}
		label := e.EntityGroup
		if label == "" {
			label = e.Entity
		}
		spans = append(spans, Span{Start: *e.Start, End: *e.End, Label: label})
	}
	return spans, nil
}
