// Package embedding turns text into fixed-size vectors.
//
// Providers implement Embedder and may fail. Client wraps a provider and never
// fails: it retries a warming-up model once and falls back to a zero vector.
package embedding

import (
	"context"
	"errors"
)

// DefaultDimensions is the output size of all-MiniLM-L6-v2.
const DefaultDimensions = 384

// ErrWarmingUp is returned by providers whose hosted model is still loading.
var ErrWarmingUp = errors.New("embedding model warming up")

// Embedder produces vector embeddings for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}

// Zero returns a zero vector of length d.
func Zero(d int) []float32 {
	return make([]float32, d)
}

// IsZero reports whether v is empty or has only zero components.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// embedEach implements EmbedBatch for providers without a native batch call.
func embedEach(ctx context.Context, e Embedder, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
