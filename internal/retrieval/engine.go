// Package retrieval ranks an owner's processed documents against a query by
// cosine similarity of their embeddings.
package retrieval

import (
	"context"
	"fmt"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/outcome"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

// DefaultTopK is the number of documents handed to chat as context.
const DefaultTopK = 3

// DocumentSource lists an owner's documents.
type DocumentSource interface {
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
}

// QueryEmbedder embeds a query, degrading instead of failing.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) outcome.Outcome[[]float32]
}

// Engine answers semantic searches by scanning every completed document of an owner.
type Engine struct {
	docs     DocumentSource
	embedder QueryEmbedder
	logger   *zap.Logger
}

// NewEngine returns an Engine. logger may be nil.
func NewEngine(docs DocumentSource, embedder QueryEmbedder, logger *zap.Logger) *Engine {
	return &Engine{docs: docs, embedder: embedder, logger: utils.OrNop(logger)}
}

// Search returns every match above the noise floor with a text preview.
func (e *Engine) Search(ctx context.Context, ownerID, query string) ([]models.ScoredMatch, error) {
	matches, err := e.rank(ctx, ownerID, query, 0)
	if err != nil {
		return nil, err
	}
	for i := range matches {
		matches[i].Preview = Preview(matches[i].Text)
	}
	return matches, nil
}

// Retrieve returns the k best matches with their full redacted text.
// k <= 0 means DefaultTopK.
func (e *Engine) Retrieve(ctx context.Context, ownerID, query string, k int) ([]models.ScoredMatch, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	return e.rank(ctx, ownerID, query, k)
}

func (e *Engine) rank(ctx context.Context, ownerID, query string, k int) ([]models.ScoredMatch, error) {
	q := e.embedder.Embed(ctx, query)
	if q.IsDegraded() {
		e.logger.Warn("query embedding degraded, returning no matches", zap.String("reason", q.Reason))
		return []models.ScoredMatch{}, nil
	}

	docs, err := e.docs.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	candidates := make([]Candidate, 0, len(docs))
	for _, d := range docs {
		if d.Status != models.StatusCompleted || d.Vector == nil {
			continue
		}
		candidates = append(candidates, Candidate{
			DocumentID: d.ID,
			Filename:   d.Filename,
			Text:       d.TextContent,
			Vector:     d.Vector,
		})
	}
	return Rank(q.Value, candidates, k), nil
}
