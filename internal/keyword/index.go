// Package keyword provides full-text lookup over redacted document text.
package keyword

import (
	"context"

	"github.com/NamanLimani/guardrail-ai/internal/models"
)

// SearchOptions optional parameters for keyword search. Nil means use defaults.
type SearchOptions struct {
	// TitleBoost multiplies the score contribution from matches in the filename.
	// Use 1.0 for no boost.
	TitleBoost float64
	// Fuzziness is the maximum edit distance for typo-tolerant matching (1 or 2).
	// Zero disables fuzzy matching.
	Fuzziness int
}

// Index defines keyword lookup operations. Every search is scoped to one owner.
type Index interface {
	Index(ctx context.Context, doc *models.Document) error
	Search(ctx context.Context, ownerID, query string, limit int, opts *SearchOptions) ([]models.LookupHit, error)
	Delete(ctx context.Context, id string) error
	DocCount() (uint64, error)
	Close() error
}

// entry is what gets stored per document. Only redacted text is ever indexed.
type entry struct {
	OwnerID  string `json:"owner_id"`
	Filename string `json:"filename"`
	Content  string `json:"content"`
}
