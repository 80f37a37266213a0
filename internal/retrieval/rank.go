package retrieval

import (
	"sort"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
)

const (
	// NoiseFloor is the score a match must exceed to be returned.
	NoiseFloor = 0.01
	// PreviewChars is the length of the text excerpt in search results.
	PreviewChars = 200
)

// Candidate is a stored document considered for ranking.
type Candidate struct {
	DocumentID string
	Filename   string
	Text       string
	Vector     []float32
}

// Rank scores candidates against query and returns those above NoiseFloor, best
// first. Ties are ordered by document id. k > 0 caps the result length.
// Candidates without a comparable vector are skipped.
func Rank(query []float32, candidates []Candidate, k int) []models.ScoredMatch {
	matches := make([]models.ScoredMatch, 0, len(candidates))
	for _, c := range candidates {
		if c.Vector == nil {
			continue
		}
		score, ok := Cosine(query, c.Vector)
		if !ok || score <= NoiseFloor {
			continue
		}
		matches = append(matches, models.ScoredMatch{
			DocumentID: c.DocumentID,
			Filename:   c.Filename,
			Score:      score,
			Text:       c.Text,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].DocumentID < matches[j].DocumentID
	})
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Preview returns the first PreviewChars runes of text followed by "...".
func Preview(text string) string {
	return utils.Prefix(text, PreviewChars) + "..."
}
