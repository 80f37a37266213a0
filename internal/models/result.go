package models

// ScoredMatch is one document ranked against a query vector.
// Text carries the full redacted content for chat context and is never serialized.
type ScoredMatch struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename"`
	Score      float64 `json:"score"`
	Preview    string  `json:"preview,omitempty"`
	Text       string  `json:"-"`
}

// LookupHit is a keyword match over redacted text.
type LookupHit struct {
	DocumentID string  `json:"document_id"`
	Filename   string  `json:"filename,omitempty"`
	Score      float64 `json:"score"`
}
