package models

import (
	"fmt"
	"strings"
)

// Chat roles accepted in conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatMessage is one turn of conversation history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SearchRequest is a semantic search over one owner's documents.
type SearchRequest struct {
	Query string `json:"query"`
}

// Validate trims the query and rejects empty queries.
func (q *SearchRequest) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// ChatRequest asks a question grounded in the owner's documents.
type ChatRequest struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history,omitempty"`
}

// Validate trims the query and rejects empty queries.
func (q *ChatRequest) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}

// LookupRequest is a keyword search over redacted text.
// Fuzziness is the edit distance allowed per term (0 to 2).
type LookupRequest struct {
	Query     string `json:"query"`
	Limit     int    `json:"limit,omitempty"`
	Fuzziness int    `json:"fuzziness,omitempty"`
}

// MaxFuzziness is the largest edit distance a lookup may ask for.
const MaxFuzziness = 2

// Validate ensures the lookup has a query and normalizes the limit.
func (q *LookupRequest) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Fuzziness < 0 || q.Fuzziness > MaxFuzziness {
		return fmt.Errorf("fuzziness must be between 0 and %d", MaxFuzziness)
	}
	return nil
}
