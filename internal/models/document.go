// Package models defines core data structures for documents, PII statistics, queries, and retrieval results.
package models

import "time"

// Status is the processing state of an uploaded document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Document represents an uploaded file and the result of processing it.
// TextContent holds redacted text only; it is empty until the document completes.
type Document struct {
	ID            string    `json:"id" db:"id"`
	OwnerID       string    `json:"user_id" db:"owner_id"`
	Filename      string    `json:"filename" db:"filename"`
	FileSize      int64     `json:"file_size" db:"file_size"`
	ContentType   string    `json:"content_type" db:"content_type"`
	FilePath      string    `json:"file_path" db:"file_path"`
	Status        Status    `json:"status" db:"status"`
	TextContent   string    `json:"text_content,omitempty" db:"text_content"`
	Vector        []float32 `json:"vector,omitempty" db:"vector"`
	RiskScore     int       `json:"risk_score" db:"risk_score"`
	RiskLevel     string    `json:"risk_level,omitempty" db:"-"`
	PiiStats      PiiStats  `json:"pii_stats,omitempty" db:"pii_stats"`
	FailureReason string    `json:"failure_reason,omitempty" db:"failure_reason"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// ProcessingResult is what a successful pipeline run persists in one update.
type ProcessingResult struct {
	TextContent string
	Vector      []float32
	RiskScore   int
	PiiStats    PiiStats
}
