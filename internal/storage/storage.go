// Package storage persists documents and their processing results.
package storage

import (
	"context"
	"errors"

	"github.com/NamanLimani/guardrail-ai/internal/models"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = errors.New("document not found")
	// ErrNotProcessing is returned when a terminal update targets a document that
	// already left the processing state.
	ErrNotProcessing = errors.New("document is not processing")
)

// Storage defines document persistence operations.
//
// A document is created in processing and moves to completed or failed exactly
// once. CompleteDocument and FailDocument enforce this atomically.
type Storage interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Document, error)
	CompleteDocument(ctx context.Context, id string, res models.ProcessingResult) error
	FailDocument(ctx context.Context, id, reason string) error
	FailProcessing(ctx context.Context, reason string) (int64, error)
	DeleteDocument(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) (map[models.Status]int64, error)

	Close() error
}
