package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/NamanLimani/guardrail-ai/internal/blob"
	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/storage"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Enqueuer schedules a document for background processing.
type Enqueuer interface {
	Enqueue(doc *models.Document) error
}

// KeywordRemover drops a document from the keyword index.
type KeywordRemover interface {
	Delete(ctx context.Context, id string) error
}

// Intake accepts uploads and removes documents.
type Intake struct {
	store   storage.Storage
	blobs   blob.Store
	queue   Enqueuer
	keyword KeywordRemover
	logger  *zap.Logger
}

// NewIntake creates an Intake. keyword may be nil.
func NewIntake(store storage.Storage, blobs blob.Store, queue Enqueuer, keyword KeywordRemover, logger *zap.Logger) *Intake {
	return &Intake{
		store:   store,
		blobs:   blobs,
		queue:   queue,
		keyword: keyword,
		logger:  utils.OrNop(logger),
	}
}

// Accept stores r under a new document id, records the document in processing and
// schedules it. If scheduling fails the document is marked failed and the error returned
// together with the document.
func (in *Intake) Accept(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (*models.Document, error) {
	if strings.TrimSpace(ownerID) == "" {
		return nil, errors.New("owner id is required")
	}
	id := uuid.New().String()
	key := blob.Key(id, filename)

	size, err := in.blobs.Put(ctx, key, r, contentType)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc := &models.Document{
		ID:          id,
		OwnerID:     ownerID,
		Filename:    displayName(filename),
		FileSize:    size,
		ContentType: contentType,
		FilePath:    key,
		Status:      models.StatusProcessing,
	}
	if err := in.store.CreateDocument(ctx, doc); err != nil {
		if delErr := in.blobs.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			in.logger.Warn("failed to remove orphaned upload", zap.String("key", key), zap.Error(delErr))
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	if err := in.queue.Enqueue(doc); err != nil {
		reason := ReasonEnqueueFailed
		if errors.Is(err, ErrQueueFull) {
			reason = ReasonQueueFull
		}
		if failErr := in.store.FailDocument(context.WithoutCancel(ctx), id, reason); failErr != nil {
			in.logger.Error("failed to record failure", zap.String("document_id", id), zap.Error(failErr))
		}
		doc.Status = models.StatusFailed
		doc.FailureReason = reason
		return doc, fmt.Errorf("schedule document: %w", err)
	}

	in.logger.Info("upload accepted",
		zap.String("document_id", id),
		zap.String("owner_id", ownerID),
		zap.Int64("size", size),
	)
	return doc, nil
}

// Remove deletes ownerID's document along with its upload and keyword entry.
// Documents of other owners are reported as not found.
func (in *Intake) Remove(ctx context.Context, ownerID, id string) error {
	doc, err := in.store.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != ownerID {
		return fmt.Errorf("%s: %w", id, storage.ErrNotFound)
	}
	if err := in.store.DeleteDocument(ctx, id); err != nil {
		return err
	}
	if err := in.blobs.Delete(ctx, doc.FilePath); err != nil {
		in.logger.Warn("failed to remove upload", zap.String("document_id", id), zap.Error(err))
	}
	if in.keyword != nil {
		if err := in.keyword.Delete(ctx, id); err != nil {
			in.logger.Warn("failed to remove keyword entry", zap.String("document_id", id), zap.Error(err))
		}
	}
	return nil
}

func displayName(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == ".." {
		return "upload"
	}
	return base
}
