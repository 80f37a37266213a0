package watcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sync"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

// Accepter stores an upload and schedules it, like an HTTP upload would.
type Accepter interface {
	Accept(ctx context.Context, ownerID, filename, contentType string, r io.Reader) (*models.Document, error)
}

// Inbox ingests files for a single owner. A file is ingested once per
// (size, modification time); with removeAfter set it is deleted once accepted.
type Inbox struct {
	accepter    Accepter
	owner       string
	removeAfter bool
	logger      *zap.Logger

	mu   sync.Mutex
	seen map[string]fileStamp
}

type fileStamp struct {
	size    int64
	modTime int64
}

// NewInbox creates an inbox handler that files documents under owner.
func NewInbox(accepter Accepter, owner string, removeAfter bool, logger *zap.Logger) *Inbox {
	return &Inbox{
		accepter:    accepter,
		owner:       owner,
		removeAfter: removeAfter,
		logger:      utils.OrNop(logger),
		seen:        make(map[string]fileStamp),
	}
}

// HandleFile ingests path. Errors are logged; the file stays in place for a retry.
func (in *Inbox) HandleFile(ctx context.Context, path string) {
	if err := in.ingest(ctx, path); err != nil {
		in.logger.Warn("inbox ingest failed", zap.String("path", path), zap.Error(err))
	}
}

func (in *Inbox) ingest(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}
	stamp := fileStamp{size: info.Size(), modTime: info.ModTime().UnixNano()}
	in.mu.Lock()
	if prev, ok := in.seen[path]; ok && prev == stamp {
		in.mu.Unlock()
		return nil
	}
	in.seen[path] = stamp
	in.mu.Unlock()

	name := filepath.Base(path)
	doc, err := in.accepter.Accept(ctx, in.owner, name, contentType(name), f)
	if err != nil {
		if doc == nil {
			in.forget(path)
		}
		return fmt.Errorf("accept: %w", err)
	}
	in.logger.Info("inbox file accepted", zap.String("path", path), zap.String("document_id", doc.ID))

	if in.removeAfter {
		_ = f.Close()
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("remove ingested file: %w", err)
		}
		in.forget(path)
	}
	return nil
}

func (in *Inbox) forget(path string) {
	in.mu.Lock()
	delete(in.seen, path)
	in.mu.Unlock()
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
