package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"go.uber.org/zap"
)

// Dispatcher defaults.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 64
)

var (
	// ErrQueueFull is returned when the backlog is at capacity.
	ErrQueueFull = errors.New("processing queue is full")
	// ErrAlreadyQueued is returned when the document is already waiting or running.
	ErrAlreadyQueued = errors.New("document already queued")
	// ErrStopped is returned after Stop has been called.
	ErrStopped = errors.New("dispatcher stopped")
)

// Processor runs one document to a terminal state.
type Processor interface {
	Process(ctx context.Context, doc *models.Document) (models.Status, error)
}

// Dispatcher runs documents through a Processor on a fixed pool of workers.
// Jobs use the dispatcher's own context, so they outlive the request that queued them.
type Dispatcher struct {
	proc   Processor
	queue  chan *models.Document
	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	inflight map[string]struct{}
	stopped  bool
}

// NewDispatcher starts workers goroutines draining a queue of queueSize documents.
func NewDispatcher(proc Processor, workers, queueSize int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		proc:     proc,
		queue:    make(chan *models.Document, queueSize),
		logger:   utils.OrNop(logger),
		ctx:      ctx,
		cancel:   cancel,
		inflight: make(map[string]struct{}),
	}
	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules doc without blocking.
func (d *Dispatcher) Enqueue(doc *models.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return ErrStopped
	}
	if _, ok := d.inflight[doc.ID]; ok {
		return ErrAlreadyQueued
	}
	select {
	case d.queue <- doc:
		d.inflight[doc.ID] = struct{}{}
		return nil
	default:
		return ErrQueueFull
	}
}

// Pending returns the number of documents queued or running.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inflight)
}

// Stop rejects new work and waits for queued and running documents. If ctx ends
// first, running jobs are cancelled and ctx's error is returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for doc := range d.queue {
		d.run(doc)
		d.mu.Lock()
		delete(d.inflight, doc.ID)
		d.mu.Unlock()
	}
}

func (d *Dispatcher) run(doc *models.Document) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("processor panicked", zap.String("document_id", doc.ID), zap.Any("panic", r))
		}
	}()
	status, err := d.proc.Process(d.ctx, doc)
	if err != nil {
		d.logger.Debug("document processed with error", zap.String("document_id", doc.ID), zap.String("status", string(status)), zap.Error(err))
		return
	}
	d.logger.Debug("document processed", zap.String("document_id", doc.ID), zap.String("status", string(status)))
}
