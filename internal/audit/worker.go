package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultFlushInterval = 250 * time.Millisecond
	defaultBatchSize     = 128
	retryBackoff         = 500 * time.Millisecond
)

// Worker drains the publisher's queue into the store. A durable-write
// failure gets exactly one retry with backoff; after that the entry is
// logged to the fallback channel and dropped, never propagated back to
// the request that emitted it.
type Worker struct {
	publisher *Publisher
	store     Store
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithFlushInterval sets how often the queue is drained.
func WithFlushInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

// NewWorker constructs a worker over the publisher's queue.
func NewWorker(publisher *Publisher, store Store, logger *slog.Logger, opts ...WorkerOption) *Worker {
	w := &Worker{
		publisher: publisher,
		store:     store,
		logger:    logger,
		interval:  defaultFlushInterval,
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run drains the queue until ctx is cancelled, flushing one final batch
// on shutdown.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.Flush(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			w.Flush(ctx)
		}
	}
}

// Flush persists everything currently queued.
func (w *Worker) Flush(ctx context.Context) {
	for {
		batch := w.publisher.buf.dequeueBatch(w.batchSize)
		if len(batch) == 0 {
			return
		}
		for _, entry := range batch {
			w.persist(ctx, entry)
		}
	}
}

func (w *Worker) persist(ctx context.Context, entry *Entry) {
	err := w.store.Append(ctx, entry)
	if err == nil {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(retryBackoff):
		if err = w.store.Append(ctx, entry); err == nil {
			return
		}
	}

	// Fallback channel: the entry survives only in the local log.
	w.logger.Error("audit write failed, entry logged locally",
		"error", err,
		"audit_id", entry.ID,
		"action", entry.Action,
		"status", entry.Status,
		"ip", entry.IPAddress,
		"created_at", entry.CreatedAt,
	)
}
