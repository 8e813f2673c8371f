package audit

import (
	"context"
	"log/slog"
	"time"

	id "authgate/pkg/domain"
	"authgate/pkg/requestcontext"
)

// Store persists audit entries. Memory and Postgres implementations live
// under store/.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	Query(ctx context.Context, filter Filter) (*Page, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Publisher accepts audit entries from domain logic without ever blocking
// or failing the primary operation. Entries are queued for the Worker;
// on overflow the oldest entry is dropped and logged locally.
type Publisher struct {
	buf    *ringBuffer
	logger *slog.Logger
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithQueueCapacity bounds the in-process queue.
func WithQueueCapacity(capacity int) PublisherOption {
	return func(p *Publisher) {
		p.buf = newRingBuffer(capacity)
	}
}

// NewPublisher constructs a publisher with a bounded queue.
func NewPublisher(logger *slog.Logger, opts ...PublisherOption) *Publisher {
	p := &Publisher{
		buf:    newRingBuffer(0),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit queues an entry for persistence. It fills in the ID, timestamp,
// and client IP when unset, and always returns immediately.
func (p *Publisher) Emit(ctx context.Context, entry *Entry) {
	if entry == nil {
		return
	}
	if entry.ID.IsNil() {
		entry.ID = id.NewAuditID()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = requestcontext.Now(ctx)
	}
	if entry.IPAddress == "" {
		entry.IPAddress = requestcontext.ClientIP(ctx)
	}

	if dropped := p.buf.enqueue(entry); dropped != nil {
		// Overflow: the dropped entry survives only in the local log.
		p.logger.Warn("audit queue overflow, dropping oldest entry",
			"dropped_action", dropped.Action,
			"dropped_status", dropped.Status,
			"dropped_at", dropped.CreatedAt,
			"dropped_total", p.buf.droppedTotal(),
		)
	}
}

// Pending reports the number of queued entries (for metrics and tests).
func (p *Publisher) Pending() int { return p.buf.len() }

// Dropped reports the total number of entries lost to overflow.
func (p *Publisher) Dropped() int64 { return p.buf.droppedTotal() }
