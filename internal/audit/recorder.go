// Package audit records who did what, when and from where. Recording never
// fails the action being audited.
package audit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"educonnect/internal/metrics"
	"educonnect/internal/model"
)

// Repository persists audit events.
type Repository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	CreateBatch(ctx context.Context, events []model.AuditEvent) error
}

// Config tunes the background writer.
type Config struct {
	Buffer        int
	Batch         int
	FlushInterval time.Duration
}

// Recorder queues audit events and persists them in batches.
type Recorder struct {
	repo   Repository
	origin OriginResolver
	log    *zap.Logger
	cfg    Config

	events chan model.AuditEvent
	done   chan struct{}
	spills sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewRecorder creates a recorder and starts its writer.
func NewRecorder(repo Repository, origin OriginResolver, log *zap.Logger, cfg Config) *Recorder {
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 10
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Recorder{
		repo:   repo,
		origin: origin,
		log:    log,
		cfg:    cfg,
		events: make(chan model.AuditEvent, cfg.Buffer),
		done:   make(chan struct{}),
	}
	go r.writer(context.Background())
	return r
}

// Record queues a plain audit event.
func (r *Recorder) Record(ctx context.Context, actorID string, action model.AuditAction, description string) {
	r.enqueue(ctx, model.AuditEvent{
		UserID:      actorID,
		Action:      action,
		Description: description,
	})
}

// RecordChange queues an audit event with a field-level change set.
// Sensitive values are redacted before they are queued.
func (r *Recorder) RecordChange(ctx context.Context, actorID string, action model.AuditAction, resourceType, description string, changes []model.FieldChange) {
	r.enqueue(ctx, model.AuditEvent{
		UserID:       actorID,
		Action:       action,
		Description:  description,
		ResourceType: resourceType,
		Changes:      Redact(changes),
	})
}

func (r *Recorder) enqueue(ctx context.Context, ev model.AuditEvent) {
	if addr, ok := OriginFrom(ctx); ok {
		ev.IPAddress = addr
	}
	ev.Timestamp = time.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		metrics.AuditFailed.Inc()
		r.log.Warn("audit event after close dropped", zap.String("user_id", ev.UserID), zap.String("action", string(ev.Action)))
		return
	}

	// Send to writer channel (non-blocking)
	select {
	case r.events <- ev:
	default:
		// Buffer full, write on the side
		metrics.AuditSpilled.Inc()
		r.spills.Add(1)
		go func() {
			defer r.spills.Done()
			ctx := context.Background()
			r.fillOrigin(ctx, &ev)
			if err := r.repo.Create(ctx, &ev); err != nil {
				r.failed(err, 1)
				return
			}
			metrics.AuditWritten.Inc()
		}()
	}
}

// writer drains the queue in batches until the queue is closed.
func (r *Recorder) writer(ctx context.Context) {
	defer close(r.done)

	batch := make([]model.AuditEvent, 0, r.cfg.Batch)
	ticker := time.NewTicker(r.cfg.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.repo.CreateBatch(ctx, batch); err != nil {
			r.failed(err, len(batch))
		} else {
			metrics.AuditWritten.Add(float64(len(batch)))
		}
		batch = make([]model.AuditEvent, 0, r.cfg.Batch)
	}

	for {
		select {
		case ev, ok := <-r.events:
			if !ok {
				flush()
				return
			}
			r.fillOrigin(ctx, &ev)
			batch = append(batch, ev)
			if len(batch) >= r.cfg.Batch {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (r *Recorder) fillOrigin(ctx context.Context, ev *model.AuditEvent) {
	if ev.IPAddress != "" {
		return
	}
	if r.origin == nil {
		ev.IPAddress = UnknownOrigin
		return
	}
	ev.IPAddress = r.origin.Resolve(ctx)
}

func (r *Recorder) failed(err error, n int) {
	metrics.AuditFailed.Add(float64(n))
	r.log.Error("persist audit events", zap.Int("count", n), zap.Error(err))
}

// Close stops accepting events, flushes what is queued and waits for side
// writes, or until ctx is done. It is safe to call more than once.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.events)
	}
	r.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		<-r.done
		r.spills.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("audit recorder: flush interrupted"), ctx.Err())
	}
}
