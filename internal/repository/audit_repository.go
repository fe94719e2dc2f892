package repository

import (
	"context"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"educonnect/internal/model"
)

const (
	auditTable     = "audit_events"
	auditUserIndex = "idx_audit_user_time"
)

// AuditFilter narrows an audit listing. Zero fields match everything; From and To are inclusive.
type AuditFilter struct {
	From   time.Time
	To     time.Time
	UserID string
	Action model.AuditAction
	Limit  int
}

// AuditRepository persists audit events. It deliberately has no update or delete.
type AuditRepository interface {
	Create(ctx context.Context, event *model.AuditEvent) error
	CreateBatch(ctx context.Context, events []model.AuditEvent) error
	List(ctx context.Context, filter AuditFilter) ([]model.AuditEvent, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
}

type auditRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *gorm.DB, log *zap.Logger) AuditRepository {
	return &auditRepository{db: db, log: log}
}

func (r *auditRepository) Create(ctx context.Context, event *model.AuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateBatch creates multiple audit events in a single statement per batch.
func (r *auditRepository) CreateBatch(ctx context.Context, events []model.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 100).Error
}

// List returns events newest first. A user filter uses the composite
// (user, timestamp) index and degrades to a client-side sort without it.
func (r *auditRepository) List(ctx context.Context, filter AuditFilter) ([]model.AuditEvent, error) {
	scope := func(q *gorm.DB) *gorm.DB {
		if filter.UserID != "" {
			q = q.Where("user_id = ?", filter.UserID)
		}
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if !filter.From.IsZero() {
			q = q.Where("timestamp >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			q = q.Where("timestamp <= ?", filter.To)
		}
		return q
	}
	limited := func(q *gorm.DB) *gorm.DB {
		if filter.Limit > 0 {
			return q.Limit(filter.Limit)
		}
		return q
	}

	if filter.UserID == "" {
		var events []model.AuditEvent
		err := limited(scope(r.db.WithContext(ctx).Model(&model.AuditEvent{}))).Order("timestamp DESC").Find(&events).Error
		return events, classify(err)
	}

	return findWithIndexFallback(ctx, r.log, "audit by user",
		func(ctx context.Context) ([]model.AuditEvent, error) {
			var events []model.AuditEvent
			err := limited(scope(hinted(r.db.WithContext(ctx), auditTable, auditUserIndex))).Order("timestamp DESC").Find(&events).Error
			return events, err
		},
		func(ctx context.Context) ([]model.AuditEvent, error) {
			var events []model.AuditEvent
			err := scope(r.db.WithContext(ctx).Table(auditTable)).Find(&events).Error
			return events, err
		},
		func(a, b model.AuditEvent) bool { return a.Timestamp.After(b.Timestamp) },
		filter.Limit,
	)
}

func (r *auditRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.AuditEvent{}).Where("timestamp >= ?", since).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
