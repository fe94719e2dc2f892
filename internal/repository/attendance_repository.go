package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"educonnect/internal/model"
)

const (
	attendanceTable     = "attendance_records"
	attendanceUserIndex = "idx_attendance_user_time"
)

// AttendanceFilter narrows an attendance listing. Zero fields match everything;
// From and To are inclusive.
type AttendanceFilter struct {
	EventID uuid.UUID
	UserID  string
	Status  model.AttendanceStatus
	From    time.Time
	To      time.Time
	Limit   int
}

// AttendanceRepository defines attendance persistence operations.
type AttendanceRepository interface {
	Create(ctx context.Context, record *model.AttendanceRecord) error
	Update(ctx context.Context, record *model.AttendanceRecord) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AttendanceRecord, error)
	List(ctx context.Context, filter AttendanceFilter) ([]model.AttendanceRecord, error)
	// ListForUser returns one student's records newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]model.AttendanceRecord, error)
	CountSince(ctx context.Context, since time.Time) (int64, error)
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AttendanceRepository, events EventRepository) error) error
}

type attendanceRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *gorm.DB, log *zap.Logger) AttendanceRepository {
	return &attendanceRepository{db: db, log: log}
}

func (r *attendanceRepository) Create(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *attendanceRepository) Update(ctx context.Context, record *model.AttendanceRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *attendanceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.AttendanceRecord{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *attendanceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AttendanceRecord, error) {
	var record model.AttendanceRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, classify(err)
	}
	return &record, nil
}

func (r *attendanceRepository) List(ctx context.Context, filter AttendanceFilter) ([]model.AttendanceRecord, error) {
	q := r.db.WithContext(ctx).Model(&model.AttendanceRecord{})
	if filter.EventID != uuid.Nil {
		q = q.Where("event_id = ?", filter.EventID)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.From.IsZero() {
		q = q.Where("timestamp >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("timestamp <= ?", filter.To)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var records []model.AttendanceRecord
	if err := q.Order("timestamp DESC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *attendanceRepository) ListForUser(ctx context.Context, userID string, limit int) ([]model.AttendanceRecord, error) {
	return findWithIndexFallback(ctx, r.log, "attendance by user",
		func(ctx context.Context) ([]model.AttendanceRecord, error) {
			var records []model.AttendanceRecord
			q := hinted(r.db.WithContext(ctx), attendanceTable, attendanceUserIndex).
				Where("user_id = ?", userID).
				Order("timestamp DESC")
			if limit > 0 {
				q = q.Limit(limit)
			}
			err := q.Find(&records).Error
			return records, err
		},
		func(ctx context.Context) ([]model.AttendanceRecord, error) {
			var records []model.AttendanceRecord
			err := r.db.WithContext(ctx).Table(attendanceTable).Where("user_id = ?", userID).Find(&records).Error
			return records, err
		},
		func(a, b model.AttendanceRecord) bool { return a.Timestamp.After(b.Timestamp) },
		limit,
	)
}

func (r *attendanceRepository) CountSince(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.AttendanceRecord{}).Where("timestamp >= ?", since).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// WithTransaction executes fn within a database transaction spanning attendance and events.
func (r *attendanceRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo AttendanceRepository, events EventRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &attendanceRepository{db: tx, log: r.log}, &eventRepository{db: tx})
	})
}
