package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"educonnect/internal/model"
)

// EventRepository defines event persistence operations.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Event, error)
	List(ctx context.Context, search string) ([]model.Event, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]model.Event, error)
	Count(ctx context.Context) (int64, error)
	// AddAttendee appends principalID to the event's attendee list under a row lock.
	AddAttendee(ctx context.Context, id uuid.UUID, principalID string) error
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Event{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, classify(err)
	}
	return &event, nil
}

func (r *eventRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Event, error) {
	var events []model.Event
	if len(ids) == 0 {
		return events, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// List returns events newest first, filtered by a case-insensitive name,
// description or location search.
func (r *eventRepository) List(ctx context.Context, search string) ([]model.Event, error) {
	q := r.db.WithContext(ctx).Model(&model.Event{})
	if s := strings.TrimSpace(search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(location) LIKE ?", like, like, like)
	}
	var events []model.Event
	if err := q.Order("date_time DESC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// ListBetween returns events scheduled in [from, to].
func (r *eventRepository) ListBetween(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	var events []model.Event
	if err := r.db.WithContext(ctx).
		Where("date_time >= ? AND date_time <= ?", from, to).
		Order("date_time DESC").
		Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Event{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *eventRepository) AddAttendee(ctx context.Context, id uuid.UUID, principalID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var event model.Event
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&event).Error; err != nil {
			return classify(err)
		}
		if !event.AddAttendee(principalID) {
			return nil
		}
		return tx.Save(&event).Error
	})
}
