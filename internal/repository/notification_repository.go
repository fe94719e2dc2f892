package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
)

// NotificationRepository defines notification persistence operations.
type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	List(ctx context.Context, limit int) ([]model.Notification, error)
	ListForRecipient(ctx context.Context, principalID string, limit int) ([]model.Notification, error)
	// MarkRead flips the recipient's read flag under a row lock.
	MarkRead(ctx context.Context, id uuid.UUID, principalID string) error
}

type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *gorm.DB) NotificationRepository {
	return &notificationRepository{db: db}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return classify(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *notificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error; err != nil {
		return nil, classify(err)
	}
	return &n, nil
}

func (r *notificationRepository) List(ctx context.Context, limit int) ([]model.Notification, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var out []model.Notification
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListForRecipient pre-filters on the serialized target list and confirms membership
// after decoding, so a principal id that is a substring of another never leaks.
func (r *notificationRepository) ListForRecipient(ctx context.Context, principalID string, limit int) ([]model.Notification, error) {
	var candidates []model.Notification
	if err := r.db.WithContext(ctx).
		Where("target_user_ids LIKE ?", `%"`+principalID+`"%`).
		Order("created_at DESC").
		Find(&candidates).Error; err != nil {
		return nil, err
	}

	out := make([]model.Notification, 0, len(candidates))
	for _, n := range candidates {
		if !n.IsTarget(principalID) {
			continue
		}
		out = append(out, n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, principalID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n model.Notification
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).First(&n).Error; err != nil {
			return classify(err)
		}
		if !n.IsTarget(principalID) {
			return apperrors.ErrNotRecipient
		}
		if n.ReadBy(principalID) {
			return nil
		}
		if n.ReadStatus == nil {
			n.ReadStatus = make(map[string]bool)
		}
		n.ReadStatus[principalID] = true
		return tx.Save(&n).Error
	})
}
