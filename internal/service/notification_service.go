package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/repository"
)

const (
	notificationWindow  = 500
	defaultNotification = "general"
	excerptLength       = 50
)

// NotificationInput sends a message to one or more students.
type NotificationInput struct {
	Message       string   `json:"message" validate:"required"`
	Type          string   `json:"type"`
	TargetUserIDs []string `json:"targetUserIds" validate:"required,min=1"`
}

// InboxItem is a notification as its recipient sees it.
type InboxItem struct {
	ID        uuid.UUID `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

// NotificationService sends and delivers notifications.
type NotificationService interface {
	List(ctx context.Context, page int) (Page[model.Notification], error)
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	Send(ctx context.Context, actorID string, in NotificationInput) (*model.Notification, error)
	Delete(ctx context.Context, actorID string, id uuid.UUID) error
	Inbox(ctx context.Context, principalID string) ([]InboxItem, error)
	MarkRead(ctx context.Context, principalID string, id uuid.UUID) error
}

type notificationService struct {
	repo  repository.NotificationRepository
	audit AuditRecorder
}

// NewNotificationService creates a new notification service.
func NewNotificationService(repo repository.NotificationRepository, audit AuditRecorder) NotificationService {
	return &notificationService{repo: repo, audit: audit}
}

func (s *notificationService) List(ctx context.Context, page int) (Page[model.Notification], error) {
	items, err := s.repo.List(ctx, notificationWindow)
	if err != nil {
		return Page[model.Notification]{}, fmt.Errorf("list notifications: %w", err)
	}
	return Paginate(items, page, DefaultPageSize), nil
}

func (s *notificationService) Get(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *notificationService) Send(ctx context.Context, actorID string, in NotificationInput) (*model.Notification, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is required", apperrors.ErrInvalidInput)
	}
	targets := dedupe(in.TargetUserIDs)
	if len(targets) == 0 {
		return nil, apperrors.ErrNoRecipients
	}
	kind := strings.TrimSpace(in.Type)
	if kind == "" {
		kind = defaultNotification
	}

	n := &model.Notification{
		Message:       message,
		Type:          kind,
		TargetUserIDs: targets,
		CreatedBy:     actorID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}

	s.audit.Record(ctx, actorID, model.AuditActionCreate,
		fmt.Sprintf("Sent notification: %s to %d recipient(s)", kind, len(targets)))
	return n, nil
}

func (s *notificationService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	s.audit.Record(ctx, actorID, model.AuditActionDelete, fmt.Sprintf("Deleted notification: %s", excerpt(n.Message)))
	return nil
}

func (s *notificationService) Inbox(ctx context.Context, principalID string) ([]InboxItem, error) {
	items, err := s.repo.ListForRecipient(ctx, principalID, notificationWindow)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	out := make([]InboxItem, 0, len(items))
	for _, n := range items {
		out = append(out, InboxItem{
			ID:        n.ID,
			Message:   n.Message,
			Type:      n.Type,
			CreatedAt: n.CreatedAt,
			IsRead:    n.ReadBy(principalID),
		})
	}
	return out, nil
}

func (s *notificationService) MarkRead(ctx context.Context, principalID string, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id, principalID)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLength {
		return s
	}
	return string(r[:excerptLength])
}
