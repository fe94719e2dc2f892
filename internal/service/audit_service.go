package service

import (
	"context"
	"fmt"
	"time"

	"educonnect/internal/audit"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/repository"
)

// auditWindow is how many of the newest events a listing considers.
const auditWindow = 500

// AuditQuery filters the audit listing.
type AuditQuery struct {
	From   string
	To     string
	UserID string
	Action string
	Page   int
}

// AuditEntry is an audit event ready for display.
type AuditEntry struct {
	model.AuditEvent
	UserName string `json:"userName"`
}

// AuditTotals counts the filtered window by action.
type AuditTotals struct {
	Total   int `json:"total"`
	Creates int `json:"creates"`
	Updates int `json:"updates"`
	Deletes int `json:"deletes"`
	Logins  int `json:"logins"`
	Logouts int `json:"logouts"`
}

// AuditListing is one page of audit entries with totals over every matching entry.
type AuditListing struct {
	Page[AuditEntry]
	Totals AuditTotals `json:"totals"`
}

// AuditService lists the audit trail.
type AuditService interface {
	List(ctx context.Context, q AuditQuery) (*AuditListing, error)
	Recent(ctx context.Context, userID string, limit int) ([]AuditEntry, error)
}

type auditService struct {
	repo  repository.AuditRepository
	users repository.UserRepository
	loc   *time.Location
}

// NewAuditService creates a new audit listing service.
func NewAuditService(repo repository.AuditRepository, users repository.UserRepository, loc *time.Location) AuditService {
	return &auditService{repo: repo, users: users, loc: loc}
}

func (s *auditService) List(ctx context.Context, q AuditQuery) (*AuditListing, error) {
	dates, err := ParseDateRange(q.From, q.To, s.loc)
	if err != nil {
		return nil, err
	}
	filter := repository.AuditFilter{From: dates.From, To: dates.To, UserID: q.UserID, Limit: auditWindow}
	if q.Action != "" {
		action, err := parseAuditAction(q.Action)
		if err != nil {
			return nil, err
		}
		filter.Action = action
	}

	events, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list audit trail: %w", err)
	}
	entries, err := s.present(ctx, events)
	if err != nil {
		return nil, err
	}

	return &AuditListing{
		Page:   Paginate(entries, q.Page, DefaultPageSize),
		Totals: tally(events),
	}, nil
}

// Recent returns the newest events, optionally for one actor.
func (s *auditService) Recent(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	events, err := s.repo.List(ctx, repository.AuditFilter{UserID: userID, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return s.present(ctx, events)
}

func (s *auditService) present(ctx context.Context, events []model.AuditEvent) ([]AuditEntry, error) {
	ids := make([]string, 0, len(events))
	for _, e := range events {
		ids = append(ids, e.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load actors: %w", err)
	}
	names := make(map[string]string, len(users))
	for i := range users {
		names[users[i].ID] = displayOrEmail(&users[i])
	}

	out := make([]AuditEntry, 0, len(events))
	for _, e := range events {
		out = append(out, AuditEntry{AuditEvent: audit.Present(e), UserName: nameOr(names, e.UserID, "Unknown User")})
	}
	return out, nil
}

func tally(events []model.AuditEvent) AuditTotals {
	t := AuditTotals{Total: len(events)}
	for _, e := range events {
		switch e.Action {
		case model.AuditActionCreate:
			t.Creates++
		case model.AuditActionUpdate:
			t.Updates++
		case model.AuditActionDelete:
			t.Deletes++
		case model.AuditActionLogin:
			t.Logins++
		case model.AuditActionLogout:
			t.Logouts++
		}
	}
	return t
}

func parseAuditAction(s string) (model.AuditAction, error) {
	switch a := model.AuditAction(s); a {
	case model.AuditActionCreate, model.AuditActionUpdate, model.AuditActionDelete,
		model.AuditActionLogin, model.AuditActionLogout:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", apperrors.ErrInvalidInput, s)
}
