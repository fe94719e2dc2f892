package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"educonnect/internal/auth"
	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
)

// AuditRecorder is the fire-and-forget audit sink every mutation reports to.
type AuditRecorder interface {
	Record(ctx context.Context, actorID string, action model.AuditAction, description string)
	RecordChange(ctx context.Context, actorID string, action model.AuditAction, resourceType, description string, changes []model.FieldChange)
}

// ChangePublisher announces principal changes to subscribers.
type ChangePublisher interface {
	Publish(change auth.PrincipalChange)
}

// DefaultPageSize is the listing page size used by every controller.
const DefaultPageSize = 20

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Paginate slices items into the 1-based page. Out-of-range pages clamp to the last page.
func Paginate[T any](items []T, page, size int) Page[T] {
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := min(start+size, total)

	out := make([]T, 0, end-start)
	out = append(out, items[start:end]...)
	return Page[T]{Items: out, Page: page, PageSize: size, Total: total, TotalPages: pages}
}

// DateRange is an inclusive calendar-day range. Zero bounds are open.
type DateRange struct {
	From time.Time
	To   time.Time
}

const dateLayout = "2006-01-02"

// ParseDateRange parses YYYY-MM-DD bounds in loc. From starts at midnight and To
// extends to the last instant of its day.
func ParseDateRange(from, to string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.Local
	}
	var r DateRange
	if s := strings.TrimSpace(from); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return r, fmt.Errorf("%w: from %q", apperrors.ErrInvalidDateRange, from)
		}
		r.From = t
	}
	if s := strings.TrimSpace(to); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return r, fmt.Errorf("%w: to %q", apperrors.ErrInvalidDateRange, to)
		}
		r.To = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From) {
		return r, fmt.Errorf("%w: end before start", apperrors.ErrInvalidDateRange)
	}
	return r, nil
}

// startOfDay returns local midnight of t.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// diff appends a change when old and new differ.
func diff[T comparable](changes []model.FieldChange, field string, before, after T) []model.FieldChange {
	if before == after {
		return changes
	}
	return append(changes, model.FieldChange{Field: field, Old: before, New: after})
}

func isNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
