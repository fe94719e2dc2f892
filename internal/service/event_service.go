package service

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
	"educonnect/internal/repository"
)

// EventInput creates or edits an event.
type EventInput struct {
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location" validate:"required"`
	DateTime    time.Time `json:"dateTime" validate:"required"`
}

// EventDetail is an event with its attendees' profiles.
type EventDetail struct {
	model.Event
	AttendeeProfiles []model.User `json:"attendeeProfiles"`
}

// StudentEvent is an event as a student sees it.
type StudentEvent struct {
	model.Event
	AttendeeCount int  `json:"attendeeCount"`
	Attending     bool `json:"attending"`
}

// EventService manages scheduled events.
type EventService interface {
	List(ctx context.Context, search string, page int) (Page[model.Event], error)
	Get(ctx context.Context, id uuid.UUID) (*EventDetail, error)
	Create(ctx context.Context, actorID string, in EventInput) (*model.Event, error)
	Update(ctx context.Context, actorID string, id uuid.UUID, in EventInput) (*model.Event, error)
	Delete(ctx context.Context, actorID string, id uuid.UUID) error
	ListForStudent(ctx context.Context, principalID string) ([]StudentEvent, error)
}

type eventService struct {
	events repository.EventRepository
	users  repository.UserRepository
	audit  AuditRecorder
}

// NewEventService creates a new event service.
func NewEventService(events repository.EventRepository, users repository.UserRepository, audit AuditRecorder) EventService {
	return &eventService{events: events, users: users, audit: audit}
}

func (s *eventService) List(ctx context.Context, search string, page int) (Page[model.Event], error) {
	events, err := s.events.List(ctx, search)
	if err != nil {
		return Page[model.Event]{}, fmt.Errorf("list events: %w", err)
	}
	return Paginate(events, page, DefaultPageSize), nil
}

func (s *eventService) Get(ctx context.Context, id uuid.UUID) (*EventDetail, error) {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	profiles, err := s.users.FindByIDs(ctx, event.Attendees)
	if err != nil {
		return nil, fmt.Errorf("load attendees: %w", err)
	}
	return &EventDetail{Event: *event, AttendeeProfiles: profiles}, nil
}

func (s *eventService) Create(ctx context.Context, actorID string, in EventInput) (*model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	event := &model.Event{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		DateTime:    in.DateTime,
		CreatedBy:   actorID,
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.audit.Record(ctx, actorID, model.AuditActionCreate, fmt.Sprintf("Created event: %s", event.Name))
	return event, nil
}

func (s *eventService) Update(ctx context.Context, actorID string, id uuid.UUID, in EventInput) (*model.Event, error) {
	if err := validateEventInput(in); err != nil {
		return nil, err
	}
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	description := strings.TrimSpace(in.Description)
	location := strings.TrimSpace(in.Location)

	var changes []model.FieldChange
	changes = diff(changes, "name", event.Name, name)
	changes = diff(changes, "description", event.Description, description)
	if !event.DateTime.Equal(in.DateTime) {
		changes = append(changes, model.FieldChange{Field: "dateTime", Old: event.DateTime, New: in.DateTime})
	}
	changes = diff(changes, "location", event.Location, location)

	event.Name = name
	event.Description = description
	event.Location = location
	event.DateTime = in.DateTime
	if err := s.events.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}

	s.audit.RecordChange(ctx, actorID, model.AuditActionUpdate, "event", fmt.Sprintf("Updated event: %s", event.Name), changes)
	return event, nil
}

func (s *eventService) Delete(ctx context.Context, actorID string, id uuid.UUID) error {
	event, err := s.events.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	s.audit.Record(ctx, actorID, model.AuditActionDelete, fmt.Sprintf("Deleted event: %s", event.Name))
	return nil
}

func (s *eventService) ListForStudent(ctx context.Context, principalID string) ([]StudentEvent, error) {
	events, err := s.events.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	out := make([]StudentEvent, 0, len(events))
	for _, e := range events {
		out = append(out, StudentEvent{
			Event:         e,
			AttendeeCount: len(e.Attendees),
			Attending:     slices.Contains(e.Attendees, principalID),
		})
	}
	return out, nil
}

func validateEventInput(in EventInput) error {
	switch {
	case strings.TrimSpace(in.Name) == "":
		return fmt.Errorf("%w: event name is required", apperrors.ErrInvalidInput)
	case strings.TrimSpace(in.Location) == "":
		return fmt.Errorf("%w: location is required", apperrors.ErrInvalidInput)
	case in.DateTime.IsZero():
		return fmt.Errorf("%w: date and time are required", apperrors.ErrInvalidInput)
	}
	return nil
}
