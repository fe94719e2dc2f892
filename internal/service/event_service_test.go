package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "educonnect/internal/errors"
	"educonnect/internal/model"
)

func TestEventService_Create(t *testing.T) {
	events := new(MockEventRepository)
	spy := &auditSpy{}
	svc := NewEventService(events, new(MockUserRepository), spy)
	when := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	events.On("Create", mock.Anything, mock.MatchedBy(func(e *model.Event) bool {
		return e.Name == "Orientation" && e.CreatedBy == "adm-1"
	})).Return(nil)

	event, err := svc.Create(context.Background(), "adm-1", EventInput{Name: " Orientation ", Location: "Hall A", DateTime: when})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	require.Len(t, spy.recorded(), 1)
	assert.Equal(t, "Created event: Orientation", spy.recorded()[0].Description)

	_, err = svc.Create(context.Background(), "adm-1", EventInput{Name: "No date", Location: "Hall A"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Len(t, spy.recorded(), 1)
}

func TestEventService_UpdateRecordsChangeSet(t *testing.T) {
	events := new(MockEventRepository)
	spy := &auditSpy{}
	svc := NewEventService(events, new(MockUserRepository), spy)
	id := uuid.New()
	before := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	after := before.Add(2 * time.Hour)

	events.On("FindByID", mock.Anything, id).Return(&model.Event{ID: id, Name: "Orientation", Location: "Hall A", DateTime: before}, nil)
	events.On("Update", mock.Anything, mock.Anything).Return(nil)

	_, err := svc.Update(context.Background(), "adm-1", id, EventInput{Name: "Orientation", Location: "Hall B", DateTime: after})
	require.NoError(t, err)

	recorded := spy.recorded()
	require.Len(t, recorded, 1)
	assert.Equal(t, model.AuditActionUpdate, recorded[0].Action)
	assert.Equal(t, "event", recorded[0].ResourceType)
	assert.Equal(t, []model.FieldChange{
		{Field: "dateTime", Old: before, New: after},
		{Field: "location", Old: "Hall A", New: "Hall B"},
	}, recorded[0].Changes)
}

func TestEventService_DeleteMissingEvent(t *testing.T) {
	events := new(MockEventRepository)
	spy := &auditSpy{}
	svc := NewEventService(events, new(MockUserRepository), spy)
	id := uuid.New()
	events.On("FindByID", mock.Anything, id).Return(nil, apperrors.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(context.Background(), "adm-1", id), apperrors.ErrNotFound)
	events.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	assert.Empty(t, spy.recorded())
}

func TestEventService_GetLoadsAttendees(t *testing.T) {
	events := new(MockEventRepository)
	users := new(MockUserRepository)
	svc := NewEventService(events, users, &auditSpy{})
	id := uuid.New()

	events.On("FindByID", mock.Anything, id).Return(&model.Event{ID: id, Attendees: []string{"s1", "s2"}}, nil)
	users.On("FindByIDs", mock.Anything, []string{"s1", "s2"}).Return([]model.User{{ID: "s1"}, {ID: "s2"}}, nil)

	detail, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, detail.AttendeeProfiles, 2)
}

func TestEventService_ListForStudent(t *testing.T) {
	events := new(MockEventRepository)
	svc := NewEventService(events, new(MockUserRepository), &auditSpy{})
	events.On("List", mock.Anything, "").Return([]model.Event{
		{Name: "A", Attendees: []string{"s1", "s2"}},
		{Name: "B"},
	}, nil)

	out, err := svc.ListForStudent(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Attending)
	assert.Equal(t, 2, out[0].AttendeeCount)
	assert.False(t, out[1].Attending)
}
