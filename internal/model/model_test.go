package model

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditEventIsAppendOnly(t *testing.T) {
	e := &AuditEvent{UserID: "u1", Action: AuditActionLogin}
	require.NoError(t, e.BeforeCreate(nil))
	assert.NotEqual(t, uuid.Nil, e.ID)

	assert.ErrorIs(t, e.BeforeUpdate(nil), ErrAuditImmutable)
	assert.ErrorIs(t, e.BeforeDelete(nil), ErrAuditImmutable)
}

func TestParseAttendanceStatus(t *testing.T) {
	st, err := ParseAttendanceStatus(" Present ")
	require.NoError(t, err)
	assert.Equal(t, AttendancePresent, st)

	_, err = ParseAttendanceStatus("tardy")
	assert.ErrorIs(t, err, ErrUnknownAttendanceStatus)
}

func TestNotificationStartsUnread(t *testing.T) {
	n := &Notification{Message: "hi", TargetUserIDs: []string{"a", "b"}}
	require.NoError(t, n.BeforeCreate(nil))
	assert.Equal(t, map[string]bool{"a": false, "b": false}, n.ReadStatus)
	assert.True(t, n.IsTarget("a"))
	assert.False(t, n.IsTarget("c"))
	assert.False(t, n.ReadBy("a"))
}

func TestEventAddAttendeeOnce(t *testing.T) {
	e := &Event{}
	assert.True(t, e.AddAttendee("s1"))
	assert.False(t, e.AddAttendee("s1"))
	assert.Equal(t, []string{"s1"}, e.Attendees)
}

func TestUserDefaults(t *testing.T) {
	u := &User{Email: "a@b.c", FirstName: " Ann", LastName: ""}
	require.NoError(t, u.BeforeCreate(nil))
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, UserStatusActive, u.Status)
	assert.True(t, u.Active())
	assert.Equal(t, "Ann", u.FullName())
}
