package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AttendanceStatus is the outcome recorded for a student at an event.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
	AttendanceLate    AttendanceStatus = "late"
	AttendanceExcused AttendanceStatus = "excused"
)

// ErrUnknownAttendanceStatus is wrapped by ParseAttendanceStatus.
var ErrUnknownAttendanceStatus = errors.New("unknown attendance status")

// ParseAttendanceStatus normalises case and whitespace.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	switch st := AttendanceStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAttendanceStatus, s)
	}
}

// AttendanceRecord is one student's attendance at one event.
type AttendanceRecord struct {
	ID         uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     string           `json:"userId" gorm:"type:varchar(64);not null;index:idx_attendance_user_time,priority:1"`
	EventID    uuid.UUID        `json:"eventId" gorm:"type:char(36);not null;index"`
	Status     AttendanceStatus `json:"status" gorm:"type:varchar(20);not null;index"`
	Timestamp  time.Time        `json:"timestamp" gorm:"not null;index;index:idx_attendance_user_time,priority:2"`
	RecordedBy string           `json:"recordedBy" gorm:"type:varchar(64)"`
	Notes      string           `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// BeforeCreate sets UUID and defaults the timestamp to now.
func (a *AttendanceRecord) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	return nil
}
