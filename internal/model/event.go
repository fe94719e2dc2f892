package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a scheduled session students attend.
type Event struct {
	ID          uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string    `json:"name" gorm:"size:255;not null;index"`
	Description string    `json:"description" gorm:"type:text"`
	Location    string    `json:"location" gorm:"size:255"`
	DateTime    time.Time `json:"dateTime" gorm:"not null;index"`
	Attendees   []string  `json:"attendees" gorm:"type:text;serializer:json"`
	CreatedBy   string    `json:"createdBy" gorm:"type:varchar(64)"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Attendees == nil {
		e.Attendees = []string{}
	}
	return nil
}

// AddAttendee appends principalID once. It reports whether the list changed.
func (e *Event) AddAttendee(principalID string) bool {
	if slices.Contains(e.Attendees, principalID) {
		return false
	}
	e.Attendees = append(e.Attendees, principalID)
	return true
}
