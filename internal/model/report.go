package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportType selects the report generator.
type ReportType string

const (
	ReportAttendanceSummary ReportType = "attendance_summary"
	ReportEventAttendance   ReportType = "event_attendance"
	ReportUserAttendance    ReportType = "user_attendance"
)

// Valid reports whether t names a known generator.
func (t ReportType) Valid() bool {
	switch t {
	case ReportAttendanceSummary, ReportEventAttendance, ReportUserAttendance:
		return true
	}
	return false
}

// ReportResults is the generated body of a report.
type ReportResults struct {
	Summary map[string]any   `json:"summary"`
	Details []map[string]any `json:"details"`
	Error   string           `json:"error,omitempty"`
}

// Report is a stored, generated report.
type Report struct {
	ID          uuid.UUID         `json:"id" gorm:"type:char(36);primaryKey"`
	ReportType  ReportType        `json:"reportType" gorm:"type:varchar(40);not null;index"`
	Parameters  map[string]string `json:"parameters" gorm:"type:text;serializer:json"`
	Results     ReportResults     `json:"results" gorm:"type:text;serializer:json"`
	GeneratedBy string            `json:"generatedBy" gorm:"type:varchar(64)"`
	GeneratedAt time.Time         `json:"generatedAt" gorm:"autoCreateTime;index"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Report) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
