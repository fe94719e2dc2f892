package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction is the kind of action an audit event describes.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionLogin  AuditAction = "login"
	AuditActionLogout AuditAction = "logout"
)

// ErrAuditImmutable is returned by any attempt to modify a stored audit event.
var ErrAuditImmutable = errors.New("audit events are append-only")

// FieldChange is one changed field of an update.
type FieldChange struct {
	Field string `json:"field"`
	Old   any    `json:"oldValue"`
	New   any    `json:"newValue"`
}

// AuditEvent is an immutable record of a principal's action.
type AuditEvent struct {
	ID           uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	UserID       string        `json:"userId" gorm:"type:varchar(64);not null;index:idx_audit_user_time,priority:1"`
	Action       AuditAction   `json:"action" gorm:"type:varchar(20);not null;index"`
	Description  string        `json:"description" gorm:"type:text"`
	ResourceType string        `json:"resourceType,omitempty" gorm:"size:50"`
	Changes      []FieldChange `json:"changes,omitempty" gorm:"type:text;serializer:json"`
	IPAddress    string        `json:"ipAddress" gorm:"size:64"`
	Timestamp    time.Time     `json:"timestamp" gorm:"autoCreateTime;index;index:idx_audit_user_time,priority:2"`
}

// BeforeCreate sets UUID before creating the record.
func (e *AuditEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// BeforeUpdate refuses every update.
func (e *AuditEvent) BeforeUpdate(tx *gorm.DB) error {
	return ErrAuditImmutable
}

// BeforeDelete refuses every delete.
func (e *AuditEvent) BeforeDelete(tx *gorm.DB) error {
	return ErrAuditImmutable
}
