package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification is a message sent by an administrator to one or more students.
type Notification struct {
	ID            uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Message       string          `json:"message" gorm:"type:text;not null"`
	Type          string          `json:"type" gorm:"size:50;default:'general'"`
	TargetUserIDs []string        `json:"targetUserIds" gorm:"type:text;serializer:json"`
	ReadStatus    map[string]bool `json:"readStatus" gorm:"type:text;serializer:json"`
	CreatedBy     string          `json:"createdBy" gorm:"type:varchar(64)"`
	CreatedAt     time.Time       `json:"createdAt" gorm:"index"`
}

// BeforeCreate sets UUID and marks every target unread.
func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.ReadStatus == nil {
		n.ReadStatus = make(map[string]bool, len(n.TargetUserIDs))
		for _, id := range n.TargetUserIDs {
			n.ReadStatus[id] = false
		}
	}
	return nil
}

// IsTarget reports whether principalID is a recipient.
func (n *Notification) IsTarget(principalID string) bool {
	return slices.Contains(n.TargetUserIDs, principalID)
}

// ReadBy reports whether principalID has read the notification.
func (n *Notification) ReadBy(principalID string) bool {
	return n.ReadStatus[principalID]
}
