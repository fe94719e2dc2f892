package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserStatus is the lifecycle state of a principal's profile.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is a principal's profile document. Role is stored as its label; an
// empty role means the profile predates role assignment.
type User struct {
	ID        string     `json:"id" gorm:"type:varchar(64);primaryKey"`
	Email     string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Username  string     `json:"username,omitempty" gorm:"size:100;index"`
	FirstName string     `json:"firstName" gorm:"size:100"`
	LastName  string     `json:"lastName" gorm:"size:100"`
	Role      string     `json:"role" gorm:"size:50;index"`
	Status    UserStatus `json:"status" gorm:"type:varchar(20);not null;default:'active';index"`
	StudentID string     `json:"studentId,omitempty" gorm:"size:64"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// BeforeCreate assigns an id and default status.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}

// FullName joins first and last name, trimming whatever is missing.
func (u *User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// Active reports whether the profile may sign in. An unset status counts as active.
func (u *User) Active() bool {
	return u.Status == "" || u.Status == UserStatusActive
}
