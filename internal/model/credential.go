package model

import "time"

// Credential is the sign-in secret for a principal, kept apart from the profile.
type Credential struct {
	PrincipalID  string    `json:"principal_id" gorm:"type:varchar(64);primaryKey"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
