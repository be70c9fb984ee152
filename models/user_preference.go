package models

import (
	"time"

	"gorm.io/datatypes"
)

// Benachrichtigungsfrequenzen
const (
	NotifyWeekly = "weekly"
	NotifyNever  = "never"
)

// UserPreference hält die Feed- und Benachrichtigungseinstellungen eines Nutzers.
// Gepflegt wird die Tabelle vom Nutzerdienst, die Pipeline liest nur und
// setzt LastNotifiedAt.
type UserPreference struct {
	UserID    string    `json:"user_id" gorm:"primaryKey;size:64"`
	UpdatedAt time.Time `json:"updated_at"`

	Email                 string                      `json:"email"`
	Topics                datatypes.JSONSlice[string] `json:"topics" gorm:"type:jsonb"`
	ResearchTypes         datatypes.JSONSlice[string] `json:"research_types" gorm:"type:jsonb"`
	NotificationFrequency string                      `json:"notification_frequency" gorm:"size:16;default:weekly"`
	LastNotifiedAt        *time.Time                  `json:"last_notified_at,omitempty"`
}

// TableName gibt explizit den Tabellennamen an.
func (UserPreference) TableName() string {
	return "user_preferences"
}
