package entities

import (
	"time"
)

// Setting is one entry of the local key/value store.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys
const (
	SettingKeyCurrentUser = "currentUser"

	// Google credential
	SettingKeyGoogleAccessToken  = "google_access_token"
	SettingKeyGoogleTokenExpiry  = "google_token_expiry"
	SettingKeyGoogleRefreshToken = "google_refresh_token"
)
