package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionLifetime)
	assert.Equal(t, "Libri", cfg.Google.BooksSheet)
	assert.Equal(t, "Parole_Chiave", cfg.Google.KeywordsSheet)
	assert.Equal(t, "@every 10m", cfg.OAuth2.RefreshSchedule)
	assert.Equal(t, 5*time.Minute, cfg.OAuth2.RefreshMargin)
	assert.Equal(t, time.Second, cfg.Metadata.RateInterval)
}

func TestNewConfig_Env(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sheet-1")
	t.Setenv("TASK_WORKERS", "4")
	t.Setenv("AUTH_SECURE_COOKIES", "false")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, "sheet-1", cfg.Google.SpreadsheetID)
	assert.Equal(t, 4, cfg.Tasks.Workers)
	assert.False(t, cfg.Auth.SecureCookies)
}

func TestGoogle_Configured(t *testing.T) {
	tests := []struct {
		name     string
		google   Google
		expected bool
	}{
		{"both set", Google{ClientID: "id.apps.googleusercontent.com", SpreadsheetID: "abc"}, true},
		{"missing client", Google{SpreadsheetID: "abc"}, false},
		{"missing sheet", Google{ClientID: "id"}, false},
		{"placeholder client", Google{ClientID: PlaceholderClientID, SpreadsheetID: "abc"}, false},
		{"placeholder sheet", Google{ClientID: "id", SpreadsheetID: PlaceholderSpreadsheetID}, false},
		{"blank", Google{ClientID: "  ", SpreadsheetID: "abc"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.google.Configured())
		})
	}
}
