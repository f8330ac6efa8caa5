package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Auth
		Google
		Metadata
		Tasks
		OAuth2
		Crypto
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
		LogLevel                 string
		LogFormat                string // "text" or "json"
	}

	Database struct {
		Path string
	}

	Auth struct {
		SessionSecret   string
		SessionLifetime time.Duration
		SecureCookies   bool // Set to false for local dev without HTTPS
		CSRFEnabled     bool
	}

	Google struct {
		ClientID        string
		ClientSecret    string
		RedirectURL     string
		SpreadsheetID   string
		BooksSheet      string
		LibrariesSheet  string
		CategoriesSheet string
		KeywordsSheet   string
		SheetsRate      float64 // requests per second
	}

	Metadata struct {
		Timeout      time.Duration
		RateInterval time.Duration
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}

	OAuth2 struct {
		RefreshEnabled  bool
		RefreshSchedule string        // Cron format or descriptor, e.g. "@every 10m"
		RefreshMargin   time.Duration // Refresh tokens expiring within this duration
	}

	Crypto struct {
		TokenEncryptionKey string
		KeyFile            string
	}
)

// Configured reports whether Google sign-in and the spreadsheet can be used:
// both ids are set and neither is a template placeholder.
func (g Google) Configured() bool {
	return isSet(g.ClientID, PlaceholderClientID) && isSet(g.SpreadsheetID, PlaceholderSpreadsheetID)
}

func isSet(value, placeholder string) bool {
	value = strings.TrimSpace(value)
	return value != "" && value != placeholder
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("database_path", DefaultDatabasePath)

	// Auth defaults
	v.SetDefault("auth_session_secret", "")
	v.SetDefault("auth_session_lifetime", "24h")
	v.SetDefault("auth_secure_cookies", true)
	v.SetDefault("auth_csrf_enabled", false)

	// Google defaults
	v.SetDefault("google_client_id", "")
	v.SetDefault("google_client_secret", "")
	v.SetDefault("google_redirect_url", "http://localhost:8188/api/auth/google/callback")
	v.SetDefault("google_spreadsheet_id", "")
	v.SetDefault("google_books_sheet", "Libri")
	v.SetDefault("google_libraries_sheet", "Librerie")
	v.SetDefault("google_categories_sheet", "Categorie")
	v.SetDefault("google_keywords_sheet", "Parole_Chiave")
	v.SetDefault("google_sheets_rate", 5)

	v.SetDefault("metadata_timeout", "10s")
	v.SetDefault("metadata_rate_interval", "1s")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// OAuth2 defaults
	v.SetDefault("oauth2_refresh_enabled", true)
	v.SetDefault("oauth2_refresh_schedule", "@every 10m")
	v.SetDefault("oauth2_refresh_margin", "5m")

	v.SetDefault("token_encryption_key", "")
	v.SetDefault("token_key_file", DefaultKeyFile)

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			LogLevel:                 v.GetString("LOG_LEVEL"),
			LogFormat:                v.GetString("LOG_FORMAT"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Auth: Auth{
			SessionSecret:   v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime: v.GetDuration("AUTH_SESSION_LIFETIME"),
			SecureCookies:   v.GetBool("AUTH_SECURE_COOKIES"),
			CSRFEnabled:     v.GetBool("AUTH_CSRF_ENABLED"),
		},
		Google: Google{
			ClientID:        v.GetString("GOOGLE_CLIENT_ID"),
			ClientSecret:    v.GetString("GOOGLE_CLIENT_SECRET"),
			RedirectURL:     v.GetString("GOOGLE_REDIRECT_URL"),
			SpreadsheetID:   v.GetString("GOOGLE_SPREADSHEET_ID"),
			BooksSheet:      v.GetString("GOOGLE_BOOKS_SHEET"),
			LibrariesSheet:  v.GetString("GOOGLE_LIBRARIES_SHEET"),
			CategoriesSheet: v.GetString("GOOGLE_CATEGORIES_SHEET"),
			KeywordsSheet:   v.GetString("GOOGLE_KEYWORDS_SHEET"),
			SheetsRate:      v.GetFloat64("GOOGLE_SHEETS_RATE"),
		},
		Metadata: Metadata{
			Timeout:      v.GetDuration("METADATA_TIMEOUT"),
			RateInterval: v.GetDuration("METADATA_RATE_INTERVAL"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		OAuth2: OAuth2{
			RefreshEnabled:  v.GetBool("OAUTH2_REFRESH_ENABLED"),
			RefreshSchedule: v.GetString("OAUTH2_REFRESH_SCHEDULE"),
			RefreshMargin:   v.GetDuration("OAUTH2_REFRESH_MARGIN"),
		},
		Crypto: Crypto{
			TokenEncryptionKey: v.GetString("TOKEN_ENCRYPTION_KEY"),
			KeyFile:            v.GetString("TOKEN_KEY_FILE"),
		},
	}
}
