package config

// Default paths for local files
const (
	// DefaultDatabasePath is the default path for the local key/value store
	DefaultDatabasePath = "./bookcatalog.db"

	// DefaultKeyFile holds the generated credential encryption key
	DefaultKeyFile = "./bookcatalog.key"
)

// Template values shipped in example configuration files.
const (
	PlaceholderClientID      = "YOUR_GOOGLE_CLIENT_ID_HERE.apps.googleusercontent.com"
	PlaceholderSpreadsheetID = "YOUR_GOOGLE_SHEET_ID_HERE"
)
