package http

import (
	"github.com/mrlokans/bookcatalog/internal/auth"
	"github.com/mrlokans/bookcatalog/internal/database"
	"github.com/mrlokans/bookcatalog/internal/metadata"
	"github.com/mrlokans/bookcatalog/internal/scanner"
	"github.com/mrlokans/bookcatalog/internal/session"
	"github.com/mrlokans/bookcatalog/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Sessions *session.Manager
	Cookies  *auth.SessionManager
	Database *database.Database

	// CSRF protection is enabled when a secret is set
	CSRFSecret    []byte
	SecureCookies bool

	// Metadata lookup and enrichment
	Lookup   *metadata.Lookup
	Enricher *metadata.Enricher

	// ImageDecoder enables POST /api/scan/image (optional)
	ImageDecoder scanner.ImageDecoder

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}
