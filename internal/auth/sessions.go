package auth

import (
	"database/sql"
	"encoding/gob"
	"fmt"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"

	"github.com/mrlokans/bookcatalog/internal/config"
	"github.com/mrlokans/bookcatalog/internal/session"
)

// CookieName is the browser cookie carrying the scs token.
const CookieName = "catalog_session"

// Session data keys
const (
	SessionKeyHandle  = "session_handle"
	SessionKeyUserID  = "user_id"
	SessionKeyLoginAt = "login_at"
)

func init() {
	gob.Register(time.Time{})
}

// SessionManager wraps scs.SessionManager. A browser session only stores
// the handle of the catalog session it was issued for.
type SessionManager struct {
	*scs.SessionManager
}

// NewSessionManager creates a session manager backed by the sessions table.
// The sqlDB parameter should be the underlying *sql.DB from GORM.
func NewSessionManager(sqlDB *sql.DB, cfg config.Auth) (*SessionManager, error) {
	_, err := sqlDB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`)
	if err != nil {
		return nil, fmt.Errorf("create sessions table: %w", err)
	}

	sm := scs.New()
	sm.Store = sqlite3store.New(sqlDB)

	lifetime := cfg.SessionLifetime
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	sm.Lifetime = lifetime
	sm.IdleTimeout = lifetime / 2

	sm.Cookie.Name = CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = cfg.SecureCookies
	// Lax: the google callback arrives as a top-level cross-site navigation.
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Path = "/"

	return &SessionManager{SessionManager: sm}, nil
}

// BindSession ties the browser session to sess after a successful sign-in.
func (sm *SessionManager) BindSession(r *http.Request, sess *session.Session) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(r.Context()); err != nil {
		return err
	}

	sm.Put(r.Context(), SessionKeyHandle, sess.Handle)
	sm.Put(r.Context(), SessionKeyUserID, sess.User.ID)
	sm.Put(r.Context(), SessionKeyLoginAt, sess.User.LoginDate)
	return nil
}

// DestroySession removes all session data and invalidates the cookie.
func (sm *SessionManager) DestroySession(r *http.Request) error {
	return sm.Destroy(r.Context())
}

// Handle returns the catalog session handle stored in the browser session.
func (sm *SessionManager) Handle(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyHandle)
}

// UserID returns the id of the user the browser session was issued to.
func (sm *SessionManager) UserID(r *http.Request) string {
	return sm.GetString(r.Context(), SessionKeyUserID)
}

// Matches reports whether the browser session belongs to sess.
func (sm *SessionManager) Matches(r *http.Request, sess *session.Session) bool {
	if sess == nil {
		return false
	}
	handle := sm.Handle(r)
	return handle != "" && handle == sess.Handle
}
