package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/session"
)

// ContextKeySession holds the active *session.Session for the request.
const ContextKeySession = "catalog_session"

// Middleware guards routes that need the active catalog session.
type Middleware struct {
	sessions *session.Manager
	cookies  *SessionManager
}

func NewMiddleware(sessions *session.Manager, cookies *SessionManager) *Middleware {
	return &Middleware{sessions: sessions, cookies: cookies}
}

// RequireSession aborts with 401 unless a catalog session is active and the
// browser session was issued for it. A cookie issued to the same user before
// a restart is re-bound to the restored session.
func (m *Middleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := m.sessions.Current()
		if sess == nil {
			abortUnauthorized(c, "not signed in")
			return
		}

		if !m.cookies.Matches(c.Request, sess) {
			userID := m.cookies.UserID(c.Request)
			if userID == "" || userID != sess.User.ID {
				abortUnauthorized(c, "session does not belong to the signed-in user")
				return
			}
			m.cookies.Put(c.Request.Context(), SessionKeyHandle, sess.Handle)
		}

		c.Set(ContextKeySession, sess)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error": message,
		"code":  apperr.CodeUnauthorized,
	})
}

// GetSession returns the session stored by RequireSession, or nil.
func GetSession(c *gin.Context) *session.Session {
	if v, ok := c.Get(ContextKeySession); ok {
		if sess, ok := v.(*session.Session); ok {
			return sess
		}
	}
	return nil
}
