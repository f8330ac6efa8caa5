// Package auth binds browser requests to the active catalog session.
//
// Sign-in itself happens in package session (local form or Google consent).
// After it succeeds the HTTP layer calls BindSession, which stores the
// catalog session handle in an scs cookie session persisted to SQLite.
// RequireSession then admits only requests whose cookie carries that handle:
//
//	mw := auth.NewMiddleware(manager, cookies)
//	api := router.Group("/api", mw.RequireSession())
//
// Extract the session in handlers:
//
//	sess := auth.GetSession(c)
//
// Optional CSRF protection (AUTH_CSRF_ENABLED) and security headers are
// provided as separate gin middleware.
package auth
