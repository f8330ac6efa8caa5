package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcatalog/internal/config"
	"github.com/mrlokans/bookcatalog/internal/database"
	"github.com/mrlokans/bookcatalog/internal/database/settings"
	"github.com/mrlokans/bookcatalog/internal/localstore"
	"github.com/mrlokans/bookcatalog/internal/session"
)

type authFixture struct {
	store   *localstore.Store
	cookies *SessionManager
	clock   atomic.Int64
}

func setupAuth(t *testing.T) *authFixture {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlDB, err := db.DB.DB()
	require.NoError(t, err)

	cookies, err := NewSessionManager(sqlDB, config.Auth{SessionLifetime: time.Hour})
	require.NoError(t, err)

	f := &authFixture{
		store:   localstore.New(settings.NewRepository(db.DB), nil, nil),
		cookies: cookies,
	}
	f.clock.Store(time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC).UnixMilli())
	return f
}

// manager returns a session manager whose clock advances one second per call,
// so every local sign-in gets a distinct user id.
func (f *authFixture) manager() *session.Manager {
	now := func() time.Time {
		return time.UnixMilli(f.clock.Add(1000)).UTC()
	}
	return session.NewManager(f.store, nil, session.Config{}, session.WithClock(now))
}

func (f *authFixture) router(m *session.Manager) *gin.Engine {
	router := gin.New()
	router.Use(f.cookies.SessionLoadSave())
	router.POST("/signin", func(c *gin.Context) {
		sess, _, err := m.SignInLocal(c.Request.Context(), session.LocalSignIn{Name: c.Query("name"), Email: "x@example.com"})
		if err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		if err := f.cookies.BindSession(c.Request, sess); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusNoContent)
	})
	router.GET("/protected", NewMiddleware(m, f.cookies).RequireSession(), func(c *gin.Context) {
		c.String(http.StatusOK, GetSession(c).User.Name)
	})
	return router
}

func do(router *gin.Engine, method, target string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == CookieName {
			return c
		}
	}
	t.Fatalf("response has no %s cookie", CookieName)
	return nil
}

func TestNewSessionManager_CookieConfig(t *testing.T) {
	f := setupAuth(t)

	assert.Equal(t, CookieName, f.cookies.Cookie.Name)
	assert.True(t, f.cookies.Cookie.HttpOnly)
	assert.False(t, f.cookies.Cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, f.cookies.Cookie.SameSite)
	assert.Equal(t, time.Hour, f.cookies.Lifetime)
}

func TestRequireSession_NotSignedIn(t *testing.T) {
	f := setupAuth(t)
	router := f.router(f.manager())

	rr := do(router, http.MethodGet, "/protected", nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "UNAUTHORIZED")
}

func TestRequireSession_BoundCookie(t *testing.T) {
	f := setupAuth(t)
	router := f.router(f.manager())

	rr := do(router, http.MethodPost, "/signin?name=Anna", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	cookie := sessionCookie(t, rr)

	rr = do(router, http.MethodGet, "/protected", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Anna", rr.Body.String())

	rr = do(router, http.MethodGet, "/protected", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "active session without cookie")
}

func TestRequireSession_CookieOfReplacedUser(t *testing.T) {
	f := setupAuth(t)
	router := f.router(f.manager())

	rr := do(router, http.MethodPost, "/signin?name=Anna", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	annaCookie := sessionCookie(t, rr)

	rr = do(router, http.MethodPost, "/signin?name=Bruno", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	brunoCookie := sessionCookie(t, rr)

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/protected", annaCookie).Code)

	rr = do(router, http.MethodGet, "/protected", brunoCookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Bruno", rr.Body.String())
}

func TestRequireSession_RebindsAfterRestore(t *testing.T) {
	f := setupAuth(t)

	rr := do(f.router(f.manager()), http.MethodPost, "/signin?name=Anna", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	cookie := sessionCookie(t, rr)

	// A new process restores the same user under a fresh handle.
	restarted := f.manager()
	sess, _, err := restarted.Restore(context.Background())
	require.NoError(t, err)
	require.NotNil(t, sess)

	rr = do(f.router(restarted), http.MethodGet, "/protected", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Anna", rr.Body.String())
}

func TestRequireSession_AfterSignOut(t *testing.T) {
	f := setupAuth(t)
	m := f.manager()
	router := f.router(m)

	rr := do(router, http.MethodPost, "/signin?name=Anna", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)
	cookie := sessionCookie(t, rr)

	require.NoError(t, m.SignOut(context.Background()))

	assert.Equal(t, http.StatusUnauthorized, do(router, http.MethodGet, "/protected", cookie).Code)
}
