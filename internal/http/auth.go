package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/auth"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/session"
	"github.com/mrlokans/bookcatalog/internal/syncer"
)

// AuthController signs the user in and out and binds the browser to the
// resulting catalog session.
type AuthController struct {
	sessions *session.Manager
	cookies  *auth.SessionManager
}

func NewAuthController(sessions *session.Manager, cookies *auth.SessionManager) *AuthController {
	return &AuthController{sessions: sessions, cookies: cookies}
}

// UserView is the public part of the signed-in user; tokens never leave the server.
type UserView struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Email      string              `json:"email"`
	Avatar     string              `json:"avatar"`
	AuthMethod entities.AuthMethod `json:"authMethod"`
	LoginDate  time.Time           `json:"loginDate"`
}

// SessionResponse describes the active session.
type SessionResponse struct {
	User     UserView                         `json:"user"`
	State    string                           `json:"state"`
	Statuses map[entities.Kind]syncer.Status `json:"statuses,omitempty"`
}

func newSessionResponse(sess *session.Session, statuses map[entities.Kind]syncer.Status) SessionResponse {
	u := sess.User
	return SessionResponse{
		User: UserView{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			Avatar:     u.Avatar,
			AuthMethod: u.AuthMethod,
			LoginDate:  u.LoginDate,
		},
		State:    sess.State().String(),
		Statuses: statuses,
	}
}

// Providers handles GET /api/auth/providers
func (ac *AuthController) Providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"local":  true,
		"google": ac.sessions.GoogleEnabled(),
	})
}

// SignInLocal handles POST /api/auth/local
func (ac *AuthController) SignInLocal(c *gin.Context) {
	var req session.LocalSignIn
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	sess, statuses, err := ac.sessions.SignInLocal(c.Request.Context(), req)
	if err != nil {
		respondAppError(c, err, "local sign-in")
		return
	}
	ac.bind(c, sess, statuses)
}

// GoogleStart handles GET /api/auth/google/start
func (ac *AuthController) GoogleStart(c *gin.Context) {
	authURL, _, err := ac.sessions.BeginGoogle()
	if errors.Is(err, session.ErrGoogleUnavailable) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "google sign-in is not configured, use local sign-in",
			Code:  "GOOGLE_UNAVAILABLE",
		})
		return
	}
	if err != nil {
		respondInternalError(c, err, "begin google sign-in")
		return
	}

	if c.Query("redirect") == "true" {
		c.Redirect(http.StatusFound, authURL)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": authURL})
}

// GoogleCallback handles GET /api/auth/google/callback
func (ac *AuthController) GoogleCallback(c *gin.Context) {
	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "google sign-in was not completed, use local sign-in",
			Code:    "GOOGLE_DENIED",
			Details: gin.H{"reason": reason},
		})
		return
	}

	state, code := c.Query("state"), c.Query("code")
	if state == "" || code == "" {
		respondBadRequest(c, "state and code are required")
		return
	}

	sess, statuses, err := ac.sessions.CompleteGoogle(c.Request.Context(), state, code)
	if err != nil {
		if errors.Is(err, session.ErrGoogleUnavailable) {
			c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: "GOOGLE_UNAVAILABLE"})
			return
		}
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "google sign-in failed", Code: "UNAUTHORIZED"})
		return
	}
	ac.bind(c, sess, statuses)
}

func (ac *AuthController) bind(c *gin.Context, sess *session.Session, statuses map[entities.Kind]syncer.Status) {
	if err := ac.cookies.BindSession(c.Request, sess); err != nil {
		respondInternalError(c, err, "bind session")
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(sess, statuses))
}

// SignOut handles POST /api/auth/signout
func (ac *AuthController) SignOut(c *gin.Context) {
	err := ac.sessions.SignOut(c.Request.Context())
	if destroyErr := ac.cookies.DestroySession(c.Request); destroyErr != nil {
		err = errors.Join(err, destroyErr)
	}
	if err != nil {
		respondInternalError(c, err, "sign out")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "signed out"})
}

// Session handles GET /api/auth/session
func (ac *AuthController) Session(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, newSessionResponse(sess, sess.Statuses()))
}
