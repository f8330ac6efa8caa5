package entities

import "time"

// AuthMethod is how the user signed in.
type AuthMethod string

const (
	AuthMethodGoogle AuthMethod = "google"
	AuthMethodLocal  AuthMethod = "local"
)

// UserSession is the signed-in user persisted under the "currentUser" key.
type UserSession struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Avatar     string     `json:"avatar"`
	LoginDate  time.Time  `json:"loginDate"`
	AuthMethod AuthMethod `json:"authMethod"`

	// Only set for AuthMethodGoogle.
	AccessToken string     `json:"accessToken,omitempty"`
	TokenExpiry *time.Time `json:"tokenExpiry,omitempty"`
}

// IsGoogle reports whether the session is backed by a Google credential.
func (s *UserSession) IsGoogle() bool {
	return s != nil && s.AuthMethod == AuthMethodGoogle
}

// OAuthProvider represents the OAuth provider type
type OAuthProvider string

const (
	OAuthProviderGoogle OAuthProvider = "google"
)

// Credential holds the decrypted Google token values for use in memory.
// This is never stored directly; the local store encrypts each secret.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    *time.Time
}

// IsExpiringSoon checks if the token expires within the given duration
func (c *Credential) IsExpiringSoon(within time.Duration) bool {
	if c == nil || c.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(within).After(*c.ExpiresAt)
}
