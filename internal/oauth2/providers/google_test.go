package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGoogle(t *testing.T, handler http.HandlerFunc) *GoogleProvider {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewGoogleProvider("client-id", "client-secret",
		WithGoogleEndpoints(server.URL+"/token", server.URL+"/revoke", server.URL+"/userinfo"))
}

func TestGoogleProvider_BuildAuthURL(t *testing.T) {
	p := NewGoogleProvider("client-id", "")

	authURL, verifier, state, err := p.BuildAuthURL("http://localhost:8188/api/auth/google/callback")
	require.NoError(t, err)
	assert.NotEmpty(t, verifier)
	assert.NotEmpty(t, state)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, codeChallenge(verifier), q.Get("code_challenge"))
	assert.Equal(t, state, q.Get("state"))
	assert.Contains(t, q.Get("scope"), "spreadsheets")
}

func TestGoogleProvider_ExchangeCode(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/token", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))

		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "ya29.token",
			"refresh_token": "1//refresh",
			"expires_in":    3599,
			"token_type":    "Bearer",
		})
	})

	resp, err := p.ExchangeCode(context.Background(), "the-code", "the-verifier", "")
	require.NoError(t, err)
	assert.Equal(t, "ya29.token", resp.AccessToken)
	assert.Equal(t, "1//refresh", resp.RefreshToken)
	assert.NotNil(t, resp.ExpiresAt())
}

func TestGoogleProvider_RefreshError(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant","error_description":"Token has been expired or revoked."}`))
	})

	_, err := p.RefreshToken(context.Background(), "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestGoogleProvider_GetAccountInfo(t *testing.T) {
	p := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/userinfo", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"id":"123","email":"anna@example.com","name":"Anna Rossi","picture":"https://pic"}`))
	})

	info, err := p.GetAccountInfo(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "123", info.ID)
	assert.Equal(t, "Anna Rossi", info.Name)
	assert.Equal(t, "https://pic", info.Picture)
}

func TestGoogleProvider_Revoke(t *testing.T) {
	var revoked string
	p := newTestGoogle(t, func(w http.ResponseWriter, r *http.Request) {
		revoked = r.URL.Query().Get("token")
	})

	require.NoError(t, p.Revoke(context.Background(), "tok/1"))
	assert.Equal(t, "tok/1", revoked)
}
