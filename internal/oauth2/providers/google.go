package providers

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleRevokeURL   = "https://oauth2.googleapis.com/revoke"
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleScopes grants spreadsheet access plus the profile used for the session.
var GoogleScopes = []string{
	"https://www.googleapis.com/auth/spreadsheets",
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

var _ oauth2.Provider = (*GoogleProvider)(nil)

// GoogleProvider implements OAuth2 for Google using PKCE and offline access.
type GoogleProvider struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client

	authURL     string
	tokenURL    string
	revokeURL   string
	userInfoURL string
}

// GoogleOption overrides provider defaults.
type GoogleOption func(*GoogleProvider)

// WithGoogleEndpoints points the provider at other token/revoke/userinfo URLs.
func WithGoogleEndpoints(tokenURL, revokeURL, userInfoURL string) GoogleOption {
	return func(p *GoogleProvider) {
		p.tokenURL = tokenURL
		p.revokeURL = revokeURL
		p.userInfoURL = userInfoURL
	}
}

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(p *GoogleProvider) {
		p.httpClient = c
	}
}

// NewGoogleProvider creates a new Google OAuth2 provider
func NewGoogleProvider(clientID, clientSecret string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		authURL:      googleAuthURL,
		tokenURL:     googleTokenURL,
		revokeURL:    googleRevokeURL,
		userInfoURL:  googleUserInfoURL,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GoogleProvider) Name() entities.OAuthProvider {
	return entities.OAuthProviderGoogle
}

func (p *GoogleProvider) Config() oauth2.ProviderConfig {
	return oauth2.ProviderConfig{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		AuthURL:      p.authURL,
		TokenURL:     p.tokenURL,
		Scopes:       GoogleScopes,
	}
}

func (p *GoogleProvider) BuildAuthURL(redirectURL string) (authURL, codeVerifier, state string, err error) {
	codeVerifier, err = randomToken(32)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	state, err = randomToken(16)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to generate state: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", p.clientID)
	params.Set("response_type", "code")
	params.Set("scope", strings.Join(GoogleScopes, " "))
	params.Set("code_challenge", codeChallenge(codeVerifier))
	params.Set("code_challenge_method", "S256")
	params.Set("state", state)
	params.Set("access_type", "offline")
	params.Set("prompt", "consent")
	if redirectURL != "" {
		params.Set("redirect_uri", redirectURL)
	}

	return p.authURL + "?" + params.Encode(), codeVerifier, state, nil
}

func (p *GoogleProvider) ExchangeCode(ctx context.Context, code, codeVerifier, redirectURL string) (*oauth2.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("code_verifier", codeVerifier)
	if redirectURL != "" {
		data.Set("redirect_uri", redirectURL)
	}
	return p.tokenRequest(ctx, data, "token exchange")
}

func (p *GoogleProvider) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)
	return p.tokenRequest(ctx, data, "token refresh")
}

func (p *GoogleProvider) tokenRequest(ctx context.Context, data url.Values, op string) (*oauth2.TokenResponse, error) {
	data.Set("client_id", p.clientID)
	if p.clientSecret != "" {
		data.Set("client_secret", p.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp struct {
			Error            string `json:"error"`
			ErrorDescription string `json:"error_description"`
		}
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return nil, fmt.Errorf("%s failed: %s - %s", op, errResp.Error, errResp.ErrorDescription)
		}
		return nil, fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int    `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
		Scope        string `json:"scope"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("parse %s response: %w", op, err)
	}

	return &oauth2.TokenResponse{
		AccessToken:  tokenResp.AccessToken,
		RefreshToken: tokenResp.RefreshToken,
		TokenType:    tokenResp.TokenType,
		ExpiresIn:    tokenResp.ExpiresIn,
		Scope:        tokenResp.Scope,
	}, nil
}

func (p *GoogleProvider) GetAccountInfo(ctx context.Context, accessToken string) (*oauth2.AccountInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("get user info (status %d): %s", resp.StatusCode, string(body))
	}

	var info struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("parse user info: %w", err)
	}

	return &oauth2.AccountInfo{ID: info.ID, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

func (p *GoogleProvider) Revoke(ctx context.Context, token string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revokeURL+"?token="+url.QueryEscape(token), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke token: status %d", resp.StatusCode)
	}
	return nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// codeChallenge creates the S256 PKCE challenge for verifier.
func codeChallenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}
