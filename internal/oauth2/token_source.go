package oauth2

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrlokans/bookcatalog/internal/entities"
)

// TokenSource provides access tokens with automatic refresh capability
type TokenSource interface {
	// Token returns a valid access token, refreshing if necessary
	Token(ctx context.Context) (string, error)

	// ForceRefresh forces a token refresh regardless of expiry status
	ForceRefresh(ctx context.Context) error

	// IsValid returns true if the current token is valid and not expired
	IsValid() bool

	// ExpiresAt returns the token expiry time, or nil if unknown/no expiry
	ExpiresAt() *time.Time
}

// CredentialStore persists the credential, satisfied by localstore.Store.
type CredentialStore interface {
	LoadCredential() (*entities.Credential, error)
	SaveCredential(cred *entities.Credential) error
}

// StoredTokenSource provides tokens from the credential store with automatic refresh
type StoredTokenSource struct {
	mu sync.RWMutex

	provider Provider
	store    CredentialStore

	// Cached token data
	accessToken string
	expiresAt   *time.Time

	// Margin before expiry to trigger refresh (default: 5 minutes)
	refreshMargin time.Duration
	now           func() time.Time
}

// StoredTokenSourceOption configures a StoredTokenSource
type StoredTokenSourceOption func(*StoredTokenSource)

// WithRefreshMargin sets the time before expiry to trigger automatic refresh
func WithRefreshMargin(d time.Duration) StoredTokenSourceOption {
	return func(s *StoredTokenSource) {
		s.refreshMargin = d
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) StoredTokenSourceOption {
	return func(s *StoredTokenSource) {
		s.now = now
	}
}

// NewStoredTokenSource creates a TokenSource that retrieves and refreshes tokens from the store
func NewStoredTokenSource(provider Provider, store CredentialStore, opts ...StoredTokenSourceOption) *StoredTokenSource {
	ts := &StoredTokenSource{
		provider:      provider,
		store:         store,
		refreshMargin: 5 * time.Minute,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

// Token returns a valid access token, refreshing if necessary
func (s *StoredTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.accessToken != "" && !s.isExpiringSoon() {
		return s.accessToken, nil
	}

	cred, err := s.store.LoadCredential()
	if err != nil {
		return "", fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return "", ErrTokenNotFound
	}

	s.accessToken = cred.AccessToken
	s.expiresAt = cred.ExpiresAt

	if s.isExpiringSoon() {
		if cred.RefreshToken == "" {
			return "", ErrNoRefreshToken
		}
		if err := s.refreshLocked(ctx, cred.RefreshToken); err != nil {
			return "", err
		}
	}

	return s.accessToken, nil
}

// ForceRefresh forces a token refresh
func (s *StoredTokenSource) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.store.LoadCredential()
	if err != nil {
		return fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return ErrTokenNotFound
	}
	if cred.RefreshToken == "" {
		return ErrNoRefreshToken
	}

	return s.refreshLocked(ctx, cred.RefreshToken)
}

// RefreshIfExpiring refreshes when the stored token expires within margin.
// It reports whether a refresh happened.
func (s *StoredTokenSource) RefreshIfExpiring(ctx context.Context, margin time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred, err := s.store.LoadCredential()
	if err != nil {
		return false, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return false, ErrTokenNotFound
	}
	if cred.ExpiresAt == nil || s.now().Add(margin).Before(*cred.ExpiresAt) {
		return false, nil
	}
	if cred.RefreshToken == "" {
		return false, ErrNoRefreshToken
	}
	return true, s.refreshLocked(ctx, cred.RefreshToken)
}

// refreshLocked performs token refresh (caller must hold the lock)
func (s *StoredTokenSource) refreshLocked(ctx context.Context, refreshToken string) error {
	resp, err := s.provider.RefreshToken(ctx, refreshToken)
	if err != nil {
		return errors.Join(ErrRefreshFailed, err)
	}

	cred := resp.Credential()
	if err := s.store.SaveCredential(cred); err != nil {
		return fmt.Errorf("save refreshed credential: %w", err)
	}

	s.accessToken = cred.AccessToken
	s.expiresAt = cred.ExpiresAt

	return nil
}

// IsValid returns true if the current token exists and is not expired
func (s *StoredTokenSource) IsValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.accessToken == "" {
		return false
	}
	return !s.isExpiringSoon()
}

// ExpiresAt returns the token expiry time
func (s *StoredTokenSource) ExpiresAt() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

func (s *StoredTokenSource) isExpiringSoon() bool {
	if s.expiresAt == nil {
		return false
	}
	return s.now().Add(s.refreshMargin).After(*s.expiresAt)
}

// StaticTokenSource provides a fixed access token without refresh capability
type StaticTokenSource struct {
	accessToken string
}

// NewStaticTokenSource creates a TokenSource with a fixed token
func NewStaticTokenSource(accessToken string) *StaticTokenSource {
	return &StaticTokenSource{accessToken: accessToken}
}

func (s *StaticTokenSource) Token(ctx context.Context) (string, error) {
	if s.accessToken == "" {
		return "", ErrTokenNotFound
	}
	return s.accessToken, nil
}

func (s *StaticTokenSource) ForceRefresh(ctx context.Context) error {
	return ErrNoRefreshToken
}

func (s *StaticTokenSource) IsValid() bool {
	return s.accessToken != ""
}

func (s *StaticTokenSource) ExpiresAt() *time.Time {
	return nil
}
