package localstore

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mrlokans/bookcatalog/internal/entities"
)

var ErrNoEncryptor = errors.New("credential encryption is not configured")

// SaveCredential stores the Google token pair and its expiry.
// Secrets are AES-GCM encrypted; the expiry is a plain millisecond epoch.
// An empty RefreshToken keeps the previously stored one.
func (s *Store) SaveCredential(cred *entities.Credential) error {
	if s.encryptor == nil {
		return ErrNoEncryptor
	}

	encAccess, err := s.encryptor.Encrypt(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	if err := s.kv.SetSetting(entities.SettingKeyGoogleAccessToken, encAccess); err != nil {
		return fmt.Errorf("save access token: %w", err)
	}

	if cred.ExpiresAt != nil {
		ms := strconv.FormatInt(cred.ExpiresAt.UnixMilli(), 10)
		if err := s.kv.SetSetting(entities.SettingKeyGoogleTokenExpiry, ms); err != nil {
			return fmt.Errorf("save token expiry: %w", err)
		}
	} else if err := s.kv.DeleteSetting(entities.SettingKeyGoogleTokenExpiry); err != nil {
		return fmt.Errorf("clear token expiry: %w", err)
	}

	if cred.RefreshToken != "" {
		encRefresh, err := s.encryptor.Encrypt(cred.RefreshToken)
		if err != nil {
			return fmt.Errorf("encrypt refresh token: %w", err)
		}
		if err := s.kv.SetSetting(entities.SettingKeyGoogleRefreshToken, encRefresh); err != nil {
			return fmt.Errorf("save refresh token: %w", err)
		}
	}

	return nil
}

// LoadCredential returns the stored credential, or nil if no access token is stored.
func (s *Store) LoadCredential() (*entities.Credential, error) {
	if s.encryptor == nil {
		return nil, ErrNoEncryptor
	}

	encAccess, ok, err := s.kv.Get(entities.SettingKeyGoogleAccessToken)
	if err != nil {
		return nil, fmt.Errorf("read access token: %w", err)
	}
	if !ok || encAccess == "" {
		return nil, nil
	}

	access, err := s.encryptor.Decrypt(encAccess)
	if err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	cred := &entities.Credential{AccessToken: access}

	if raw, ok, err := s.kv.Get(entities.SettingKeyGoogleTokenExpiry); err == nil && ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			exp := time.UnixMilli(ms)
			cred.ExpiresAt = &exp
		}
	}

	encRefresh, ok, err := s.kv.Get(entities.SettingKeyGoogleRefreshToken)
	if err != nil {
		return nil, fmt.Errorf("read refresh token: %w", err)
	}
	if ok && encRefresh != "" {
		refresh, err := s.encryptor.Decrypt(encRefresh)
		if err != nil {
			return nil, fmt.Errorf("decrypt refresh token: %w", err)
		}
		cred.RefreshToken = refresh
	}

	return cred, nil
}

// ClearCredential removes every credential key.
func (s *Store) ClearCredential() error {
	for _, key := range []string{
		entities.SettingKeyGoogleAccessToken,
		entities.SettingKeyGoogleTokenExpiry,
		entities.SettingKeyGoogleRefreshToken,
	} {
		if err := s.kv.DeleteSetting(key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}
