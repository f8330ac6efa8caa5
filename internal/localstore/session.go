package localstore

import (
	"encoding/json"
	"fmt"

	"github.com/mrlokans/bookcatalog/internal/entities"
)

// SaveSession persists the signed-in user under "currentUser".
// The access token is never written here; it goes through SaveCredential.
func (s *Store) SaveSession(sess *entities.UserSession) error {
	stored := *sess
	stored.AccessToken = ""
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.kv.SetSetting(entities.SettingKeyCurrentUser, string(data))
}

// LoadSession returns the persisted user, or nil when absent or malformed.
func (s *Store) LoadSession() *entities.UserSession {
	raw, ok, err := s.kv.Get(entities.SettingKeyCurrentUser)
	if err != nil {
		s.logger.Warn("read session", "error", err)
		return nil
	}
	if !ok || raw == "" {
		return nil
	}

	var sess entities.UserSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.ID == "" {
		s.logger.Warn("malformed session, ignoring", "error", err)
		return nil
	}
	return &sess
}

// ClearSession removes only the "currentUser" key.
func (s *Store) ClearSession() error {
	return s.Delete(entities.SettingKeyCurrentUser)
}
