// Package localstore persists per-user catalog collections, the signed-in
// session and the Google credential in the local key/value table.
//
// Collections live under "<collectionKey>_<userID>" as JSON arrays. Reads
// never fail: an absent or malformed value is an empty collection.
package localstore

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mrlokans/bookcatalog/internal/crypto"
	"github.com/mrlokans/bookcatalog/internal/entities"
)

// KV is the key/value backend, satisfied by settings.Repository.
type KV interface {
	Get(key string) (string, bool, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
	KeysWithPrefix(prefix string) ([]string, error)
}

// Store is the local persistent store.
type Store struct {
	kv        KV
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

// New creates a Store. encryptor may be nil, in which case credentials are
// kept only in memory by callers and Save/LoadCredential report an error.
func New(kv KV, encryptor *crypto.Encryptor, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, encryptor: encryptor, logger: logger.With("component", "localstore")}
}

// Key builds the collection key for kind and user.
func Key(kind entities.Kind, userID string) string {
	return kind.CollectionKey() + "_" + userID
}

func (s *Store) LoadBooks(userID string) []entities.Book {
	return loadCollection[entities.Book](s, Key(entities.KindBook, userID))
}

func (s *Store) SaveBooks(userID string, books []entities.Book) error {
	return saveCollection(s, Key(entities.KindBook, userID), books)
}

func (s *Store) LoadTaxonomies(kind entities.Kind, userID string) []entities.Taxonomy {
	return loadCollection[entities.Taxonomy](s, Key(kind, userID))
}

func (s *Store) SaveTaxonomies(kind entities.Kind, userID string, items []entities.Taxonomy) error {
	return saveCollection(s, Key(kind, userID), items)
}

// Delete removes key. Absent keys are a no-op.
func (s *Store) Delete(key string) error {
	return s.kv.DeleteSetting(key)
}

// UserIDs lists users that have a cached collection of kind.
func (s *Store) UserIDs(kind entities.Kind) ([]string, error) {
	prefix := kind.CollectionKey() + "_"
	keys, err := s.kv.KeysWithPrefix(prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, k[len(prefix):])
	}
	return ids, nil
}

func loadCollection[T any](s *Store, key string) []T {
	raw, ok, err := s.kv.Get(key)
	if err != nil {
		s.logger.Warn("read local collection", "key", key, "error", err)
		return []T{}
	}
	if !ok || raw == "" {
		return []T{}
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.logger.Warn("malformed local collection, treating as empty", "key", key, "error", err)
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

func saveCollection[T any](s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.SetSetting(key, string(data)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
