// Package settings provides database operations for the local key/value store.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	value, ok, err := repo.Get("currentUser")
package settings

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookcatalog/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// Get returns the value stored under key. A missing key is not an error.
func (r *Repository) Get(key string) (string, bool, error) {
	setting, err := r.GetSetting(key)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

// SetSetting creates or updates a setting.
func (r *Repository) SetSetting(key, value string) error {
	setting := entities.Setting{Key: key, Value: value}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
}

// DeleteSetting removes a setting by key. Missing keys are ignored.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}

// KeysWithPrefix lists stored keys starting with prefix, sorted.
func (r *Repository) KeysWithPrefix(prefix string) ([]string, error) {
	var candidates []string
	err := r.db.Model(&entities.Setting{}).
		Where("key LIKE ?", prefix+"%").
		Order("key").
		Pluck("key", &candidates).Error
	if err != nil {
		return nil, err
	}

	// LIKE treats '_' as a wildcard.
	keys := make([]string, 0, len(candidates))
	for _, k := range candidates {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}
