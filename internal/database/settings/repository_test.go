package settings

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookcatalog/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_settings_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Setting{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_SetSetting_New(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.SetSetting("currentUser", `{"id":"local_1"}`)
	require.NoError(t, err)

	setting, err := repo.GetSetting("currentUser")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"local_1"}`, setting.Value)
}

func TestRepository_SetSetting_Update(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SetSetting("libraryBooks_u1", "[]"))
	require.NoError(t, repo.SetSetting("libraryBooks_u1", `[{"id":"bk-1"}]`))

	value, ok, err := repo.Get("libraryBooks_u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"bk-1"}]`, value)

	keys, err := repo.KeysWithPrefix("libraryBooks_")
	require.NoError(t, err)
	assert.Equal(t, []string{"libraryBooks_u1"}, keys)
}

func TestRepository_Get_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, ok, err := repo.Get("nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.GetSetting("nonexistent")
	assert.Error(t, err)
}

func TestRepository_DeleteSetting(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SetSetting("to-delete", "value"))
	require.NoError(t, repo.DeleteSetting("to-delete"))

	_, ok, err := repo.Get("to-delete")
	require.NoError(t, err)
	assert.False(t, ok)

	// Should not error even if key doesn't exist
	assert.NoError(t, repo.DeleteSetting("nonexistent"))
}

func TestRepository_KeysWithPrefix(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SetSetting("userLibraries_b", "[]"))
	require.NoError(t, repo.SetSetting("userLibraries_a", "[]"))
	require.NoError(t, repo.SetSetting("userCategories_a", "[]"))

	keys, err := repo.KeysWithPrefix("userLibraries_")
	require.NoError(t, err)
	assert.Equal(t, []string{"userLibraries_a", "userLibraries_b"}, keys)
}
