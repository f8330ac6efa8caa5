package localstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcatalog/internal/crypto"
	"github.com/mrlokans/bookcatalog/internal/database"
	"github.com/mrlokans/bookcatalog/internal/database/settings"
	"github.com/mrlokans/bookcatalog/internal/entities"
)

func setupTestStore(t *testing.T) (*Store, *settings.Repository) {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	enc, err := crypto.NewEncryptor(make([]byte, crypto.KeySize))
	require.NoError(t, err)

	repo := settings.NewRepository(db.DB)
	return New(repo, enc, nil), repo
}

func TestKey(t *testing.T) {
	assert.Equal(t, "libraryBooks_local_1", Key(entities.KindBook, "local_1"))
	assert.Equal(t, "userCategories_u2", Key(entities.KindCategory, "u2"))
}

func TestBooksRoundTrip(t *testing.T) {
	store, _ := setupTestStore(t)

	books := []entities.Book{
		{ID: "bk-1", Title: "Dune", Category: "Fantascienza", Shelf: "Soggiorno", Keywords: entities.Keywords{"spezia", "deserto"}},
		{ID: "bk-2", Title: "Emma", Category: "Romanzo", Shelf: "Studio"},
	}
	require.NoError(t, store.SaveBooks("u1", books))

	assert.Equal(t, books, store.LoadBooks("u1"))
	assert.Empty(t, store.LoadBooks("u2"))
}

func TestLoad_AbsentOrMalformed(t *testing.T) {
	store, repo := setupTestStore(t)

	assert.NotNil(t, store.LoadBooks("nobody"))
	assert.Empty(t, store.LoadBooks("nobody"))

	require.NoError(t, repo.SetSetting(Key(entities.KindLibrary, "u1"), "{not json"))
	got := store.LoadTaxonomies(entities.KindLibrary, "u1")
	assert.NotNil(t, got)
	assert.Empty(t, got)

	require.NoError(t, repo.SetSetting(Key(entities.KindKeyword, "u1"), "null"))
	assert.Empty(t, store.LoadTaxonomies(entities.KindKeyword, "u1"))
}

func TestTaxonomiesScopedByKind(t *testing.T) {
	store, _ := setupTestStore(t)

	libs := []entities.Taxonomy{{UserID: "u1", Name: "Soggiorno", DateCreated: "01/01/2024"}}
	require.NoError(t, store.SaveTaxonomies(entities.KindLibrary, "u1", libs))

	assert.Equal(t, libs, store.LoadTaxonomies(entities.KindLibrary, "u1"))
	assert.Empty(t, store.LoadTaxonomies(entities.KindCategory, "u1"))

	ids, err := store.UserIDs(entities.KindLibrary)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestSession(t *testing.T) {
	store, _ := setupTestStore(t)

	assert.Nil(t, store.LoadSession())

	sess := &entities.UserSession{
		ID:          "local_1700000000000",
		Name:        "Anna",
		Email:       "anna@example.com",
		AuthMethod:  entities.AuthMethodLocal,
		LoginDate:   time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		AccessToken: "must-not-be-persisted",
	}
	require.NoError(t, store.SaveSession(sess))

	got := store.LoadSession()
	require.NotNil(t, got)
	assert.Equal(t, "Anna", got.Name)
	assert.Empty(t, got.AccessToken)
	assert.True(t, sess.LoginDate.Equal(got.LoginDate))

	require.NoError(t, store.ClearSession())
	assert.Nil(t, store.LoadSession())
}

func TestClearSession_KeepsCollections(t *testing.T) {
	store, _ := setupTestStore(t)

	require.NoError(t, store.SaveSession(&entities.UserSession{ID: "u1", AuthMethod: entities.AuthMethodLocal}))
	require.NoError(t, store.SaveBooks("u1", []entities.Book{{ID: "bk-1", Title: "Dune"}}))

	require.NoError(t, store.ClearSession())

	assert.Len(t, store.LoadBooks("u1"), 1)
}

func TestCredential(t *testing.T) {
	store, repo := setupTestStore(t)

	cred, err := store.LoadCredential()
	require.NoError(t, err)
	assert.Nil(t, cred)

	exp := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())
	require.NoError(t, store.SaveCredential(&entities.Credential{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    &exp,
	}))

	raw, ok, err := repo.Get(entities.SettingKeyGoogleAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotEqual(t, "access", raw, "access token is stored encrypted")

	cred, err = store.LoadCredential()
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access", cred.AccessToken)
	assert.Equal(t, "refresh", cred.RefreshToken)
	assert.True(t, exp.Equal(*cred.ExpiresAt))

	// Refresh without a rotated refresh token keeps the stored one.
	require.NoError(t, store.SaveCredential(&entities.Credential{AccessToken: "access-2", ExpiresAt: &exp}))
	cred, err = store.LoadCredential()
	require.NoError(t, err)
	assert.Equal(t, "access-2", cred.AccessToken)
	assert.Equal(t, "refresh", cred.RefreshToken)

	require.NoError(t, store.ClearCredential())
	cred, err = store.LoadCredential()
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestCredential_NoEncryptor(t *testing.T) {
	_, repo := setupTestStore(t)
	store := New(repo, nil, nil)

	assert.ErrorIs(t, store.SaveCredential(&entities.Credential{AccessToken: "x"}), ErrNoEncryptor)
}

func TestDelete_AbsentKey(t *testing.T) {
	store, _ := setupTestStore(t)
	assert.NoError(t, store.Delete("missing"))
}
