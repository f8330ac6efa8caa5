package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/database"
	"github.com/mrlokans/bookcatalog/internal/database/settings"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/localstore"
	"github.com/mrlokans/bookcatalog/internal/oauth2"
	"github.com/mrlokans/bookcatalog/internal/sheets"
	"github.com/mrlokans/bookcatalog/internal/sheets/sheetstest"
	"github.com/mrlokans/bookcatalog/internal/syncer"
	"github.com/mrlokans/bookcatalog/internal/validation"
)

var (
	testOwner = Owner{ID: "local_1700000000000", Name: "Anna"}
	today     = time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
)

func fixedClock() time.Time { return today }

func setupStore(t *testing.T) *localstore.Store {
	t.Helper()

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "local.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return localstore.New(settings.NewRepository(db.DB), nil, nil)
}

// setupLocalBooks builds a LocalOnly book collection.
func setupLocalBooks(t *testing.T) (*Books, *localstore.Store) {
	t.Helper()
	store := setupStore(t)
	coord := syncer.NewCoordinator(syncer.BookCodec, syncer.BookLocal(store), nil, testOwner.ID, nil)
	return NewBooks(testOwner, coord, validation.New(), WithClock(fixedClock)), store
}

// setupRemoteBooks builds a RemoteBacked book collection on a fake sheet.
func setupRemoteBooks(t *testing.T) (*Books, *localstore.Store, *sheetstest.Server) {
	t.Helper()
	store := setupStore(t)

	server := sheetstest.NewServer()
	t.Cleanup(server.Close)
	client := sheets.NewClient(sheetstest.SpreadsheetID, oauth2.NewStaticTokenSource("valid"),
		sheets.WithBaseURL(server.BaseURL()),
		sheets.WithRateLimit(1000, 100))
	table := sheets.NewTable(client, entities.KindBook.DefaultSheet(), entities.KindBook)

	coord := syncer.NewCoordinator(syncer.BookCodec, syncer.BookLocal(store), table, testOwner.ID, nil)
	c := NewBooks(testOwner, coord, validation.New(), WithClock(fixedClock))
	// The first load writes the header row, as a session start does.
	require.Equal(t, syncer.StatusOK, c.Reload(context.Background()).Code)
	return c, store, server
}

func duneInput() entities.BookInput {
	return entities.BookInput{
		Title:    "Dune",
		Author:   "Frank Herbert",
		Category: "Fantascienza",
		Shelf:    "Studio",
		Keywords: entities.Keywords{"spezia", "deserto"},
	}
}

func mustCreate(t *testing.T, c *Books, in entities.BookInput) entities.Book {
	t.Helper()
	b, _, err := c.Create(context.Background(), in)
	require.NoError(t, err)
	return b
}

func TestCreate_LocalOnly(t *testing.T) {
	c, store := setupLocalBooks(t)

	b, res, err := c.Create(context.Background(), duneInput())

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusLocalOnly, res.Code)
	assert.NotEmpty(t, b.ID)
	assert.Equal(t, "05/03/2024", b.DateAdded)
	assert.Equal(t, testOwner.ID, b.UserID)
	assert.Equal(t, testOwner.Name, b.UserName)

	assert.Equal(t, []entities.Book{b}, c.List())
	assert.Equal(t, []entities.Book{b}, store.LoadBooks(testOwner.ID))
}

func TestCreate_RemoteBacked(t *testing.T) {
	c, store, server := setupRemoteBooks(t)
	b, res, err := c.Create(context.Background(), duneInput())

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusOK, res.Code)

	rows := server.Rows(entities.KindBook.DefaultSheet())
	require.Len(t, rows, 2, "header row plus the new book")
	got, ok := entities.BookFromRow(rows[0], rows[1])
	require.True(t, ok)
	assert.Equal(t, b, got)
	assert.Len(t, store.LoadBooks(testOwner.ID), 1)
}

func TestCreate_RemoteFailureKeepsLocalCopy(t *testing.T) {
	c, store, server := setupRemoteBooks(t)
	server.FailWith(500)

	b, res, err := c.Create(context.Background(), duneInput())

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusSyncFailed, res.Code)
	assert.Equal(t, syncer.RemoteBacked, c.State())
	assert.Equal(t, []entities.Book{b}, store.LoadBooks(testOwner.ID))
}

func TestCreate_Validation(t *testing.T) {
	c, store := setupLocalBooks(t)

	_, _, err := c.Create(context.Background(), entities.BookInput{Title: "  ", Shelf: "Studio"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Details, "title")
	assert.Contains(t, appErr.Details, "genre")
	assert.Empty(t, c.List())
	assert.Empty(t, store.LoadBooks(testOwner.ID))
}

func TestCreate_UniqueIDs(t *testing.T) {
	c, _ := setupLocalBooks(t)

	seen := make(map[string]bool)
	for range 50 {
		b := mustCreate(t, c, duneInput())
		require.False(t, seen[b.ID], "duplicate id %s", b.ID)
		seen[b.ID] = true
	}
	assert.Equal(t, 50, c.Len())
}

func TestUpdate_PreservesIdentity(t *testing.T) {
	c, store := setupLocalBooks(t)
	created := mustCreate(t, c, duneInput())

	in := entities.BookInput{Title: "Dune Messiah", Category: "Fantascienza", Shelf: "Camera"}
	updated, _, err := c.Update(context.Background(), created.ID, in)

	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, created.DateAdded, updated.DateAdded)
	assert.Equal(t, "Dune Messiah", updated.Title)
	assert.Empty(t, updated.Author, "every editable field is replaced")
	assert.Empty(t, updated.Keywords)
	assert.Equal(t, []entities.Book{updated}, store.LoadBooks(testOwner.ID))
}

func TestUpdate_NotFound(t *testing.T) {
	c, _ := setupLocalBooks(t)

	_, _, err := c.Update(context.Background(), "bk-missing", duneInput())

	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestUpdate_RemoteRowReplaced(t *testing.T) {
	c, _, server := setupRemoteBooks(t)
	ctx := context.Background()
	created := mustCreate(t, c, duneInput())

	in := entities.InputFromBook(created)
	in.Notes = "riletto"
	_, res, err := c.Update(ctx, created.ID, in)

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusOK, res.Code)
	rows := server.Rows(entities.KindBook.DefaultSheet())
	require.Len(t, rows, 2)
	got, _ := entities.BookFromRow(rows[0], rows[1])
	assert.Equal(t, "riletto", got.Notes)
}

func TestDelete(t *testing.T) {
	c, store, server := setupRemoteBooks(t)
	ctx := context.Background()
	keep := mustCreate(t, c, duneInput())
	drop := mustCreate(t, c, entities.BookInput{Title: "Emma", Category: "Romanzo", Shelf: "Studio"})

	res, err := c.Delete(ctx, drop.ID)

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusOK, res.Code)
	assert.Equal(t, []entities.Book{keep}, c.List())
	assert.Equal(t, []entities.Book{keep}, store.LoadBooks(testOwner.ID))
	assert.Len(t, server.Rows(entities.KindBook.DefaultSheet()), 2)
}

func TestDelete_AbsentIsNoop(t *testing.T) {
	c, _, server := setupRemoteBooks(t)
	before := len(server.Requests())

	res, err := c.Delete(context.Background(), "bk-missing")

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusOK, res.Code)
	assert.Len(t, server.Requests(), before, "remote store untouched")
}

func TestReload_FiltersOtherUsers(t *testing.T) {
	c, store, server := setupRemoteBooks(t)
	mine := entities.Book{ID: "bk-1", Title: "Dune", Category: "Fantascienza", Shelf: "Studio", UserID: testOwner.ID}
	theirs := entities.Book{ID: "bk-2", Title: "Emma", Category: "Romanzo", Shelf: "Studio", UserID: "someone-else"}
	server.Seed(entities.KindBook.DefaultSheet(), entities.BookHeaders, entities.BookToRow(mine), entities.BookToRow(theirs))

	res := c.Reload(context.Background())

	assert.Equal(t, syncer.StatusOK, res.Code)
	require.Len(t, c.List(), 1)
	assert.Equal(t, "bk-1", c.List()[0].ID)
	assert.Len(t, store.LoadBooks(testOwner.ID), 1)
}

func TestReload_DegradedFallsBackToLocal(t *testing.T) {
	c, store, server := setupRemoteBooks(t)
	cached := entities.Book{ID: "bk-1", Title: "Dune", Category: "Fantascienza", Shelf: "Studio", UserID: testOwner.ID}
	require.NoError(t, store.SaveBooks(testOwner.ID, []entities.Book{cached}))
	server.FailWith(503)

	res := c.Reload(context.Background())

	assert.Equal(t, syncer.StatusDegraded, res.Code)
	assert.Equal(t, []entities.Book{cached}, c.List())
}

func seedBooks(t *testing.T, c *Books) {
	t.Helper()
	mustCreate(t, c, entities.BookInput{Title: "Zanna Bianca", Author: "Jack London", Category: "Avventura", Shelf: "Camera"})
	mustCreate(t, c, entities.BookInput{Title: "Dune", Author: "Frank Herbert", Category: "Fantascienza", Shelf: "Studio", Keywords: entities.Keywords{"deserto"}})
	mustCreate(t, c, entities.BookInput{Title: "èra glaciale", Author: "Anonimo", Category: "Saggio", Shelf: "Studio", Notes: "regalo di Marco"})
	mustCreate(t, c, entities.BookInput{Title: "Emma", Author: "Jane Austen", Category: "Romanzo", Shelf: "Camera"})
}

func titles(books []entities.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.Title
	}
	return out
}

func TestSearch(t *testing.T) {
	c, _ := setupLocalBooks(t)
	seedBooks(t, c)

	tests := []struct {
		name     string
		query    Query
		expected []string
	}{
		{"empty returns all in order", Query{}, []string{"Zanna Bianca", "Dune", "èra glaciale", "Emma"}},
		{"title case insensitive", Query{Text: "DUNE"}, []string{"Dune"}},
		{"author", Query{Text: "austen"}, []string{"Emma"}},
		{"keyword", Query{Text: "desert"}, []string{"Dune"}},
		{"notes", Query{Text: "marco"}, []string{"èra glaciale"}},
		{"shelf text", Query{Text: "camera"}, []string{"Zanna Bianca", "Emma"}},
		{"shelf filter", Query{Shelf: "Studio"}, []string{"Dune", "èra glaciale"}},
		{"text and category filter", Query{Text: "a", Category: "Romanzo"}, []string{"Emma"}},
		{"no match", Query{Text: "tolkien"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, titles(c.Search(tt.query)))
		})
	}
}

func TestSort_ItalianCollation(t *testing.T) {
	c, store := setupLocalBooks(t)
	seedBooks(t, c)

	require.NoError(t, c.Sort(context.Background(), SortByTitle))

	assert.Equal(t, []string{"Dune", "Emma", "èra glaciale", "Zanna Bianca"}, titles(c.List()))
	assert.Equal(t, titles(c.List()), titles(store.LoadBooks(testOwner.ID)), "sorted order is persisted")
}

func TestSort_ByShelfIsStable(t *testing.T) {
	c, _ := setupLocalBooks(t)
	seedBooks(t, c)

	require.NoError(t, c.Sort(context.Background(), SortByShelf))

	assert.Equal(t, []string{"Zanna Bianca", "Emma", "Dune", "èra glaciale"}, titles(c.List()))
}

func TestSort_ByDateNewestFirst(t *testing.T) {
	store := setupStore(t)
	books := []entities.Book{
		{ID: "a", Title: "Old", DateAdded: "01/02/2020", UserID: testOwner.ID},
		{ID: "b", Title: "Broken", DateAdded: "someday", UserID: testOwner.ID},
		{ID: "c", Title: "New", DateAdded: "15/01/2024", UserID: testOwner.ID},
		{ID: "d", Title: "Mid", DateAdded: "2022-06-30", UserID: testOwner.ID},
	}
	require.NoError(t, store.SaveBooks(testOwner.ID, books))
	coord := syncer.NewCoordinator(syncer.BookCodec, syncer.BookLocal(store), nil, testOwner.ID, nil)
	c := NewBooks(testOwner, coord, validation.New())
	c.Reload(context.Background())

	require.NoError(t, c.Sort(context.Background(), SortByDate))

	assert.Equal(t, []string{"New", "Mid", "Old", "Broken"}, titles(c.List()))
}

func TestSort_ByDateWithoutIDs(t *testing.T) {
	store := setupStore(t)
	require.NoError(t, store.SaveBooks(testOwner.ID, []entities.Book{
		{Title: "Old", DateAdded: "01/01/2020", UserID: testOwner.ID},
		{Title: "New", DateAdded: "01/01/2024", UserID: testOwner.ID},
		{Title: "Mid", DateAdded: "01/01/2022", UserID: testOwner.ID},
	}))
	coord := syncer.NewCoordinator(syncer.BookCodec, syncer.BookLocal(store), nil, testOwner.ID, nil)
	c := NewBooks(testOwner, coord, validation.New())
	c.Reload(context.Background())

	require.NoError(t, c.Sort(context.Background(), SortByDate))

	assert.Equal(t, []string{"New", "Mid", "Old"}, titles(c.List()))
}

func TestParseSortField(t *testing.T) {
	f, err := ParseSortField("category")
	require.NoError(t, err)
	assert.Equal(t, SortByCategory, f)

	_, err = ParseSortField("price")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestStatsAndReferences(t *testing.T) {
	c, _ := setupLocalBooks(t)
	seedBooks(t, c)

	st := c.Stats()
	assert.Equal(t, 4, st.Total)
	assert.Equal(t, 2, st.ByShelf["Studio"])
	assert.Equal(t, 1, st.ByCategory["Romanzo"])

	assert.Equal(t, 2, c.ReferencesTo(entities.KindLibrary, "studio"))
	assert.Equal(t, 1, c.ReferencesTo(entities.KindCategory, "Avventura"))
	assert.Equal(t, 1, c.ReferencesTo(entities.KindKeyword, "DESERTO"))
	assert.Zero(t, c.ReferencesTo(entities.KindKeyword, "spezia"))
}

// failingSave wraps the local store so saves fail while *fail is set.
func failingSave[T any](local syncer.Local[T], fail *bool) syncer.Local[T] {
	save := local.Save
	local.Save = func(userID string, items []T) error {
		if *fail {
			return errors.New("disk full")
		}
		return save(userID, items)
	}
	return local
}

func TestMutations_LocalWriteFailureLeavesCollectionUnchanged(t *testing.T) {
	store := setupStore(t)
	fail := false
	coord := syncer.NewCoordinator(syncer.BookCodec, failingSave(syncer.BookLocal(store), &fail), nil, testOwner.ID, nil)
	c := NewBooks(testOwner, coord, validation.New(), WithClock(fixedClock))
	ctx := context.Background()
	dune := mustCreate(t, c, duneInput())
	emma := mustCreate(t, c, entities.BookInput{Title: "Emma", Category: "Romanzo", Shelf: "Camera"})
	before := c.List()

	fail = true

	_, _, err := c.Create(ctx, entities.BookInput{Title: "Zanna Bianca", Category: "Avventura", Shelf: "Studio"})
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, before, c.List(), "create")

	in := duneInput()
	in.Title = "Dune Messiah"
	_, _, err = c.Update(ctx, dune.ID, in)
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, before, c.List(), "update")

	_, err = c.Delete(ctx, emma.ID)
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, before, c.List(), "delete")

	require.ErrorContains(t, c.Sort(ctx, SortByShelf), "disk full")
	assert.Equal(t, before, c.List(), "sort")

	fail = false
	c.Reload(ctx)
	assert.Equal(t, titles(before), titles(c.List()), "memory matches the local store")
}

func TestTaxonomyMutations_LocalWriteFailureLeavesCollectionUnchanged(t *testing.T) {
	store := setupStore(t)
	fail := false
	local := failingSave(syncer.TaxonomyLocal(store, entities.KindCategory), &fail)
	coord := syncer.NewCoordinator(syncer.TaxonomyCodec(entities.KindCategory), local, nil, testOwner.ID, nil)
	tx := NewTaxonomies(entities.KindCategory, testOwner, coord, nil, WithClock(fixedClock))
	ctx := context.Background()
	_, _, err := tx.Create(ctx, "Storia")
	require.NoError(t, err)

	fail = true

	_, _, err = tx.Create(ctx, "Saggio")
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{"Storia"}, tx.Names())

	_, err = tx.Delete(ctx, "Storia", true)
	require.ErrorContains(t, err, "disk full")
	assert.Equal(t, []string{"Storia"}, tx.Names())
}

func setupTaxonomies(t *testing.T, kind entities.Kind) (*Taxonomies, *Books, *localstore.Store) {
	t.Helper()
	books, store := setupLocalBooks(t)
	coord := syncer.NewCoordinator(syncer.TaxonomyCodec(kind), syncer.TaxonomyLocal(store, kind), nil, testOwner.ID, nil)
	return NewTaxonomies(kind, testOwner, coord, books, WithClock(fixedClock)), books, store
}

func TestTaxonomyCreate(t *testing.T) {
	tx, _, store := setupTaxonomies(t, entities.KindCategory)

	item, res, err := tx.Create(context.Background(), "  Storia ")

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusLocalOnly, res.Code)
	assert.Equal(t, entities.Taxonomy{UserID: testOwner.ID, Name: "Storia", DateCreated: "05/03/2024"}, item)
	assert.Equal(t, []string{"Storia"}, tx.Names())
	assert.Equal(t, []entities.Taxonomy{item}, store.LoadTaxonomies(entities.KindCategory, testOwner.ID))
}

func TestTaxonomyCreate_DuplicateIgnoresCase(t *testing.T) {
	tx, _, _ := setupTaxonomies(t, entities.KindCategory)
	ctx := context.Background()
	_, _, err := tx.Create(ctx, "Storia")
	require.NoError(t, err)

	_, _, err = tx.Create(ctx, "STORIA")

	assert.True(t, errors.Is(err, apperr.ErrAlreadyExists))
	assert.Len(t, tx.List(), 1)
}

func TestTaxonomyCreate_EmptyName(t *testing.T) {
	tx, _, _ := setupTaxonomies(t, entities.KindKeyword)

	_, _, err := tx.Create(context.Background(), "   ")

	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestTaxonomyDelete_RequiresConfirmation(t *testing.T) {
	tx, books, _ := setupTaxonomies(t, entities.KindLibrary)
	ctx := context.Background()
	_, _, err := tx.Create(ctx, "Studio")
	require.NoError(t, err)
	mustCreate(t, books, duneInput())

	_, err = tx.Delete(ctx, "studio", false)

	require.True(t, errors.Is(err, apperr.ErrConfirmationRequired))
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, map[string]int{"references": 1}, appErr.Details)
	assert.Equal(t, []string{"Studio"}, tx.Names())

	res, err := tx.Delete(ctx, "studio", true)

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusLocalOnly, res.Code)
	assert.Empty(t, tx.Names())
	assert.Equal(t, "Studio", books.List()[0].Shelf, "books are never cascaded")
}

func TestTaxonomyDelete_AbsentIsNoop(t *testing.T) {
	tx, _, _ := setupTaxonomies(t, entities.KindKeyword)

	res, err := tx.Delete(context.Background(), "missing", false)

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusOK, res.Code)
}

func TestTaxonomyDelete_AbsentButReferencedIsNoop(t *testing.T) {
	tx, books, _ := setupTaxonomies(t, entities.KindCategory)
	mustCreate(t, books, duneInput())
	require.Equal(t, 1, books.ReferencesTo(entities.KindCategory, "Fantascienza"))

	res, err := tx.Delete(context.Background(), "Fantascienza", false)

	require.NoError(t, err)
	assert.Equal(t, syncer.StatusOK, res.Code)
}
