package tasks

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/metadata"
	"github.com/mrlokans/bookcatalog/internal/syncer"
)

type stubSource struct{}

func (stubSource) Name() string { return "stub" }

func (stubSource) Lookup(ctx context.Context, code string) (*metadata.BookMetadata, error) {
	return &metadata.BookMetadata{Author: "Frank Herbert", Year: "1965"}, nil
}

type singleBook struct {
	mu   sync.Mutex
	book entities.Book
}

func (s *singleBook) current() entities.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book
}

func (s *singleBook) Get(bookID string) (entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bookID != s.book.ID {
		return entities.Book{}, apperr.NotFound("book %s not found", bookID)
	}
	return s.book, nil
}

func (s *singleBook) Update(ctx context.Context, bookID string, in entities.BookInput) (entities.Book, syncer.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.book = in.Apply(s.book)
	return s.book, syncer.Status{Code: syncer.StatusLocalOnly}, nil
}

func (s *singleBook) List() []entities.Book { return []entities.Book{s.current()} }

func TestEnrichBookProcessor(t *testing.T) {
	books := &singleBook{book: entities.Book{ID: "bk-1", Title: "Dune", ISBN: "9780441172719"}}
	resolve := func(userID string) (metadata.BookLister, error) {
		if userID != "local_1" {
			return nil, apperr.ErrNotSignedIn
		}
		return books, nil
	}
	enricher := metadata.NewEnricher(metadata.NewLookup(nil, stubSource{}))
	process := EnrichBookProcessor(enricher, resolve, orDefault(nil))
	ctx := context.Background()

	require.NoError(t, process(ctx, EnrichBookTask{UserID: "local_1", BookID: "bk-1"}))
	assert.Equal(t, "Frank Herbert", books.book.Author)
	assert.Equal(t, "1965", books.book.Year)

	assert.NoError(t, process(ctx, EnrichBookTask{UserID: "someone-else", BookID: "bk-1"}), "signed-out owner is dropped")
	assert.NoError(t, process(ctx, EnrichBookTask{UserID: "local_1", BookID: "bk-gone"}), "deleted book is dropped")
}

func TestEnrichAllBooksProcessor(t *testing.T) {
	books := &singleBook{book: entities.Book{ID: "bk-1", Title: "Dune", ISBN: "9780441172719", Publisher: "Ace"}}
	resolve := func(string) (metadata.BookLister, error) { return books, nil }
	enricher := metadata.NewEnricher(metadata.NewLookup(nil, stubSource{}))

	err := EnrichAllBooksProcessor(enricher, resolve, orDefault(nil))(context.Background(), EnrichAllBooksTask{UserID: "local_1"})

	require.NoError(t, err)
	assert.Equal(t, "Frank Herbert", books.book.Author)
	assert.Equal(t, "Ace", books.book.Publisher)
}
