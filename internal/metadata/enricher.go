package metadata

import (
	"context"
	"fmt"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/syncer"
)

// BookUpdater is the part of a book collection the enricher needs.
type BookUpdater interface {
	Get(bookID string) (entities.Book, error)
	Update(ctx context.Context, bookID string, in entities.BookInput) (entities.Book, syncer.Status, error)
}

// EnrichmentResult describes what an enrichment changed.
type EnrichmentResult struct {
	Book          entities.Book `json:"book"`
	FieldsUpdated []string      `json:"fieldsUpdated"`
	Source        string        `json:"source,omitempty"`
	Sync          syncer.Status `json:"sync"`
}

// Enricher fills missing fields of existing books from a lookup by ISBN.
type Enricher struct {
	lookup *Lookup
}

func NewEnricher(lookup *Lookup) *Enricher {
	return &Enricher{lookup: lookup}
}

// EnrichBook fills empty author, publisher and year of the book. Fields
// that already hold a value are left alone.
func (e *Enricher) EnrichBook(ctx context.Context, books BookUpdater, bookID string) (*EnrichmentResult, error) {
	book, err := books.Get(bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book.ISBN == "" {
		return nil, apperr.Validation("book has no ISBN to look up", map[string]string{"isbn": "is required"})
	}

	outcome := e.lookup.Lookup(ctx, book.ISBN)
	if !outcome.Found {
		return nil, apperr.NotFound("no metadata found for ISBN %s", book.ISBN)
	}

	in, fields := buildUpdates(book, outcome.Metadata)
	result := &EnrichmentResult{Book: book, FieldsUpdated: fields, Source: outcome.Source}
	if len(fields) == 0 {
		return result, nil
	}

	updated, st, err := books.Update(ctx, bookID, in)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	result.Book = updated
	result.Sync = st
	return result, nil
}

func buildUpdates(book entities.Book, m *BookMetadata) (entities.BookInput, []string) {
	in := entities.InputFromBook(book)
	var fields []string

	if in.Author == "" && m.Author != "" {
		in.Author = m.Author
		fields = append(fields, "author")
	}
	if in.Publisher == "" && m.Publisher != "" {
		in.Publisher = m.Publisher
		fields = append(fields, "publisher")
	}
	if in.Year == "" && m.Year != "" {
		in.Year = m.Year
		fields = append(fields, "year")
	}

	return in, fields
}

// BookLister also exposes the whole collection, for bulk enrichment.
type BookLister interface {
	BookUpdater
	List() []entities.Book
}

// BulkEnrichmentResult summarizes an EnrichAllMissing run.
type BulkEnrichmentResult struct {
	TotalBooks int      `json:"totalBooks"`
	Enriched   int      `json:"enriched"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// EnrichAllMissing enriches every book that has an ISBN and lacks an
// author, publisher or year.
func (e *Enricher) EnrichAllMissing(ctx context.Context, books BookLister) (*BulkEnrichmentResult, error) {
	result := &BulkEnrichmentResult{}

	for _, book := range books.List() {
		if book.ISBN == "" || (book.Author != "" && book.Publisher != "" && book.Year != "") {
			continue
		}
		result.TotalBooks++

		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, "operation cancelled")
			return result, err
		}

		enriched, err := e.EnrichBook(ctx, books, book.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", book.Title, err))
			continue
		}
		if len(enriched.FieldsUpdated) > 0 {
			result.Enriched++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}
