package catalog

import (
	"context"
	"slices"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/entities"
)

// SortField names a sortable book attribute.
type SortField string

const (
	SortByTitle    SortField = "title"
	SortByAuthor   SortField = "author"
	SortByCategory SortField = "genre"
	SortByShelf    SortField = "shelf"
	SortByDate     SortField = "date"
)

// ParseSortField accepts the field names above plus "category".
func ParseSortField(s string) (SortField, error) {
	switch s {
	case "title", "author", "genre", "shelf", "date":
		return SortField(s), nil
	case "category":
		return SortByCategory, nil
	}
	return "", apperr.Validation("unknown sort field "+s, map[string]string{"sort": "must be one of: title author genre shelf date"})
}

// Sort reorders the collection in place (stable) and persists the new order.
// Text fields use Italian collation; dates sort newest first with
// unparsable dates last.
func (c *Books) Sort(ctx context.Context, field SortField) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := slices.Clone(c.books)
	if field == SortByDate {
		sortByDate(next)
	} else {
		key, err := textKey(field)
		if err != nil {
			return err
		}
		col := collate.New(language.Italian, collate.IgnoreCase)
		sort.SliceStable(next, func(i, j int) bool {
			return col.CompareString(key(next[i]), key(next[j])) < 0
		})
	}

	return c.commitLocked(next)
}

func textKey(field SortField) (func(entities.Book) string, error) {
	switch field {
	case SortByTitle:
		return func(b entities.Book) string { return b.Title }, nil
	case SortByAuthor:
		return func(b entities.Book) string { return b.Author }, nil
	case SortByCategory:
		return func(b entities.Book) string { return b.Category }, nil
	case SortByShelf:
		return func(b entities.Book) string { return b.Shelf }, nil
	}
	_, err := ParseSortField(string(field))
	return nil, err
}

func sortByDate(books []entities.Book) {
	type dated struct {
		book entities.Book
		ok   bool
		unix int64
	}
	keyed := make([]dated, len(books))
	for i, b := range books {
		keyed[i].book = b
		if t, err := entities.ParseDate(b.DateAdded); err == nil {
			keyed[i].ok, keyed[i].unix = true, t.Unix()
		}
	}

	sort.SliceStable(keyed, func(i, j int) bool {
		a, b := keyed[i], keyed[j]
		if a.ok != b.ok {
			return a.ok
		}
		return a.unix > b.unix
	})
	for i := range keyed {
		books[i] = keyed[i].book
	}
}
