package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/id"
	"github.com/mrlokans/bookcatalog/internal/syncer"
	"github.com/mrlokans/bookcatalog/internal/validation"
)

const bookIDPrefix = "bk"

// Books is the book collection of one session.
type Books struct {
	mu    sync.RWMutex
	books []entities.Book

	owner     Owner
	coord     *syncer.Coordinator[entities.Book]
	validator *validation.Validator
	opts      options
}

func NewBooks(owner Owner, coord *syncer.Coordinator[entities.Book], v *validation.Validator, opts ...Option) *Books {
	return &Books{
		books:     []entities.Book{},
		owner:     owner,
		coord:     coord,
		validator: v,
		opts:      buildOptions(opts),
	}
}

// Reload replaces the collection with the authoritative copy. Changes that
// never reached the remote store are dropped when it is authoritative.
// A load that invalidates the session leaves the collection untouched.
func (c *Books) Reload(ctx context.Context) Result {
	items, st := c.coord.Load(ctx)
	if st.Code == syncer.StatusSessionInvalidated {
		return st
	}

	c.mu.Lock()
	c.books = items
	c.mu.Unlock()

	return st
}

// Create validates in and adds a new book stamped with today's date.
func (c *Books) Create(ctx context.Context, in entities.BookInput) (entities.Book, Result, error) {
	in = in.Normalize()
	if err := c.validator.Validate(in); err != nil {
		return entities.Book{}, Result{}, err
	}

	c.mu.Lock()
	bookID, err := c.newIDLocked()
	if err != nil {
		c.mu.Unlock()
		return entities.Book{}, Result{}, err
	}
	b := in.Apply(entities.Book{
		ID:        bookID,
		DateAdded: entities.FormatDate(c.opts.now()),
		UserID:    c.owner.ID,
		UserName:  c.owner.Name,
	})
	err = c.commitLocked(append(slices.Clip(c.books), b))
	c.mu.Unlock()
	if err != nil {
		return entities.Book{}, Result{}, err
	}

	return b, c.coord.Create(ctx, b), nil
}

// Update replaces every editable field of the book. ID, DateAdded and
// ownership are preserved.
func (c *Books) Update(ctx context.Context, bookID string, in entities.BookInput) (entities.Book, Result, error) {
	in = in.Normalize()
	if err := c.validator.Validate(in); err != nil {
		return entities.Book{}, Result{}, err
	}

	c.mu.Lock()
	idx := c.indexLocked(bookID)
	if idx < 0 {
		c.mu.Unlock()
		return entities.Book{}, Result{}, apperr.NotFound("book %s not found", bookID)
	}
	updated := in.Apply(c.books[idx])
	next := slices.Clone(c.books)
	next[idx] = updated
	err := c.commitLocked(next)
	c.mu.Unlock()
	if err != nil {
		return entities.Book{}, Result{}, err
	}

	return updated, c.coord.Update(ctx, updated), nil
}

// Delete removes the book. An unknown id is a no-op.
func (c *Books) Delete(ctx context.Context, bookID string) (Result, error) {
	c.mu.Lock()
	idx := c.indexLocked(bookID)
	if idx < 0 {
		c.mu.Unlock()
		return noop("nothing to delete"), nil
	}
	err := c.commitLocked(slices.Delete(slices.Clone(c.books), idx, idx+1))
	c.mu.Unlock()
	if err != nil {
		return Result{}, err
	}

	return c.coord.Delete(ctx, bookID), nil
}

// Get returns the book with the given id.
func (c *Books) Get(bookID string) (entities.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if idx := c.indexLocked(bookID); idx >= 0 {
		return c.books[idx], nil
	}
	return entities.Book{}, apperr.NotFound("book %s not found", bookID)
}

// List returns a copy of the collection in its current order.
func (c *Books) List() []entities.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.books)
}

// Len returns the number of books.
func (c *Books) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.books)
}

// Clear drops the in-memory collection without touching either store.
func (c *Books) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.books = []entities.Book{}
}

// State reports whether the collection is remote-backed.
func (c *Books) State() syncer.State {
	return c.coord.State()
}

// ReferencesTo counts books using name as their shelf, category or keyword.
func (c *Books) ReferencesTo(kind entities.Kind, name string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, b := range c.books {
		switch kind {
		case entities.KindLibrary:
			if entities.SameName(b.Shelf, name) {
				n++
			}
		case entities.KindCategory:
			if entities.SameName(b.Category, name) {
				n++
			}
		case entities.KindKeyword:
			if slices.ContainsFunc(b.Keywords, func(k string) bool { return entities.SameName(k, name) }) {
				n++
			}
		}
	}
	return n
}

// Stats summarizes the collection.
type Stats struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"byCategory"`
	ByShelf    map[string]int `json:"byShelf"`
}

func (c *Books) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	st := Stats{
		Total:      len(c.books),
		ByCategory: make(map[string]int),
		ByShelf:    make(map[string]int),
	}
	for _, b := range c.books {
		st.ByCategory[b.Category]++
		st.ByShelf[b.Shelf]++
	}
	return st
}

func (c *Books) indexLocked(bookID string) int {
	return slices.IndexFunc(c.books, func(b entities.Book) bool { return b.ID == bookID })
}

func (c *Books) newIDLocked() (string, error) {
	for {
		bookID, err := id.Generate(bookIDPrefix)
		if err != nil {
			return "", err
		}
		if c.indexLocked(bookID) < 0 {
			return bookID, nil
		}
	}
}

// commitLocked saves next locally and installs it. On failure the
// collection keeps its previous content.
func (c *Books) commitLocked(next []entities.Book) error {
	if err := c.coord.Persist(next); err != nil {
		return fmt.Errorf("save books locally: %w", err)
	}
	c.books = next
	return nil
}

// Query filters books. Text matches any of title, author, category,
// keywords, shelf or notes; Category and Shelf must match exactly.
type Query struct {
	Text     string
	Category string
	Shelf    string
}

// Search returns the matching books in collection order.
func (c *Books) Search(q Query) []entities.Book {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]entities.Book, 0, len(c.books))
	for _, b := range c.books {
		if q.Category != "" && b.Category != q.Category {
			continue
		}
		if q.Shelf != "" && b.Shelf != q.Shelf {
			continue
		}
		if text != "" && !matchesText(b, text) {
			continue
		}
		out = append(out, b)
	}
	return out
}

func matchesText(b entities.Book, lowered string) bool {
	for _, field := range []string{b.Title, b.Author, b.Category, b.Keywords.String(), b.Shelf, b.Notes} {
		if strings.Contains(strings.ToLower(field), lowered) {
			return true
		}
	}
	return false
}
