// Package session owns the single active catalog session: the signed-in
// user together with the in-memory collections and their sync coordinators.
package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/mrlokans/bookcatalog/internal/catalog"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/oauth2"
	"github.com/mrlokans/bookcatalog/internal/syncer"
)

// Session is one signed-in user and the collections they own.
type Session struct {
	// Handle identifies this session instance; browser cookies are bound to it.
	Handle string
	User   entities.UserSession
	Books  *catalog.Books

	taxonomies map[entities.Kind]*catalog.Taxonomies
	tokens     *oauth2.StoredTokenSource

	mu       sync.Mutex
	statuses map[entities.Kind]syncer.Status
}

// Taxonomies returns the collection of a library, category or keyword kind.
func (s *Session) Taxonomies(kind entities.Kind) (*catalog.Taxonomies, bool) {
	t, ok := s.taxonomies[kind]
	return t, ok
}

// State reports the book collection's authority. Every kind starts in the
// same state and they only ever move to LocalOnly together with a sign-out.
func (s *Session) State() syncer.State {
	return s.Books.State()
}

// LoadAll reloads the four collections concurrently and records each
// kind's sync status.
func (s *Session) LoadAll(ctx context.Context) map[entities.Kind]syncer.Status {
	var mu sync.Mutex
	statuses := make(map[entities.Kind]syncer.Status, len(entities.TaxonomyKinds)+1)
	record := func(kind entities.Kind, st syncer.Status) {
		mu.Lock()
		statuses[kind] = st
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		record(entities.KindBook, s.Books.Reload(gctx))
		return nil
	})
	for _, kind := range entities.TaxonomyKinds {
		t := s.taxonomies[kind]
		g.Go(func() error {
			record(kind, t.Reload(gctx))
			return nil
		})
	}
	_ = g.Wait()

	for _, st := range statuses {
		if st.Code == syncer.StatusSessionInvalidated {
			// Signed out mid-load; drop what the other kinds loaded meanwhile.
			s.clear()
			break
		}
	}

	s.mu.Lock()
	s.statuses = statuses
	s.mu.Unlock()

	return copyStatuses(statuses)
}

// Statuses returns the outcome of the last LoadAll.
func (s *Session) Statuses() map[entities.Kind]syncer.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyStatuses(s.statuses)
}

func (s *Session) clear() {
	s.Books.Clear()
	for _, t := range s.taxonomies {
		t.Clear()
	}
}

func copyStatuses(in map[entities.Kind]syncer.Status) map[entities.Kind]syncer.Status {
	out := make(map[entities.Kind]syncer.Status, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
