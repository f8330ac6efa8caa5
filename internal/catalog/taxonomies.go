package catalog

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/syncer"
)

// ReferenceCounter reports how many books use a taxonomy name.
type ReferenceCounter interface {
	ReferencesTo(kind entities.Kind, name string) int
}

// Taxonomies is one lookup collection (libraries, categories or keywords).
type Taxonomies struct {
	kind entities.Kind

	mu    sync.RWMutex
	items []entities.Taxonomy

	owner Owner
	coord *syncer.Coordinator[entities.Taxonomy]
	refs  ReferenceCounter
	opts  options
}

func NewTaxonomies(kind entities.Kind, owner Owner, coord *syncer.Coordinator[entities.Taxonomy], refs ReferenceCounter, opts ...Option) *Taxonomies {
	return &Taxonomies{
		kind:  kind,
		items: []entities.Taxonomy{},
		owner: owner,
		coord: coord,
		refs:  refs,
		opts:  buildOptions(opts),
	}
}

func (t *Taxonomies) Kind() entities.Kind {
	return t.kind
}

func (t *Taxonomies) Reload(ctx context.Context) Result {
	items, st := t.coord.Load(ctx)
	if st.Code == syncer.StatusSessionInvalidated {
		return st
	}

	t.mu.Lock()
	t.items = items
	t.mu.Unlock()

	return st
}

func (t *Taxonomies) List() []entities.Taxonomy {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.items)
}

// Names returns the entry names in collection order.
func (t *Taxonomies) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, len(t.items))
	for i, item := range t.items {
		names[i] = item.Name
	}
	return names
}

// Create adds name. Names are unique ignoring case and surrounding blanks.
func (t *Taxonomies) Create(ctx context.Context, name string) (entities.Taxonomy, Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return entities.Taxonomy{}, Result{}, apperr.Validation("name is required", map[string]string{"name": "is required"})
	}

	t.mu.Lock()
	if t.indexLocked(name) >= 0 {
		t.mu.Unlock()
		return entities.Taxonomy{}, Result{}, apperr.AlreadyExists("%s %q already exists", t.kind, name)
	}
	item := entities.Taxonomy{
		UserID:      t.owner.ID,
		Name:        name,
		DateCreated: entities.FormatDate(t.opts.now()),
	}
	err := t.commitLocked(append(slices.Clip(t.items), item))
	t.mu.Unlock()
	if err != nil {
		return entities.Taxonomy{}, Result{}, err
	}

	return item, t.coord.Create(ctx, item), nil
}

// Delete removes name. Books still referencing it are left untouched, but
// the caller has to confirm the removal first.
func (t *Taxonomies) Delete(ctx context.Context, name string, confirm bool) (Result, error) {
	name = strings.TrimSpace(name)

	t.mu.Lock()
	idx := t.indexLocked(name)
	if idx < 0 {
		t.mu.Unlock()
		return noop("nothing to delete"), nil
	}
	if !confirm && t.refs != nil {
		if n := t.refs.ReferencesTo(t.kind, name); n > 0 {
			t.mu.Unlock()
			return Result{}, apperr.ConfirmationRequired(n, "%s %q is used by %d books", t.kind, name, n)
		}
	}
	removed := t.items[idx]
	err := t.commitLocked(slices.Delete(slices.Clone(t.items), idx, idx+1))
	t.mu.Unlock()
	if err != nil {
		return Result{}, err
	}

	return t.coord.Delete(ctx, removed.Name), nil
}

// Clear drops the in-memory collection.
func (t *Taxonomies) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.items = []entities.Taxonomy{}
}

func (t *Taxonomies) indexLocked(name string) int {
	return slices.IndexFunc(t.items, func(item entities.Taxonomy) bool {
		return entities.SameName(item.Name, name)
	})
}

func (t *Taxonomies) commitLocked(next []entities.Taxonomy) error {
	if err := t.coord.Persist(next); err != nil {
		return fmt.Errorf("save %s locally: %w", t.kind.Plural(), err)
	}
	t.items = next
	return nil
}
