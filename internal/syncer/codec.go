package syncer

import (
	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/localstore"
)

// Codec maps one entity type to sheet rows.
type Codec[T any] struct {
	Kind    entities.Kind
	ToRow   func(T) []string
	FromRow func(headers, row []string) (T, bool)
	// Key is the value matched against the sheet's match column.
	Key   func(T) string
	Owner func(T) string
}

// BookCodec maps books by id.
var BookCodec = Codec[entities.Book]{
	Kind:    entities.KindBook,
	ToRow:   entities.BookToRow,
	FromRow: entities.BookFromRow,
	Key:     func(b entities.Book) string { return b.ID },
	Owner:   func(b entities.Book) string { return b.UserID },
}

// TaxonomyCodec maps library, category or keyword entries by name.
func TaxonomyCodec(kind entities.Kind) Codec[entities.Taxonomy] {
	return Codec[entities.Taxonomy]{
		Kind:    kind,
		ToRow:   entities.TaxonomyToRow,
		FromRow: entities.TaxonomyFromRow,
		Key:     func(t entities.Taxonomy) string { return t.Name },
		Owner:   func(t entities.Taxonomy) string { return t.UserID },
	}
}

// Local is the per-user local collection of one kind.
type Local[T any] struct {
	Load func(userID string) []T
	Save func(userID string, items []T) error
}

// BookLocal binds books to the local store.
func BookLocal(store *localstore.Store) Local[entities.Book] {
	return Local[entities.Book]{Load: store.LoadBooks, Save: store.SaveBooks}
}

// TaxonomyLocal binds one taxonomy kind to the local store.
func TaxonomyLocal(store *localstore.Store, kind entities.Kind) Local[entities.Taxonomy] {
	return Local[entities.Taxonomy]{
		Load: func(userID string) []entities.Taxonomy { return store.LoadTaxonomies(kind, userID) },
		Save: func(userID string, items []entities.Taxonomy) error {
			return store.SaveTaxonomies(kind, userID, items)
		},
	}
}
