package entities

import "strings"

// Kind identifies one of the four synced entity collections.
type Kind string

const (
	KindBook     Kind = "book"
	KindLibrary  Kind = "library"
	KindCategory Kind = "category"
	KindKeyword  Kind = "keyword"
)

// TaxonomyKinds lists the three auxiliary taxonomies in display order.
var TaxonomyKinds = []Kind{KindLibrary, KindCategory, KindKeyword}

// CollectionKey is the local store prefix of the kind's per-user collection.
func (k Kind) CollectionKey() string {
	switch k {
	case KindBook:
		return "libraryBooks"
	case KindLibrary:
		return "userLibraries"
	case KindCategory:
		return "userCategories"
	case KindKeyword:
		return "userKeywords"
	}
	return string(k)
}

// DefaultSheet is the sheet title used when none is configured.
func (k Kind) DefaultSheet() string {
	switch k {
	case KindBook:
		return "Libri"
	case KindLibrary:
		return "Librerie"
	case KindCategory:
		return "Categorie"
	case KindKeyword:
		return "Parole_Chiave"
	}
	return string(k)
}

// Plural is the name used in routes and log messages.
func (k Kind) Plural() string {
	switch k {
	case KindBook:
		return "books"
	case KindLibrary:
		return "libraries"
	case KindCategory:
		return "categories"
	case KindKeyword:
		return "keywords"
	}
	return string(k) + "s"
}

// Taxonomy is a named label (library, category or keyword) owned by one user.
type Taxonomy struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	DateCreated string `json:"createdDate"`
}

// TaxonomyInput is the payload for creating a taxonomy entry.
type TaxonomyInput struct {
	Name string `json:"name" validate:"required"`
}

// SameName reports whether two taxonomy names collide (case-insensitive, trimmed).
func SameName(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
