package entities

import (
	"encoding/json"
	"strings"
)

// Book is a single catalog entry owned by one user.
type Book struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Author    string   `json:"author"`
	ISBN      string   `json:"isbn"`
	Publisher string   `json:"publisher"`
	Year      string   `json:"year"`
	Category  string   `json:"genre"`
	Keywords  Keywords `json:"keywords"`
	Shelf     string   `json:"shelf"`
	Position  string   `json:"position"`
	Condition string   `json:"condition"`
	Notes     string   `json:"notes"`
	DateAdded string   `json:"addedDate"`
	UserID    string   `json:"userId"`
	UserName  string   `json:"userName"`
}

// BookInput carries the user-editable fields of a book.
type BookInput struct {
	Title     string   `json:"title" validate:"required"`
	Author    string   `json:"author"`
	ISBN      string   `json:"isbn"`
	Publisher string   `json:"publisher"`
	Year      string   `json:"year"`
	Category  string   `json:"genre" validate:"required"`
	Keywords  Keywords `json:"keywords"`
	Shelf     string   `json:"shelf" validate:"required"`
	Position  string   `json:"position"`
	Condition string   `json:"condition"`
	Notes     string   `json:"notes"`
}

// InputFromBook returns the editable fields of b.
func InputFromBook(b Book) BookInput {
	return BookInput{
		Title:     b.Title,
		Author:    b.Author,
		ISBN:      b.ISBN,
		Publisher: b.Publisher,
		Year:      b.Year,
		Category:  b.Category,
		Keywords:  b.Keywords,
		Shelf:     b.Shelf,
		Position:  b.Position,
		Condition: b.Condition,
		Notes:     b.Notes,
	}
}

// Normalize trims every free-text field.
func (in BookInput) Normalize() BookInput {
	in.Title = strings.TrimSpace(in.Title)
	in.Author = strings.TrimSpace(in.Author)
	in.ISBN = strings.TrimSpace(in.ISBN)
	in.Publisher = strings.TrimSpace(in.Publisher)
	in.Year = strings.TrimSpace(in.Year)
	in.Category = strings.TrimSpace(in.Category)
	in.Shelf = strings.TrimSpace(in.Shelf)
	in.Position = strings.TrimSpace(in.Position)
	in.Condition = strings.TrimSpace(in.Condition)
	in.Notes = strings.TrimSpace(in.Notes)
	in.Keywords = ParseKeywords(in.Keywords.String())
	return in
}

// Apply replaces every editable field of b with the input values.
// ID, DateAdded and ownership are left untouched.
func (in BookInput) Apply(b Book) Book {
	b.Title = in.Title
	b.Author = in.Author
	b.ISBN = in.ISBN
	b.Publisher = in.Publisher
	b.Year = in.Year
	b.Category = in.Category
	b.Keywords = in.Keywords
	b.Shelf = in.Shelf
	b.Position = in.Position
	b.Condition = in.Condition
	b.Notes = in.Notes
	return b
}

// Keywords is a set of labels stored as a single "; "-joined string.
type Keywords []string

// ParseKeywords splits s on ';' or ',', trimming blanks and dropping empties.
func ParseKeywords(s string) Keywords {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ';' || r == ','
	})
	out := make(Keywords, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (k Keywords) String() string {
	return strings.Join(k, "; ")
}

// MarshalJSON writes the joined form, matching what the sheet stores.
func (k Keywords) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON accepts either the joined string or a JSON array.
func (k *Keywords) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*k = ParseKeywords(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*k = ParseKeywords(strings.Join(list, ";"))
	return nil
}
