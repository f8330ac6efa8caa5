package entities

// Column names of the remote sheets. Write order is fixed to the slice order.
const (
	ColumnID        = "ID"
	ColumnTitle     = "Titolo"
	ColumnAuthor    = "Autore"
	ColumnISBN      = "ISBN"
	ColumnPublisher = "Casa_Editrice"
	ColumnYear      = "Anno"
	ColumnCategory  = "Categoria"
	ColumnKeywords  = "Parole_Chiave"
	ColumnShelf     = "Scaffale"
	ColumnPosition  = "Posizione"
	ColumnCondition = "Condizioni"
	ColumnNotes     = "Note"
	ColumnDateAdded = "Data_Aggiunta"
	ColumnUserID    = "User_ID"
	ColumnUserName  = "User_Name"

	ColumnName        = "Nome"
	ColumnDateCreated = "Data_Creazione"
)

var BookHeaders = []string{
	ColumnID, ColumnTitle, ColumnAuthor, ColumnISBN, ColumnPublisher, ColumnYear,
	ColumnCategory, ColumnKeywords, ColumnShelf, ColumnPosition, ColumnCondition,
	ColumnNotes, ColumnDateAdded, ColumnUserID, ColumnUserName,
}

var TaxonomyHeaders = []string{ColumnUserID, ColumnName, ColumnDateCreated}

// Headers returns the header row of the kind's sheet.
func (k Kind) Headers() []string {
	if k == KindBook {
		return BookHeaders
	}
	return TaxonomyHeaders
}

// BookToRow flattens b in BookHeaders order.
func BookToRow(b Book) []string {
	return []string{
		b.ID, b.Title, b.Author, b.ISBN, b.Publisher, b.Year,
		b.Category, b.Keywords.String(), b.Shelf, b.Position, b.Condition,
		b.Notes, b.DateAdded, b.UserID, b.UserName,
	}
}

// BookFromRow reads a row by header name. Missing cells are empty and
// unknown headers are ignored. Rows without a title are not books.
func BookFromRow(headers, row []string) (Book, bool) {
	var b Book
	for i, h := range headers {
		v := cell(row, i)
		switch h {
		case ColumnID:
			b.ID = v
		case ColumnTitle:
			b.Title = v
		case ColumnAuthor:
			b.Author = v
		case ColumnISBN:
			b.ISBN = v
		case ColumnPublisher:
			b.Publisher = v
		case ColumnYear:
			b.Year = v
		case ColumnCategory:
			b.Category = v
		case ColumnKeywords:
			b.Keywords = ParseKeywords(v)
		case ColumnShelf:
			b.Shelf = v
		case ColumnPosition:
			b.Position = v
		case ColumnCondition:
			b.Condition = v
		case ColumnNotes:
			b.Notes = v
		case ColumnDateAdded:
			b.DateAdded = v
		case ColumnUserID:
			b.UserID = v
		case ColumnUserName:
			b.UserName = v
		}
	}
	return b, b.Title != ""
}

// TaxonomyToRow flattens t in TaxonomyHeaders order.
func TaxonomyToRow(t Taxonomy) []string {
	return []string{t.UserID, t.Name, t.DateCreated}
}

// TaxonomyFromRow reads a row by header name. Rows without a name are skipped.
func TaxonomyFromRow(headers, row []string) (Taxonomy, bool) {
	var t Taxonomy
	for i, h := range headers {
		v := cell(row, i)
		switch h {
		case ColumnUserID:
			t.UserID = v
		case ColumnName:
			t.Name = v
		case ColumnDateCreated:
			t.DateCreated = v
		}
	}
	return t, t.Name != ""
}

// ColumnIndex returns the position of name in headers, or -1.
func ColumnIndex(headers []string, name string) int {
	for i, h := range headers {
		if h == name {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
