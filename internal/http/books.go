package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/catalog"
	"github.com/mrlokans/bookcatalog/internal/entities"
)

// BooksController serves the signed-in user's book collection.
type BooksController struct{}

func NewBooksController() *BooksController {
	return &BooksController{}
}

// ListBooks handles GET /api/books
// Optional query: q (free text), category, shelf, sort.
func (bc *BooksController) ListBooks(c *gin.Context) {
	books := currentSession(c).Books

	if raw := c.Query("sort"); raw != "" {
		field, err := catalog.ParseSortField(raw)
		if err != nil {
			respondAppError(c, err, "parse sort")
			return
		}
		if err := books.Sort(c.Request.Context(), field); err != nil {
			respondAppError(c, err, "sort books")
			return
		}
	}

	result := books.Search(catalog.Query{
		Text:     c.Query("q"),
		Category: c.Query("category"),
		Shelf:    c.Query("shelf"),
	})

	c.JSON(http.StatusOK, gin.H{
		"books": result,
		"count": len(result),
		"total": books.Len(),
	})
}

// GetBook handles GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	book, err := currentSession(c).Books.Get(c.Param("id"))
	if err != nil {
		respondAppError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// CreateBook handles POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var in entities.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, st, err := currentSession(c).Books.Create(c.Request.Context(), in)
	if err != nil {
		respondAppError(c, err, "create book")
		return
	}
	respondSync(c, http.StatusCreated, st, book)
}

// UpdateBook handles PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	var in entities.BookInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, st, err := currentSession(c).Books.Update(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondAppError(c, err, "update book")
		return
	}
	respondSync(c, http.StatusOK, st, book)
}

// DeleteBook handles DELETE /api/books/:id
// Deleting an id that does not exist is a successful no-op.
func (bc *BooksController) DeleteBook(c *gin.Context) {
	st, err := currentSession(c).Books.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondAppError(c, err, "delete book")
		return
	}
	respondSync(c, http.StatusOK, st, nil)
}

// GetBookStats handles GET /api/books/stats
func (bc *BooksController) GetBookStats(c *gin.Context) {
	c.JSON(http.StatusOK, currentSession(c).Books.Stats())
}
