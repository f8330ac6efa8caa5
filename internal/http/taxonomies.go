package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/catalog"
	"github.com/mrlokans/bookcatalog/internal/entities"
)

// TaxonomyController serves one of the library, category or keyword lists.
type TaxonomyController struct {
	kind entities.Kind
}

func NewTaxonomyController(kind entities.Kind) *TaxonomyController {
	return &TaxonomyController{kind: kind}
}

func (tc *TaxonomyController) collection(c *gin.Context) (*catalog.Taxonomies, bool) {
	t, ok := currentSession(c).Taxonomies(tc.kind)
	if !ok {
		respondInternalError(c, nil, "missing "+tc.kind.Plural())
	}
	return t, ok
}

// List handles GET /api/{libraries,categories,keywords}
func (tc *TaxonomyController) List(c *gin.Context) {
	t, ok := tc.collection(c)
	if !ok {
		return
	}
	items := t.List()
	c.JSON(http.StatusOK, gin.H{
		tc.kind.Plural(): items,
		"count":          len(items),
	})
}

// Create handles POST /api/{libraries,categories,keywords}
func (tc *TaxonomyController) Create(c *gin.Context) {
	var in entities.TaxonomyInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	t, ok := tc.collection(c)
	if !ok {
		return
	}

	item, st, err := t.Create(c.Request.Context(), in.Name)
	if err != nil {
		respondAppError(c, err, "create "+string(tc.kind))
		return
	}
	respondSync(c, http.StatusCreated, st, item)
}

// Delete handles DELETE /api/{libraries,categories,keywords}/:name?confirm=true
// Names still referenced by books need confirm=true; books keep the name.
func (tc *TaxonomyController) Delete(c *gin.Context) {
	confirm, ok := parseBoolQuery(c, "confirm")
	if !ok {
		return
	}
	t, ok := tc.collection(c)
	if !ok {
		return
	}

	st, err := t.Delete(c.Request.Context(), c.Param("name"), confirm)
	if err != nil {
		respondAppError(c, err, "delete "+string(tc.kind))
		return
	}
	respondSync(c, http.StatusOK, st, nil)
}
