package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/bookcatalog/internal/apperr"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseBoolQuery(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		value    bool
		ok       bool
		wantCode int
	}{
		{"absent", "/", false, true, http.StatusOK},
		{"true", "/?confirm=true", true, true, http.StatusOK},
		{"one", "/?confirm=1", true, true, http.StatusOK},
		{"garbage", "/?confirm=maybe", false, false, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, tt.target, nil)

			value, ok := parseBoolQuery(c, "confirm")

			assert.Equal(t, tt.value, value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", apperr.Validation("missing or invalid fields: title", map[string]string{"title": "is required"}), http.StatusBadRequest, `"title":"is required"`},
		{"duplicate", apperr.AlreadyExists("category %q already exists", "Storia"), http.StatusConflict, "ALREADY_EXISTS"},
		{"wrapped not found", fmt.Errorf("load: %w", apperr.NotFound("book x not found")), http.StatusNotFound, "book x not found"},
		{"not signed in", apperr.ErrNotSignedIn, http.StatusUnauthorized, "UNAUTHORIZED"},
		{"confirmation", apperr.ConfirmationRequired(3, "used by 3 books"), http.StatusConflict, `"references":3`},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondAppError(c, tt.err, "test")

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotContains(t, w.Body.String(), "disk on fire")
		})
	}
}
