package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/auth"
	"github.com/mrlokans/bookcatalog/internal/session"
	"github.com/mrlokans/bookcatalog/internal/syncer"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// SyncResponse reports the outcome of a mutation together with the record.
type SyncResponse struct {
	syncer.Status
	Data any `json:"data,omitempty"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: string(apperr.CodeValidation)})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	slog.Error("internal error", "context", context, "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: string(apperr.CodeInternal)})
}

// respondAppError maps domain errors to their HTTP status and code.
func respondAppError(c *gin.Context, err error, context string) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code.HTTPStatus(), ErrorResponse{Error: appErr.Message, Code: string(appErr.Code), Details: appErr.Details})
		return
	}

	code := apperr.CodeOf(err)
	if code == apperr.CodeInternal {
		respondInternalError(c, err, context)
		return
	}
	c.JSON(code.HTTPStatus(), ErrorResponse{Error: err.Error(), Code: string(code)})
}

// --- Success Response Helpers ---

// respondSync sends the sync outcome of a mutation.
func respondSync(c *gin.Context, status int, st syncer.Status, data any) {
	c.JSON(status, SyncResponse{Status: st, Data: data})
}

// respondAccepted sends a 202 Accepted response (for async operations).
func respondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, data)
}

// --- Parameter Parsing ---

// parseBoolQuery reads an optional boolean query parameter.
func parseBoolQuery(c *gin.Context, name string) (bool, bool) {
	raw := c.Query(name)
	if raw == "" {
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		respondBadRequest(c, "invalid "+name)
		return false, false
	}
	return v, true
}

// currentSession returns the session RequireSession admitted.
func currentSession(c *gin.Context) *session.Session {
	return auth.GetSession(c)
}
