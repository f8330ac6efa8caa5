package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SyncController reloads collections and reports their sync state.
type SyncController struct{}

func NewSyncController() *SyncController {
	return &SyncController{}
}

// Reload handles POST /api/sync
// Every kind is re-read from its store of record; un-synced local edits of
// a RemoteBacked session are replaced by the remote content.
func (sc *SyncController) Reload(c *gin.Context) {
	sess := currentSession(c)
	statuses := sess.LoadAll(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"state":    sess.State().String(),
		"statuses": statuses,
	})
}

// Status handles GET /api/sync/status
func (sc *SyncController) Status(c *gin.Context) {
	sess := currentSession(c)
	c.JSON(http.StatusOK, gin.H{
		"state":    sess.State().String(),
		"statuses": sess.Statuses(),
	})
}
