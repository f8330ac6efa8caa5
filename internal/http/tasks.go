package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookcatalog/internal/metadata"
	"github.com/mrlokans/bookcatalog/internal/tasks"
)

const enrichTimeout = 2 * time.Minute

// TasksController runs metadata enrichment, through the task queue when one
// is configured and inline otherwise.
type TasksController struct {
	client   *tasks.Client
	enricher *metadata.Enricher
}

// NewTasksController creates the controller. client may be nil.
func NewTasksController(client *tasks.Client, enricher *metadata.Enricher) *TasksController {
	return &TasksController{client: client, enricher: enricher}
}

// TaskResponse acknowledges an enqueued task.
type TaskResponse struct {
	TaskID  string `json:"task_id"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// EnrichBook handles POST /api/books/:id/enrich
func (tc *TasksController) EnrichBook(c *gin.Context) {
	sess := currentSession(c)
	bookID := c.Param("id")

	if _, err := sess.Books.Get(bookID); err != nil {
		respondAppError(c, err, "enrich book")
		return
	}

	if tc.client != nil {
		tc.enqueue(c, tasks.EnrichBookTask{UserID: sess.User.ID, BookID: bookID}, "enrich_book")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), enrichTimeout)
	defer cancel()

	result, err := tc.enricher.EnrichBook(ctx, sess.Books, bookID)
	if err != nil {
		respondAppError(c, err, "enrich book")
		return
	}
	c.JSON(http.StatusOK, result)
}

// EnrichAll handles POST /api/books/enrich-all
func (tc *TasksController) EnrichAll(c *gin.Context) {
	sess := currentSession(c)

	if tc.client != nil {
		tc.enqueue(c, tasks.EnrichAllBooksTask{UserID: sess.User.ID}, "enrich_all_books")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), enrichTimeout)
	defer cancel()

	result, err := tc.enricher.EnrichAllMissing(ctx, sess.Books)
	if err != nil {
		respondAppError(c, err, "enrich all books")
		return
	}
	c.JSON(http.StatusOK, result)
}

func (tc *TasksController) enqueue(c *gin.Context, task backlite.Task, taskType string) {
	ids, err := tc.client.Add(task).Ctx(c.Request.Context()).Save()
	if err != nil {
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}
	respondAccepted(c, TaskResponse{TaskID: ids[0], Type: taskType, Message: "task enqueued"})
}

// GetTaskStatus handles GET /api/tasks/:id
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	if tc.client == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "task queue is disabled", Code: "NOT_FOUND"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.client.Status(ctx, c.Param("id"))
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     c.Param("id"),
		"status": taskStatusToString(status),
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
