package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookcatalog/internal/apperr"
	"github.com/mrlokans/bookcatalog/internal/metadata"
)

// BooksResolver returns the book collection of userID while that user is
// signed in, and apperr.ErrNotSignedIn otherwise.
type BooksResolver func(userID string) (metadata.BookLister, error)

// EnrichBookTask fills missing metadata of a single book.
type EnrichBookTask struct {
	UserID string `json:"user_id"`
	BookID string `json:"book_id"`
}

// Config returns the queue configuration for book enrichment tasks.
func (t EnrichBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// EnrichBookProcessor enriches the book if its owner is still signed in.
// Tasks whose owner signed out, or whose book is gone, are dropped.
func EnrichBookProcessor(enricher *metadata.Enricher, resolve BooksResolver, logger *slog.Logger) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil || resolve == nil {
			return fmt.Errorf("enricher not configured")
		}

		books, err := resolve(task.UserID)
		if err != nil {
			logger.Info("owner no longer signed in, dropping enrichment", "user_id", task.UserID, "book_id", task.BookID)
			return nil
		}

		result, err := enricher.EnrichBook(ctx, books, task.BookID)
		switch {
		case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrValidation):
			logger.Info("book not enriched", "book_id", task.BookID, "reason", err)
			return nil
		case err != nil:
			return fmt.Errorf("enrich book %s: %w", task.BookID, err)
		}

		if len(result.FieldsUpdated) > 0 {
			logger.Info("book enriched", "book_id", task.BookID, "title", result.Book.Title,
				"fields", result.FieldsUpdated, "source", result.Source, "sync", result.Sync.Code)
		} else {
			logger.Debug("book already complete", "book_id", task.BookID, "title", result.Book.Title)
		}
		return nil
	}
}

// NewEnrichBookQueue creates a backlite queue for book enrichment tasks.
func NewEnrichBookQueue(enricher *metadata.Enricher, resolve BooksResolver, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher, resolve, orDefault(logger)))
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default().With("component", "tasks")
	}
	return l.With("component", "tasks")
}
