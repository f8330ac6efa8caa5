package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookcatalog/internal/metadata"
)

// EnrichAllBooksTask enriches every incomplete book of one user.
type EnrichAllBooksTask struct {
	UserID string `json:"user_id"`
}

// Config returns the queue configuration for bulk enrichment tasks.
func (t EnrichAllBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_all_books",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

func EnrichAllBooksProcessor(enricher *metadata.Enricher, resolve BooksResolver, logger *slog.Logger) backlite.QueueProcessor[EnrichAllBooksTask] {
	return func(ctx context.Context, task EnrichAllBooksTask) error {
		if enricher == nil || resolve == nil {
			return fmt.Errorf("enricher not configured")
		}

		books, err := resolve(task.UserID)
		if err != nil {
			logger.Info("owner no longer signed in, dropping bulk enrichment", "user_id", task.UserID)
			return nil
		}

		result, err := enricher.EnrichAllMissing(ctx, books)
		if err != nil {
			return fmt.Errorf("enrich all books: %w", err)
		}

		logger.Info("bulk enrichment complete", "user_id", task.UserID, "total", result.TotalBooks,
			"enriched", result.Enriched, "skipped", result.Skipped, "failed", result.Failed)
		return nil
	}
}

func NewEnrichAllBooksQueue(enricher *metadata.Enricher, resolve BooksResolver, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(EnrichAllBooksProcessor(enricher, resolve, orDefault(logger)))
}
