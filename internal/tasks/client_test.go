package tasks

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookcatalog/internal/entities"
	"github.com/mrlokans/bookcatalog/internal/metadata"
)

func setupClient(t *testing.T) (*Client, *singleBook) {
	t.Helper()

	client, err := NewClient(filepath.Join(t.TempDir(), "catalog.db"), Config{Workers: 1, ReleaseAfter: time.Minute, CleanupInterval: time.Hour}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	books := &singleBook{book: entities.Book{ID: "bk-1", Title: "Dune", ISBN: "9780441172719"}}
	resolve := func(string) (metadata.BookLister, error) { return books, nil }
	enricher := metadata.NewEnricher(metadata.NewLookup(nil, stubSource{}))
	client.Register(
		NewEnrichBookQueue(enricher, resolve, nil),
		NewEnrichAllBooksQueue(enricher, resolve, nil),
	)
	return client, books
}

func TestNewClient_UsesSiblingDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	client, err := NewClient(dbPath, DefaultConfig(), nil)
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(TasksDBPath(dbPath))
	assert.NoError(t, err)
	_, err = os.Stat(dbPath)
	assert.True(t, os.IsNotExist(err), "the catalog database is left alone")
}

func TestEnqueuedEnrichmentIsPendingUntilStarted(t *testing.T) {
	client, books := setupClient(t)

	ids, err := client.Add(EnrichBookTask{UserID: "local_1", BookID: "bk-1"}).Save()
	require.NoError(t, err)
	require.Len(t, ids, 1)

	status, err := client.Status(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, backlite.TaskStatusPending, status)
	assert.Empty(t, books.current().Author)
}

func TestEnrichBookQueue_RunsTask(t *testing.T) {
	client, books := setupClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	ids, err := client.Add(EnrichBookTask{UserID: "local_1", BookID: "bk-1"}).Save()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		status, err := client.Status(ctx, ids[0])
		return err == nil && status == backlite.TaskStatusSuccess
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "Frank Herbert", books.current().Author)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	assert.True(t, client.Stop(stopCtx), "workers drain before shutdown")
}

func TestEnrichAllBooksQueue_RunsTask(t *testing.T) {
	client, books := setupClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Start(ctx)

	ids, err := client.Add(EnrichAllBooksTask{UserID: "local_1"}).Save()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return books.current().Year == "1965"
	}, 5*time.Second, 20*time.Millisecond)
	status, err := client.Status(ctx, ids[0])
	require.NoError(t, err)
	assert.NotEqual(t, backlite.TaskStatusFailure, status)
}

func TestEnrichBookTaskConfig(t *testing.T) {
	cfg := EnrichBookTask{UserID: "local_1", BookID: "bk-1"}.Config()

	assert.Equal(t, "enrich_book", cfg.Name)
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.Backoff)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	require.NotNil(t, cfg.Retention)
	assert.Equal(t, 24*time.Hour, cfg.Retention.Duration)
}

func TestEnrichAllBooksTaskConfig(t *testing.T) {
	cfg := EnrichAllBooksTask{UserID: "local_1"}.Config()

	assert.Equal(t, "enrich_all_books", cfg.Name)
	assert.Equal(t, 1, cfg.MaxAttempts, "a full pass is never retried")
	assert.Equal(t, 60*time.Minute, cfg.Timeout)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 15*time.Minute, cfg.ReleaseAfter)
	assert.Equal(t, time.Hour, cfg.CleanupInterval)
}

func TestTasksDBPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "catalog-tasks.db"), TasksDBPath(filepath.Join("data", "catalog.db")))
}
