// Package syncer decides, per entity kind, whether the local store or the
// remote sheet is authoritative, and falls back to local data when the
// remote store fails.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mrlokans/bookcatalog/internal/apperr"
)

// Remote is the sheet of one entity kind, satisfied by sheets.Table.
type Remote interface {
	ReadAll(ctx context.Context) ([]string, [][]string, error)
	AppendRow(ctx context.Context, row []string) error
	Upsert(ctx context.Context, userID, key string, row []string) (bool, error)
	Remove(ctx context.Context, userID, key string) (bool, error)
}

// Coordinator syncs one kind's collection for one user.
//
// Local writes are synchronous and always happen. Remote mutations are
// best effort, never retried, and at most one is in flight at a time.
// Once the remote credential is lost the coordinator stays LocalOnly.
type Coordinator[T any] struct {
	codec  Codec[T]
	local  Local[T]
	remote Remote
	userID string
	logger *slog.Logger

	mu            sync.Mutex
	state         State
	onInvalidated func()

	inflight    sync.Mutex
	invalidOnce sync.Once
}

// NewCoordinator starts RemoteBacked when remote is non-nil, LocalOnly otherwise.
func NewCoordinator[T any](codec Codec[T], local Local[T], remote Remote, userID string, logger *slog.Logger) *Coordinator[T] {
	if logger == nil {
		logger = slog.Default()
	}
	state := LocalOnly
	if remote != nil {
		state = RemoteBacked
	}
	return &Coordinator[T]{
		codec:  codec,
		local:  local,
		remote: remote,
		userID: userID,
		logger: logger.With("component", "syncer", "kind", string(codec.Kind)),
		state:  state,
	}
}

// State returns the current authority.
func (c *Coordinator[T]) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OnInvalidated registers fn to run once when the session credential is lost.
func (c *Coordinator[T]) OnInvalidated(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onInvalidated = fn
}

// Load returns the user's collection. RemoteBacked reads the sheet and
// mirrors it locally; any remote failure falls back to the local copy.
func (c *Coordinator[T]) Load(ctx context.Context) ([]T, Status) {
	plural := c.codec.Kind.Plural()

	if c.State() == LocalOnly {
		return c.local.Load(c.userID), Status{Code: StatusLocalOnly, Message: "loaded " + plural + " from local storage"}
	}

	headers, rows, err := c.remote.ReadAll(ctx)
	if err != nil {
		st := c.failure(err, "load")
		if st.Code == StatusSyncFailed {
			st = Status{Code: StatusDegraded, Message: fmt.Sprintf("remote %s unavailable, showing local copy", plural)}
		}
		return c.local.Load(c.userID), st
	}

	items := make([]T, 0, len(rows))
	for _, row := range rows {
		item, ok := c.codec.FromRow(headers, row)
		if !ok || c.codec.Owner(item) != c.userID {
			continue
		}
		items = append(items, item)
	}

	if err := c.local.Save(c.userID, items); err != nil {
		c.logger.Warn("mirror remote collection locally", "error", err)
	}

	return items, Status{Code: StatusOK, Message: fmt.Sprintf("synced %d %s", len(items), plural)}
}

// Persist writes items to the local store.
func (c *Coordinator[T]) Persist(items []T) error {
	return c.local.Save(c.userID, items)
}

// Create appends item to the remote sheet.
func (c *Coordinator[T]) Create(ctx context.Context, item T) Status {
	return c.mutate(ctx, "create", func(ctx context.Context) error {
		return c.remote.AppendRow(ctx, c.codec.ToRow(item))
	})
}

// Update overwrites item's remote row, appending it when absent.
func (c *Coordinator[T]) Update(ctx context.Context, item T) Status {
	return c.mutate(ctx, "update", func(ctx context.Context) error {
		appended, err := c.remote.Upsert(ctx, c.userID, c.codec.Key(item), c.codec.ToRow(item))
		if appended {
			c.logger.Info("remote row missing on update, appended", "key", c.codec.Key(item))
		}
		return err
	})
}

// Delete removes the remote row matching key. A missing row is not an error.
func (c *Coordinator[T]) Delete(ctx context.Context, key string) Status {
	return c.mutate(ctx, "delete", func(ctx context.Context) error {
		_, err := c.remote.Remove(ctx, c.userID, key)
		return err
	})
}

func (c *Coordinator[T]) mutate(ctx context.Context, op string, fn func(context.Context) error) Status {
	if c.State() == LocalOnly {
		return Status{Code: StatusLocalOnly, Message: "saved locally"}
	}

	if !c.inflight.TryLock() {
		return Status{Code: StatusSyncInProgress, Message: "another change is still being synced, saved locally only"}
	}
	defer c.inflight.Unlock()

	if err := fn(ctx); err != nil {
		return c.failure(err, op)
	}

	c.logger.Debug("remote "+op+" synced", "user_id", c.userID)
	return Status{Code: StatusOK, Message: "synced"}
}

func (c *Coordinator[T]) failure(err error, op string) Status {
	if errors.Is(err, apperr.ErrSessionInvalidated) {
		c.logger.Warn("remote credential lost, switching to local only", "op", op, "error", err)
		c.invalidate()
		return Status{Code: StatusSessionInvalidated, Message: "Google session expired, sign in again to sync"}
	}

	c.logger.Warn("remote "+op+" failed", "error", err)
	return Status{Code: StatusSyncFailed, Message: "saved locally, remote sync failed"}
}

func (c *Coordinator[T]) invalidate() {
	c.mu.Lock()
	c.state = LocalOnly
	hook := c.onInvalidated
	c.mu.Unlock()

	if hook != nil {
		c.invalidOnce.Do(hook)
	}
}
