// Package catalog holds the signed-in user's in-memory collections and the
// commands that change them. Every command writes the local store before
// returning and then attempts the remote mutation through a sync
// coordinator; remote outcomes come back as a Result, never as an error.
package catalog

import (
	"time"

	"github.com/mrlokans/bookcatalog/internal/syncer"
)

// Result is the sync outcome of a command.
type Result = syncer.Status

// Owner stamps new records.
type Owner struct {
	ID   string
	Name string
}

type options struct {
	now func() time.Time
}

// Option configures Books and Taxonomies.
type Option func(*options)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func noop(message string) Result {
	return Result{Code: syncer.StatusOK, Message: message}
}
