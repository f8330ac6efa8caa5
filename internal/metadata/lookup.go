package metadata

import (
	"context"
	"errors"
	"log/slog"
)

// Outcome is the result of a lookup. Failures never surface as errors:
// the caller falls back to manual entry.
type Outcome struct {
	Found    bool          `json:"found"`
	Source   string        `json:"source,omitempty"`
	Metadata *BookMetadata `json:"metadata,omitempty"`
	Message  string        `json:"message"`
}

// Lookup asks each source in turn; the first match wins.
type Lookup struct {
	sources []Source
	logger  *slog.Logger
}

func NewLookup(logger *slog.Logger, sources ...Source) *Lookup {
	if logger == nil {
		logger = slog.Default()
	}
	return &Lookup{sources: sources, logger: logger.With("component", "metadata")}
}

// Default chains OpenLibrary then Google Books.
func Default(logger *slog.Logger, opts ...ClientOption) *Lookup {
	return NewLookup(logger, NewOpenLibraryClient(opts...), NewGoogleBooksClient(opts...))
}

func (l *Lookup) Lookup(ctx context.Context, code string) Outcome {
	code = normalizeCode(code)
	if code == "" {
		return Outcome{Message: "not found"}
	}

	for _, src := range l.sources {
		m, err := src.Lookup(ctx, code)
		switch {
		case err == nil && m != nil:
			l.logger.Debug("metadata found", "source", src.Name(), "code", code)
			return Outcome{Found: true, Source: src.Name(), Metadata: m, Message: "found on " + src.Name()}
		case err == nil, errors.Is(err, ErrNoMatch):
			l.logger.Debug("no match", "source", src.Name(), "code", code)
		default:
			l.logger.Warn("metadata source failed", "source", src.Name(), "code", code, "error", err)
		}
		if ctx.Err() != nil {
			break
		}
	}

	return Outcome{Message: "not found"}
}
