// Package writer upserts built points into an existing collection.
package writer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ragingest/internal/domain"
	"ragingest/internal/logging"
)

// Options control how points are written.
type Options struct {
	// WaitForCompletion asks the store to reply only once the write is applied.
	WaitForCompletion bool
	// FailOnMissingCollection turns the missing-collection skip into
	// domain.ErrCollectionMissing.
	FailOnMissingCollection bool
}

// DefaultOptions waits for completion and skips missing collections.
func DefaultOptions() Options {
	return Options{WaitForCompletion: true}
}

// Writer sends one batched upsert per call.
type Writer struct {
	store  domain.VectorStore
	opts   Options
	logger *slog.Logger
}

// New creates a writer for store. A nil logger discards output; callers
// scope logger with the collection and run attributes.
func New(store domain.VectorStore, opts Options, logger *slog.Logger) *Writer {
	return &Writer{store: store, opts: opts, logger: logging.OrNoop(logger)}
}

// Write checks that collection exists and upserts all points in one request.
//
// A missing collection is reported as domain.OutcomeCollectionMissing with
// a nil error and no store mutation, unless FailOnMissingCollection is set.
// Transport failures wrap domain.ErrWrite and are not retried.
func (w *Writer) Write(ctx context.Context, collection string, points []domain.Point) (domain.WriteResult, error) {
	start := time.Now()
	exists, err := w.store.CollectionExists(ctx, collection)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: checking %q: %w", domain.ErrWrite, collection, err)
	}
	if !exists {
		w.logger.Warn("collection does not exist, skipping write", "points", len(points))
		res := domain.WriteResult{Outcome: domain.OutcomeCollectionMissing, Duration: time.Since(start)}
		if w.opts.FailOnMissingCollection {
			return res, fmt.Errorf("%w: %q", domain.ErrCollectionMissing, collection)
		}
		return res, nil
	}

	up, err := w.store.Upsert(ctx, collection, points, w.opts.WaitForCompletion)
	if err != nil {
		return domain.WriteResult{}, fmt.Errorf("%w: upserting %d points into %q: %w", domain.ErrWrite, len(points), collection, err)
	}
	w.logger.Debug("upsert finished", "points", len(points), "status", up.Status)
	return domain.WriteResult{
		Outcome:  domain.OutcomeWritten,
		Status:   up.Status,
		Points:   len(points),
		Duration: time.Since(start),
	}, nil
}
