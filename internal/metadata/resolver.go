package metadata

import (
	"context"
	"log/slog"
	"time"

	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/errors"
)

const baseBackoff = 500 * time.Millisecond

// Resolver runs the source cascade. Sources are tried in registration
// order; the first classifiable result wins and later sources are never
// consulted for that unit.
type Resolver struct {
	sources    []Source
	maxRetries int
	logger     *slog.Logger

	// sleep is replaceable so tests do not wait out real backoff.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewResolver creates a resolver over the given sources. maxRetries bounds
// attempts per source for transient failures; 0 means a single attempt.
func NewResolver(sources []Source, maxRetries int, logger *slog.Logger) *Resolver {
	return &Resolver{
		sources:    sources,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepCtx,
	}
}

// Resolve runs the cascade for one query. Returns the winning metadata and
// the name of the source that produced it.
//
// Failure routing per source: transient errors are retried with
// exponential backoff up to maxRetries, then the cascade moves on;
// not-found and validation failures move on immediately. When every
// source misses, the unit is unresolvable and a classification error is
// returned so the pipeline routes it to unclassified.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*domain.BookMetadata, string, error) {
	if q.Empty() {
		return nil, "", errors.Classification("nothing to search with")
	}

	for _, src := range r.sources {
		meta, err := r.lookupWithRetry(ctx, src, q)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			if errors.IsNotFound(err) || errors.IsTransient(err) {
				r.logger.Debug("source missed, cascading",
					"source", src.Name(),
					"term", q.Term(),
					"code", errors.CodeOf(err),
				)
				continue
			}
			return nil, "", err
		}

		if meta == nil || !meta.Classifiable() {
			r.logger.Warn("source returned incomplete metadata, cascading",
				"source", src.Name(), "term", q.Term())
			continue
		}

		r.logger.Info("metadata resolved",
			"source", src.Name(),
			"title", meta.Title,
			"author", meta.Author(),
		)
		return meta, src.Name(), nil
	}

	return nil, "", errors.Classificationf("no source could identify %q", q.Term())
}

func (r *Resolver) lookupWithRetry(ctx context.Context, src Source, q Query) (*domain.BookMetadata, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		meta, err := src.Lookup(ctx, q)
		if err == nil {
			return meta, nil
		}
		lastErr = err

		if !errors.IsTransient(err) || attempt >= r.maxRetries {
			return nil, lastErr
		}

		delay := baseBackoff << attempt
		r.logger.Debug("transient source failure, backing off",
			"source", src.Name(),
			"attempt", attempt+1,
			"delay", delay,
			"error", err,
		)
		if err := r.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
