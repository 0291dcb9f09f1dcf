package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

// ErrFetchCancelled is returned to callers joined on a fetch that was
// cancelled before it settled. The cancelled fetch's result is discarded and
// never written into the store.
var ErrFetchCancelled = errors.New("fetch cancelled")

// FetchFn loads fresh data for a key from the source of truth.
type FetchFn func(ctx context.Context) (any, error)

// fetcherRecord remembers the last fetcher used for a key so the invalidation
// scheduler can trigger refetches without the original caller around.
type fetcherRecord struct {
	key QueryKey
	fn  FetchFn
}

// flight is the bookkeeping for one in-flight fetch. Concurrent callers for
// the same key join the flight instead of issuing a second network call.
type flight struct {
	key       QueryKey
	cancel    context.CancelFunc
	done      chan struct{}
	data      any
	err       error
	discarded bool
}

// Coordinator runs and cancels fetches per key. It guarantees at most one
// in-flight network fetch per key at any instant and that a cancelled fetch's
// eventual result is never written into the Store.
type Coordinator struct {
	store        *Store
	fetchTimeout time.Duration

	mu       sync.Mutex
	inflight map[string]*flight

	fetchers *xsync.MapOf[string, fetcherRecord]
	logger   zerolog.Logger
	metrics  *Metrics
}

// NewCoordinator creates a fetch coordinator bound to a store. Metrics may be
// nil.
func NewCoordinator(store *Store, cfg Config, logger zerolog.Logger, metrics *Metrics) *Coordinator {
	return &Coordinator{
		store:        store,
		fetchTimeout: cfg.FetchTimeout,
		inflight:     make(map[string]*flight),
		fetchers:     xsync.NewMapOf[string, fetcherRecord](),
		logger:       logger.With().Str("component", "fetch_coordinator").Logger(),
		metrics:      metrics,
	}
}

// EnsureFresh returns the key's data, fetching it when the entry is empty,
// stale, or errored. A fetch already in flight for the key is joined rather
// than duplicated. Fresh data is served directly unless the context carries a
// force-refresh flag.
//
// On fetch failure any previously cached data is retained and the entry
// status becomes Error (stale-while-revalidate); the error is still returned
// to the caller.
func (c *Coordinator) EnsureFresh(ctx context.Context, key QueryKey, fn FetchFn) (any, error) {
	canonical := c.store.Canonical(key)
	c.fetchers.Store(canonical, fetcherRecord{key: key, fn: fn})

	c.mu.Lock()
	if fl := c.inflight[canonical]; fl != nil {
		c.mu.Unlock()
		c.metrics.fetchDeduped()
		return c.join(ctx, fl)
	}

	if !forceRefreshFromContext(ctx) {
		entries := c.store.Read(ExactKey(key))
		if len(entries) == 1 && entries[0].Status == StatusSuccess && entries[0].HasData {
			c.mu.Unlock()
			c.metrics.cacheHit()
			return entries[0].Data, nil
		}
	}

	fctx := ctx
	var timeoutCancel context.CancelFunc
	if c.fetchTimeout > 0 {
		fctx, timeoutCancel = context.WithTimeout(fctx, c.fetchTimeout)
	}
	fctx, cancel := context.WithCancel(fctx)

	fl := &flight{
		key:    key,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	c.inflight[canonical] = fl
	c.mu.Unlock()

	c.metrics.cacheMiss()
	c.store.beginFetch(key)

	data, err := fn(fctx)
	cancel()
	if timeoutCancel != nil {
		timeoutCancel()
	}

	c.mu.Lock()
	discarded := fl.discarded
	if !discarded {
		delete(c.inflight, canonical)
		fl.data = data
		fl.err = err
	} else {
		fl.err = ErrFetchCancelled
	}
	c.mu.Unlock()

	if discarded {
		c.metrics.fetchDiscarded()
		c.logger.Debug().Str("key", canonical).Msg("discarding cancelled fetch result")
		close(fl.done)
		return nil, ErrFetchCancelled
	}

	if err != nil {
		c.metrics.fetchFailed()
		c.logger.Warn().Err(err).Str("key", canonical).Msg("fetch failed")
	}
	c.store.completeFetch(key, data, err)
	close(fl.done)
	return data, err
}

// join blocks until the flight settles or the waiting caller's context ends.
func (c *Coordinator) join(ctx context.Context, fl *flight) (any, error) {
	select {
	case <-fl.done:
		return fl.data, fl.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Cancel aborts an in-flight fetch for the key, if any. Cancellation is
// advisory at the transport level, but the flight is marked discarded first:
// whenever the underlying call resolves, its result is dropped instead of
// being written into the store. Used to close the window in which a fetch
// issued before a mutation could clobber a just-applied optimistic write.
func (c *Coordinator) Cancel(key QueryKey) {
	canonical := c.store.Canonical(key)

	c.mu.Lock()
	fl := c.inflight[canonical]
	if fl == nil {
		c.mu.Unlock()
		return
	}
	fl.discarded = true
	delete(c.inflight, canonical)
	c.mu.Unlock()

	fl.cancel()
	c.store.fetchCancelled(key)
	c.metrics.fetchCancelled()
	c.logger.Debug().Str("key", canonical).Msg("fetch cancelled")
}

// Refetch re-runs the last fetcher recorded for the key, if one exists. The
// invalidation scheduler uses it to eagerly repopulate subscribed entries
// that hold no data after a commit.
func (c *Coordinator) Refetch(ctx context.Context, key QueryKey) error {
	canonical := c.store.Canonical(key)
	rec, ok := c.fetchers.Load(canonical)
	if !ok {
		return nil
	}
	_, err := c.EnsureFresh(WithForceRefresh(ctx), rec.key, rec.fn)
	return err
}

// Inflight reports whether a fetch for the key is currently running.
func (c *Coordinator) Inflight(key QueryKey) bool {
	canonical := c.store.Canonical(key)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[canonical] != nil
}

// EnsureFresh is the type-safe wrapper over Coordinator.EnsureFresh for
// callers that know the entry's data type.
func EnsureFresh[T any](ctx context.Context, c *Coordinator, key QueryKey, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := c.EnsureFresh(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
