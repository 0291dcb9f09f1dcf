package mutation

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/Florvin-04/product-catalog-cache/cache"
)

// Scheduler decides which cached keys go stale after a committed mutation and
// triggers refetches only where no data exists to serve meanwhile.
type Scheduler struct {
	store   *cache.Store
	fetches *cache.Coordinator
	logger  zerolog.Logger
}

// NewScheduler creates an invalidation scheduler bound to a store and fetch
// coordinator.
func NewScheduler(store *cache.Store, fetches *cache.Coordinator, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		fetches: fetches,
		logger:  logger.With().Str("component", "invalidation_scheduler").Logger(),
	}
}

// AfterCommit invalidates the cached keys of a resource after a mutation
// committed. Keys in patched were just overwritten with server truth and are
// skipped. Of the remaining subscribed keys, those holding data are only
// marked stale (refetch deferred to the next fetch trigger); those with no
// data get an eager background refetch. The distinction is load shedding: an
// admin view with many open filtered queries must not refetch them all on
// every mutation.
func (s *Scheduler) AfterCommit(ctx context.Context, resource string, patched []cache.QueryKey) {
	skip := make(map[string]struct{}, len(patched))
	for _, key := range patched {
		skip[s.store.Canonical(key)] = struct{}{}
	}

	var stale, refetch []cache.QueryKey
	for _, entry := range s.store.Read(cache.ByResource(resource)) {
		if entry.Subscribers == 0 {
			continue
		}
		if _, ok := skip[s.store.Canonical(entry.Key)]; ok {
			continue
		}
		if entry.HasData {
			stale = append(stale, entry.Key)
		} else {
			refetch = append(refetch, entry.Key)
		}
	}

	if len(stale) > 0 {
		s.store.MarkStale(keySet(s.store, stale))
	}

	s.logger.Debug().
		Str("resource", resource).
		Int("skipped", len(patched)).
		Int("marked_stale", len(stale)).
		Int("refetching", len(refetch)).
		Msg("invalidation after commit")

	// Refetches must outlive the mutation's own context: the commit is
	// settled, only the repopulation is pending.
	refetchCtx := context.WithoutCancel(ctx)
	for _, key := range refetch {
		go func(key cache.QueryKey) {
			if err := s.fetches.Refetch(refetchCtx, key); err != nil {
				s.logger.Warn().Err(err).Str("key", s.store.Canonical(key)).Msg("post-commit refetch failed")
			}
		}(key)
	}
}

// keySet builds a predicate matching exactly the given keys.
func keySet(store *cache.Store, keys []cache.QueryKey) cache.KeyPredicate {
	set := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		set[store.Canonical(key)] = struct{}{}
	}
	return func(k cache.QueryKey) bool {
		_, ok := set[store.Canonical(k)]
		return ok
	}
}
