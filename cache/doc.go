// Package cache implements the query cache core: keys, the entry store, and
// the fetch coordinator.
//
// # Overview
//
// A QueryKey names a cacheable read (resource plus filter params); the Store
// maps keys to entries and per-key subscriber bookkeeping; the Coordinator
// populates entries, deduplicating concurrent fetches for the same key and
// discarding results of cancelled fetches.
//
// Views subscribe to a key and are notified synchronously on every data or
// status change. Writes inside a Store.Batch are coalesced into a single
// notification per key, which is what the mutation executor relies on to
// settle without flicker.
//
// # Basic Usage
//
//	store, err := cache.NewStore(cache.DefaultConfig(), nil, logger, nil)
//	fetches := cache.NewCoordinator(store, cache.DefaultConfig(), logger, nil)
//
//	key := cache.NewKey("products", map[string]any{"category_id": "c2"})
//	sub, entry := store.Subscribe(key, func(e cache.QueryEntry) { render(e) })
//	defer sub.Close()
//
//	items, err := cache.EnsureFresh(ctx, fetches, key, func(ctx context.Context) ([]Product, error) {
//		return api.ListProducts(ctx, "c2")
//	})
//
// # Staleness and entry lifetime
//
// A failed fetch keeps previously cached data and surfaces the error through
// the entry status (stale-while-revalidate). MarkStale flags entries for
// refresh without clearing data. When a key loses its last subscriber the
// entry is parked for Config.GracePeriod and resurrected if resubscribed in
// time.
package cache
