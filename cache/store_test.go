package cache_test

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Florvin-04/product-catalog-cache/cache"
)

func newTestStore(t *testing.T, cfg cache.Config) *cache.Store {
	t.Helper()
	store, err := cache.NewStore(cfg, nil, zerolog.Nop(), nil)
	require.NoError(t, err)
	return store
}

func seedList(t *testing.T, store *cache.Store, key cache.QueryKey, items []string) {
	t.Helper()
	changed := store.Write(cache.ExactKey(key), func(any, bool) (any, bool) {
		return items, true
	})
	require.Len(t, changed, 1)
}

func TestStore_SubscribeReturnsEmptyEntry(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	sub, entry := store.Subscribe(key, nil)
	defer sub.Close()

	assert.False(t, entry.HasData)
	assert.Equal(t, cache.StatusIdle, entry.Status)
	assert.Equal(t, 1, entry.Subscribers)
	assert.True(t, entry.Key.Equal(key))
}

func TestStore_WriteNotifiesSubscribers(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	var seen []cache.QueryEntry
	sub, _ := store.Subscribe(key, func(e cache.QueryEntry) {
		seen = append(seen, e)
	})
	defer sub.Close()

	seedList(t, store, key, []string{"a", "b"})

	require.Len(t, seen, 1)
	assert.Equal(t, []string{"a", "b"}, seen[0].Data)
	assert.Equal(t, cache.StatusSuccess, seen[0].Status)
	assert.False(t, seen[0].LastUpdated.IsZero())
}

func TestStore_WriteOnlyMatchingKeys(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	products := cache.NewKey("products", nil)
	categories := cache.NewKey("categories", nil)

	subP, _ := store.Subscribe(products, nil)
	defer subP.Close()
	subC, _ := store.Subscribe(categories, nil)
	defer subC.Close()

	seedList(t, store, products, []string{"p"})

	entries := store.Read(cache.ExactKey(categories))
	require.Len(t, entries, 1)
	assert.False(t, entries[0].HasData)
}

func TestStore_WriteDeclinedUpdaterIsNoop(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	notified := 0
	sub, _ := store.Subscribe(key, func(cache.QueryEntry) { notified++ })
	defer sub.Close()

	changed := store.Write(cache.ExactKey(key), func(data any, ok bool) (any, bool) {
		assert.False(t, ok)
		assert.Nil(t, data)
		return nil, false
	})

	assert.Empty(t, changed)
	assert.Zero(t, notified)

	entries := store.Read(cache.ExactKey(key))
	require.Len(t, entries, 1)
	assert.False(t, entries[0].HasData)
	assert.Equal(t, cache.StatusIdle, entries[0].Status)
}

func TestStore_MarkStaleKeepsData(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	notified := 0
	sub, _ := store.Subscribe(key, func(cache.QueryEntry) { notified++ })
	defer sub.Close()
	seedList(t, store, key, []string{"a"})

	store.MarkStale(cache.ByResource("products"))

	entries := store.Read(cache.ExactKey(key))
	require.Len(t, entries, 1)
	assert.Equal(t, cache.StatusStale, entries[0].Status)
	assert.Equal(t, []string{"a"}, entries[0].Data)
	assert.Equal(t, 2, notified)

	// Already stale entries are not re-notified.
	store.MarkStale(cache.ByResource("products"))
	assert.Equal(t, 2, notified)
}

func TestStore_BatchCoalescesNotifications(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	var seen []cache.QueryEntry
	sub, _ := store.Subscribe(key, func(e cache.QueryEntry) {
		seen = append(seen, e)
	})
	defer sub.Close()

	store.Batch(func() {
		seedList(t, store, key, []string{"v1"})
		seedList(t, store, key, []string{"v2"})
		store.MarkStale(cache.ExactKey(key))
	})

	// Three changes inside the batch, one notification with the final view.
	require.Len(t, seen, 1)
	assert.Equal(t, []string{"v2"}, seen[0].Data)
	assert.Equal(t, cache.StatusStale, seen[0].Status)
}

func TestStore_BatchFlushesAfterPanickingFn(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	var seen int
	sub, _ := store.Subscribe(key, func(cache.QueryEntry) { seen++ })
	defer sub.Close()

	require.Panics(t, func() {
		store.Batch(func() {
			seedList(t, store, key, []string{"a"})
			panic("faulty updater")
		})
	})

	// The write before the panic still flushes once during unwinding.
	assert.Equal(t, 1, seen)

	// Batch depth is balanced again, so later writes keep notifying.
	seedList(t, store, key, []string{"a", "b"})
	assert.Equal(t, 2, seen)
}

func TestStore_SnapshotRestoreRoundTrip(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	sub, _ := store.Subscribe(key, nil)
	defer sub.Close()
	seedList(t, store, key, []string{"a", "b", "c"})

	snaps := store.Snapshot([]cache.QueryKey{key})
	require.Len(t, snaps, 1)

	seedList(t, store, key, []string{"mutated"})

	store.Restore(snaps)

	entries := store.Read(cache.ExactKey(key))
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"a", "b", "c"}, entries[0].Data)
	assert.Equal(t, cache.StatusSuccess, entries[0].Status)
}

func TestStore_SnapshotSkipsUnknownKeys(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())

	snaps := store.Snapshot([]cache.QueryKey{cache.NewKey("ghosts", nil)})
	assert.Empty(t, snaps)
}

func TestStore_ResubscribeWithinGraceResurrectsData(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	sub, _ := store.Subscribe(key, nil)
	seedList(t, store, key, []string{"a"})
	sub.Close()

	// Entry is retired but the data is parked for the grace period.
	assert.Empty(t, store.Read(cache.ExactKey(key)))

	sub2, entry := store.Subscribe(key, nil)
	defer sub2.Close()

	assert.True(t, entry.HasData)
	assert.Equal(t, []string{"a"}, entry.Data)
	assert.Equal(t, cache.StatusStale, entry.Status)
}

func TestStore_GracePeriodExpiryDropsData(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.GracePeriod = 20 * time.Millisecond
	store := newTestStore(t, cfg)
	key := cache.NewKey("products", nil)

	sub, _ := store.Subscribe(key, nil)
	seedList(t, store, key, []string{"a"})
	sub.Close()

	time.Sleep(150 * time.Millisecond)

	sub2, entry := store.Subscribe(key, nil)
	defer sub2.Close()

	assert.False(t, entry.HasData)
	assert.Equal(t, cache.StatusIdle, entry.Status)
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	store := newTestStore(t, cache.DefaultConfig())
	key := cache.NewKey("products", nil)

	first, _ := store.Subscribe(key, nil)
	second, _ := store.Subscribe(key, nil)

	first.Close()
	first.Close()

	entries := store.Read(cache.ExactKey(key))
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Subscribers)

	second.Close()
	assert.Empty(t, store.Read(cache.ExactKey(key)))
}

func TestStore_RejectsInvalidConfig(t *testing.T) {
	_, err := cache.NewStore(cache.Config{}, nil, zerolog.Nop(), nil)
	require.Error(t, err)

	var cfgErr *cache.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "GracePeriod", cfgErr.Field)
}
