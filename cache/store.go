package cache

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
)

// entryState is the mutable bookkeeping for one cached key. It is owned
// exclusively by the Store and never escapes; readers get QueryEntry views.
type entryState struct {
	key         QueryKey
	data        any
	hasData     bool
	status      Status
	err         error
	lastUpdated time.Time
	subscribers map[int]SubscriberFunc
}

// retiredEntry parks the data of a key whose last subscriber left. If the key
// is resubscribed within the grace period the data is resurrected; otherwise
// the expirable LRU drops it.
type retiredEntry struct {
	key         QueryKey
	data        any
	hasData     bool
	lastUpdated time.Time
}

// notification pairs a subscriber callback with the entry view to deliver.
// Dispatch always happens outside the store lock so callbacks may re-enter.
type notification struct {
	fn    SubscriberFunc
	entry QueryEntry
}

// Store is the in-memory mapping from QueryKey to cached result plus per-key
// subscriber bookkeeping. It is the only mutable shared state of the engine;
// every component mutates cached data through its Write/MarkStale contract.
type Store struct {
	mu         sync.Mutex
	serializer KeySerializer
	entries    map[string]*entryState
	graveyard  *expirable.LRU[string, retiredEntry]
	nextSubID  int
	batchDepth int
	pending    map[string]struct{}
	logger     zerolog.Logger
	metrics    *Metrics
}

// NewStore creates a Store with the given configuration. A nil serializer
// falls back to the default reflection-based one; metrics may be nil.
func NewStore(cfg Config, serializer KeySerializer, logger zerolog.Logger, metrics *Metrics) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if serializer == nil {
		serializer = NewDefaultKeySerializer()
	}

	return &Store{
		serializer: serializer,
		entries:    make(map[string]*entryState),
		graveyard:  expirable.NewLRU[string, retiredEntry](cfg.RetiredCapacity, nil, cfg.GracePeriod),
		pending:    make(map[string]struct{}),
		logger:     logger.With().Str("component", "cache_store").Logger(),
		metrics:    metrics,
	}, nil
}

// Subscription is the handle returned by Subscribe. Closing it decrements the
// key's subscriber count; when the count reaches zero the entry is parked for
// the grace period and then dropped.
type Subscription struct {
	store     *Store
	canonical string
	key       QueryKey
	id        int
	once      sync.Once
}

// Key returns the QueryKey this subscription is registered for.
func (s *Subscription) Key() QueryKey { return s.key }

// Close unregisters the subscriber. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.store.unsubscribe(s.canonical, s.id)
	})
}

// Canonical returns the canonical string form of a key, the value the Store
// indexes by.
func (s *Store) Canonical(key QueryKey) string {
	return s.serializer.SerializeKey(key)
}

// Subscribe registers interest in a key and returns the current entry view,
// which may not hold data yet. The first subscription creates the entry; a
// resubscription within the grace period resurrects recently retired data.
func (s *Store) Subscribe(key QueryKey, fn SubscriberFunc) (*Subscription, QueryEntry) {
	canonical := s.Canonical(key)

	s.mu.Lock()
	st := s.entries[canonical]
	if st == nil {
		st = &entryState{
			key:         key,
			status:      StatusIdle,
			subscribers: make(map[int]SubscriberFunc),
		}
		if parked, ok := s.graveyard.Get(canonical); ok {
			s.graveyard.Remove(canonical)
			st.data = parked.data
			st.hasData = parked.hasData
			st.lastUpdated = parked.lastUpdated
			if parked.hasData {
				st.status = StatusStale
			}
			s.metrics.entryResurrected()
		}
		s.entries[canonical] = st
	}

	s.nextSubID++
	id := s.nextSubID
	st.subscribers[id] = fn
	view := s.viewLocked(st)
	s.mu.Unlock()

	return &Subscription{store: s, canonical: canonical, key: key, id: id}, view
}

func (s *Store) unsubscribe(canonical string, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.entries[canonical]
	if st == nil {
		return
	}
	delete(st.subscribers, id)
	if len(st.subscribers) == 0 && st.status != StatusFetching {
		s.retireLocked(canonical, st)
	}
}

// retireLocked removes the entry from the live map, parking its data in the
// graveyard so a prompt resubscribe does not start cold.
func (s *Store) retireLocked(canonical string, st *entryState) {
	delete(s.entries, canonical)
	if st.hasData {
		s.graveyard.Add(canonical, retiredEntry{
			key:         st.key,
			data:        st.data,
			hasData:     true,
			lastUpdated: st.lastUpdated,
		})
	}
	s.metrics.entryRetired()
	s.logger.Debug().Str("key", canonical).Msg("entry retired")
}

// Read returns a view of every entry whose key matches the predicate, in no
// guaranteed order.
func (s *Store) Read(pred KeyPredicate) []QueryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []QueryEntry
	for _, st := range s.entries {
		if pred(st.key) {
			out = append(out, s.viewLocked(st))
		}
	}
	return out
}

// Keys returns the keys of every entry matching the predicate.
func (s *Store) Keys(pred KeyPredicate) []QueryKey {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []QueryKey
	for _, st := range s.entries {
		if pred(st.key) {
			out = append(out, st.key)
		}
	}
	return out
}

// Write applies updater to the data of every entry matching the predicate and
// synchronously notifies that key's subscribers. Entries for which the
// updater declines to produce a value are left untouched. It returns the keys
// whose data actually changed.
func (s *Store) Write(pred KeyPredicate, updater UpdaterFunc) []QueryKey {
	now := time.Now()

	s.mu.Lock()
	var changed []QueryKey
	var notifs []notification
	for canonical, st := range s.entries {
		if !pred(st.key) {
			continue
		}
		out, ok := updater(st.data, st.hasData)
		if !ok {
			continue
		}
		st.data = out
		st.hasData = true
		st.status = StatusSuccess
		st.err = nil
		st.lastUpdated = now
		changed = append(changed, st.key)
		notifs = append(notifs, s.notifyKeyLocked(canonical, st)...)
	}
	s.mu.Unlock()

	s.dispatch(notifs)
	return changed
}

// MarkStale flags every matching entry for refresh without clearing its data.
func (s *Store) MarkStale(pred KeyPredicate) {
	s.mu.Lock()
	var notifs []notification
	for canonical, st := range s.entries {
		if !pred(st.key) || st.status == StatusStale || st.status == StatusFetching {
			continue
		}
		st.status = StatusStale
		s.metrics.staleMarked()
		notifs = append(notifs, s.notifyKeyLocked(canonical, st)...)
	}
	s.mu.Unlock()

	s.dispatch(notifs)
}

// Snapshot captures the current data and status of the given keys so the
// caller can Restore them verbatim later. Keys without a live entry are
// skipped.
func (s *Store) Snapshot(keys []QueryKey) []EntrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snaps := make([]EntrySnapshot, 0, len(keys))
	for _, key := range keys {
		st := s.entries[s.serializer.SerializeKey(key)]
		if st == nil {
			continue
		}
		snaps = append(snaps, EntrySnapshot{
			Key:         st.key,
			Data:        st.data,
			HasData:     st.hasData,
			Status:      st.status,
			Err:         st.err,
			LastUpdated: st.lastUpdated,
		})
	}
	return snaps
}

// Restore writes snapshots back verbatim, notifying subscribers of each
// restored key. Entries retired since the snapshot are skipped.
func (s *Store) Restore(snaps []EntrySnapshot) {
	s.mu.Lock()
	var notifs []notification
	for _, snap := range snaps {
		canonical := s.serializer.SerializeKey(snap.Key)
		st := s.entries[canonical]
		if st == nil {
			continue
		}
		st.data = snap.Data
		st.hasData = snap.HasData
		st.status = snap.Status
		st.err = snap.Err
		st.lastUpdated = snap.LastUpdated
		notifs = append(notifs, s.notifyKeyLocked(canonical, st)...)
	}
	s.mu.Unlock()

	s.dispatch(notifs)
}

// Batch coalesces all subscriber notifications produced inside fn into a
// single notification per key, delivered when the outermost batch ends. The
// mutation executor wraps settlement writes in a batch so a commit or
// rollback touching a key several times causes one redraw, not flicker.
func (s *Store) Batch(fn func()) {
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	// Flush in a defer so a panicking updater cannot leave the depth raised,
	// which would suppress every future notification.
	defer func() {
		s.mu.Lock()
		s.batchDepth--
		var notifs []notification
		if s.batchDepth == 0 {
			for canonical := range s.pending {
				if st := s.entries[canonical]; st != nil {
					notifs = append(notifs, s.subscriberViewsLocked(canonical, st)...)
				}
				delete(s.pending, canonical)
			}
		}
		s.mu.Unlock()

		s.dispatch(notifs)
	}()

	fn()
}

// beginFetch transitions a key to Fetching, creating the entry if the fetch
// raced ahead of the first subscription. Called by the fetch coordinator.
func (s *Store) beginFetch(key QueryKey) {
	canonical := s.Canonical(key)

	s.mu.Lock()
	st := s.entries[canonical]
	if st == nil {
		st = &entryState{
			key:         key,
			status:      StatusIdle,
			subscribers: make(map[int]SubscriberFunc),
		}
		s.entries[canonical] = st
	}
	st.status = StatusFetching
	notifs := s.notifyKeyLocked(canonical, st)
	s.mu.Unlock()

	s.dispatch(notifs)
}

// completeFetch records a finished fetch. Errors keep any previously cached
// data (stale-while-revalidate). An entry that lost all subscribers while the
// fetch was in flight is retired immediately.
func (s *Store) completeFetch(key QueryKey, data any, err error) {
	canonical := s.Canonical(key)
	now := time.Now()

	s.mu.Lock()
	st := s.entries[canonical]
	if st == nil {
		s.mu.Unlock()
		return
	}
	if err != nil {
		st.status = StatusError
		st.err = err
	} else {
		st.data = data
		st.hasData = true
		st.status = StatusSuccess
		st.err = nil
		st.lastUpdated = now
	}
	var notifs []notification
	if len(st.subscribers) == 0 {
		s.retireLocked(canonical, st)
	} else {
		notifs = s.notifyKeyLocked(canonical, st)
	}
	s.mu.Unlock()

	s.dispatch(notifs)
}

// fetchCancelled reverts a Fetching entry after its flight was discarded. An
// entry that lost all subscribers during the flight is retired here, since
// the discarded flight never reaches completeFetch.
func (s *Store) fetchCancelled(key QueryKey) {
	canonical := s.Canonical(key)

	s.mu.Lock()
	st := s.entries[canonical]
	if st == nil || st.status != StatusFetching {
		s.mu.Unlock()
		return
	}
	if st.hasData {
		st.status = StatusStale
	} else {
		st.status = StatusIdle
	}
	var notifs []notification
	if len(st.subscribers) == 0 {
		s.retireLocked(canonical, st)
	} else {
		notifs = s.notifyKeyLocked(canonical, st)
	}
	s.mu.Unlock()

	s.dispatch(notifs)
}

// viewLocked builds the immutable entry view. Caller holds s.mu.
func (s *Store) viewLocked(st *entryState) QueryEntry {
	return QueryEntry{
		Key:         st.key,
		Data:        st.data,
		HasData:     st.hasData,
		Status:      st.status,
		Err:         st.err,
		LastUpdated: st.lastUpdated,
		Subscribers: len(st.subscribers),
	}
}

// notifyKeyLocked queues or builds the notifications for one changed key.
// Inside a batch the key is only marked pending; the final view is delivered
// once when the batch ends. Caller holds s.mu.
func (s *Store) notifyKeyLocked(canonical string, st *entryState) []notification {
	if s.batchDepth > 0 {
		s.pending[canonical] = struct{}{}
		return nil
	}
	return s.subscriberViewsLocked(canonical, st)
}

func (s *Store) subscriberViewsLocked(_ string, st *entryState) []notification {
	if len(st.subscribers) == 0 {
		return nil
	}
	view := s.viewLocked(st)
	notifs := make([]notification, 0, len(st.subscribers))
	for _, fn := range st.subscribers {
		if fn == nil {
			continue
		}
		notifs = append(notifs, notification{fn: fn, entry: view})
	}
	return notifs
}

// dispatch invokes subscriber callbacks outside the store lock so they may
// re-enter the Store.
func (s *Store) dispatch(notifs []notification) {
	for _, n := range notifs {
		n.fn(n.entry)
	}
}
