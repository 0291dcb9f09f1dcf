package cache

import "time"

// Status describes the fetch life cycle of a cache entry.
type Status int

const (
	// StatusIdle means no fetch has populated the entry yet.
	StatusIdle Status = iota
	// StatusFetching means a network fetch for the key is in flight.
	StatusFetching
	// StatusSuccess means the entry holds data from a completed fetch or a
	// committed optimistic write.
	StatusSuccess
	// StatusError means the last fetch failed; any previously cached data is
	// retained (stale-while-revalidate).
	StatusError
	// StatusStale flags the entry for refresh without clearing its data.
	StatusStale
)

// String returns a human-readable status name for logging.
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusFetching:
		return "fetching"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	case StatusStale:
		return "stale"
	default:
		return "unknown"
	}
}

// QueryEntry is an immutable view of a cached query handed to readers and
// subscribers. The Store owns the underlying state; a QueryEntry never aliases
// mutable bookkeeping.
type QueryEntry struct {
	Key         QueryKey
	Data        any
	HasData     bool
	Status      Status
	Err         error
	LastUpdated time.Time
	Subscribers int
}

// EntrySnapshot captures an entry's data and status so a caller can restore it
// verbatim later. The mutation executor uses snapshots to roll back optimistic
// writes; the Store itself attaches no meaning to them.
type EntrySnapshot struct {
	Key         QueryKey
	Data        any
	HasData     bool
	Status      Status
	Err         error
	LastUpdated time.Time
}

// SubscriberFunc receives the entry view after every data or status change of
// a subscribed key. Callbacks must tolerate being invoked with identical data:
// coalesced settlements deliver a single, final view per key.
type SubscriberFunc func(QueryEntry)

// UpdaterFunc transforms an entry's data during Store.Write. The second
// argument reports whether the entry currently holds data; returning ok=false
// leaves the entry untouched (no-op, no notification). Updaters must be
// copy-on-write: never mutate the incoming value in place, since snapshots of
// the prior value may be restored on rollback.
type UpdaterFunc func(data any, ok bool) (any, bool)
