package mutation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Florvin-04/product-catalog-cache/cache"
)

// Operation names the kind of change a mutation applies.
type Operation int

const (
	// OpCreate prepends a new record to matching list entries.
	OpCreate Operation = iota + 1
	// OpUpdate replaces the record with matching identity in list entries.
	OpUpdate
	// OpDelete removes the record with matching identity from list entries.
	OpDelete
)

// String returns the operation name for logging and metrics labels.
func (o Operation) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// State tracks a mutation through its life cycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateCommitted
	StateRolledBack
	StateSettled
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// ErrUnknownOperation is returned for a request whose operation is not one of
// Create, Update, Delete.
var ErrUnknownOperation = errors.New("unknown mutation operation")

// Record is the identity contract domain records satisfy so list transforms
// can match them.
type Record interface {
	RecordID() string
}

// Notifier receives exactly one signal per settled mutation. Implementations
// render toasts or equivalent; the executor consumes no return value.
type Notifier interface {
	Success(message string)
	Failure(message string)
}

// NopNotifier discards all signals.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Failure(string) {}

// Call performs the network side of a mutation and returns the server's
// authoritative record.
type Call[T Record] func(ctx context.Context) (T, error)

// Request describes one mutation. It is transient: it exists only for the
// duration of a single Execute.
type Request[T Record] struct {
	Operation Operation
	Record    T

	// Resource names the cached resource the mutation affects. Empty means
	// derive it from the record type name.
	Resource string

	// Keys selects the cached keys to patch optimistically. Nil means every
	// key of Resource.
	Keys cache.KeyPredicate

	// SuccessMessage overrides the generic success signal text.
	SuccessMessage string

	// InvalidateResources lists additional resources whose subscribed keys
	// are invalidated after a commit, e.g. product lists after a category
	// delete.
	InvalidateResources []string
}

// Executor applies mutations against the cache store: optimistic patch,
// network call, then commit or rollback, followed by targeted invalidation.
type Executor[T Record] struct {
	store       *cache.Store
	fetches     *cache.Coordinator
	invalidator *Scheduler
	notifier    Notifier
	logger      zerolog.Logger
	metrics     *cache.Metrics

	// mu serializes the patch phase so no other mutation of this executor
	// observes a half-applied optimistic state.
	mu sync.Mutex
}

// NewExecutor creates a mutation executor for one record type. A nil notifier
// falls back to NopNotifier; metrics may be nil.
func NewExecutor[T Record](store *cache.Store, fetches *cache.Coordinator, invalidator *Scheduler, notifier Notifier, logger zerolog.Logger, metrics *cache.Metrics) *Executor[T] {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Executor[T]{
		store:       store,
		fetches:     fetches,
		invalidator: invalidator,
		notifier:    notifier,
		logger:      logger.With().Str("component", "mutation_executor").Logger(),
		metrics:     metrics,
	}
}

// Execute runs one mutation to settlement.
//
// The optimistic patch is applied before the network call so the user-visible
// effect is immediate. In order it: resolves the affected keys, cancels any
// in-flight fetch for them (a late fetch result must not clobber the
// optimistic value), snapshots their data, and applies the operation's
// transform. On network success the server record overwrites the optimistic
// placeholder field for field and the invalidation scheduler runs; on failure
// every affected key is restored from its snapshot and the scheduler is not
// invoked. Exactly one notifier signal fires per settlement. The executor
// never retries: a failed mutation is settled, and retrying means issuing a
// fresh Request.
func (e *Executor[T]) Execute(ctx context.Context, req Request[T], call Call[T]) (T, error) {
	var zero T

	if call == nil {
		return zero, errors.New("mutation: call must not be nil")
	}
	if req.Operation < OpCreate || req.Operation > OpDelete {
		return zero, fmt.Errorf("mutation: %d: %w", req.Operation, ErrUnknownOperation)
	}

	resource := req.Resource
	if resource == "" {
		resource = ResourceName[T]()
	}
	pred := req.Keys
	if pred == nil {
		pred = cache.ByResource(resource)
	}

	rec := req.Record
	if req.Operation == OpCreate && rec.RecordID() == "" {
		// The placeholder needs an identity so commit can locate it and
		// overwrite it with the server record.
		if wi, ok := any(rec).(interface{ WithID(string) T }); ok {
			rec = wi.WithID(uuid.NewString())
		}
	}
	placeholderID := rec.RecordID()

	state := StateSubmitting
	log := e.logger.With().Str("operation", req.Operation.String()).Str("resource", resource).Logger()
	log.Debug().Str("state", state.String()).Msg("mutation submitting")

	e.mu.Lock()
	affected := e.store.Keys(pred)
	for _, key := range affected {
		e.fetches.Cancel(key)
	}
	snapshots := e.store.Snapshot(affected)
	// Writes are pinned to the resolved keys, not the raw predicate: an entry
	// appearing concurrently (resubscribe resurrecting parked data, a fetch
	// landing after the cancel loop) has no snapshot to roll back to and must
	// not be patched.
	patchPred := keySet(e.store, affected)
	var patched []cache.QueryKey
	e.store.Batch(func() {
		switch req.Operation {
		case OpCreate:
			patched = e.store.Write(patchPred, PrependRecord[T](rec))
		case OpUpdate:
			patched = e.store.Write(patchPred, ReplaceRecord[T](rec))
		case OpDelete:
			patched = e.store.Write(patchPred, RemoveRecord[T](placeholderID))
		}
	})
	e.mu.Unlock()

	result, err := call(ctx)
	if err != nil {
		e.store.Batch(func() {
			e.store.Restore(snapshots)
		})
		state = StateRolledBack
		e.metrics.MutationRolledBack(req.Operation.String())
		e.notifier.Failure(failureMessage(err))
		log.Warn().Err(err).Str("state", state.String()).Int("restored", len(snapshots)).Msg("mutation rolled back")
		return zero, err
	}

	e.store.Batch(func() {
		switch req.Operation {
		case OpCreate, OpUpdate:
			// Exact overwrite, not merge: the server may have corrected
			// fields the client guessed, the id included.
			e.store.Write(patchPred, ReplaceRecordByID[T](placeholderID, result))
		case OpDelete:
			// Already removed optimistically; server success changes nothing.
		}
	})
	state = StateCommitted
	e.metrics.MutationCommitted(req.Operation.String())
	e.notifier.Success(successMessage(req))
	log.Debug().Str("state", state.String()).Int("patched", len(patched)).Msg("mutation committed")

	e.invalidator.AfterCommit(ctx, resource, patched)
	for _, extra := range req.InvalidateResources {
		e.invalidator.AfterCommit(ctx, extra, nil)
	}

	state = StateSettled
	log.Debug().Str("state", state.String()).Msg("mutation settled")
	return result, nil
}

func successMessage[T Record](req Request[T]) string {
	if req.SuccessMessage != "" {
		return req.SuccessMessage
	}
	switch req.Operation {
	case OpCreate:
		return "Record created"
	case OpUpdate:
		return "Record updated"
	default:
		return "Record deleted"
	}
}

// failureMessage prefers the server-reported message when the error carries
// one, falling back to generic text.
func failureMessage(err error) string {
	var um interface{ UserMessage() string }
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return "The operation could not be completed"
}
