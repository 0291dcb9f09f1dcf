// Package mutation applies optimistic mutations against the query cache.
//
// # Overview
//
// The Executor runs a mutation through a fixed state machine:
//
//	Idle -> Submitting -> (Committed | RolledBack) -> Settled
//
// Entering Submitting it cancels in-flight fetches for the affected keys,
// snapshots their data, and patches them optimistically — the user sees the
// change before the network round-trip. A successful call overwrites the
// placeholder with the server's record and hands the affected resource to the
// Scheduler for targeted invalidation; a failed call restores every snapshot
// verbatim. Either way exactly one Notifier signal fires.
//
// # Basic Usage
//
//	exec := mutation.NewExecutor[Product](store, fetches, scheduler, notifier, logger, nil)
//
//	created, err := exec.Execute(ctx, mutation.Request[Product]{
//		Operation: mutation.OpCreate,
//		Record:    draft,
//		Resource:  "products",
//	}, func(ctx context.Context) (Product, error) {
//		return api.CreateProduct(ctx, draft)
//	})
//
// Records implement RecordID; records that also implement
// WithID(string) T get a synthesized placeholder id for optimistic creates.
//
// # Invalidation policy
//
// After a commit, subscribed keys of the resource that were not just patched
// are marked stale if they hold data, and eagerly refetched only if empty.
// Rolled-back mutations trigger no invalidation: the restore already left the
// cache consistent.
package mutation
