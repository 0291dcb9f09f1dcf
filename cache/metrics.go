package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instrumentation for the cache engine. A nil
// *Metrics is valid everywhere and records nothing.
type Metrics struct {
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	FetchesDeduped   prometheus.Counter
	FetchesCancelled prometheus.Counter
	FetchesDiscarded prometheus.Counter
	FetchErrors      prometheus.Counter
	EntriesRetired   prometheus.Counter
	EntriesRevived   prometheus.Counter
	StaleMarks       prometheus.Counter

	MutationsCommitted  *prometheus.CounterVec
	MutationsRolledBack *prometheus.CounterVec
}

// NewMetrics creates and registers the engine metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_hits_total",
			Help: "Total number of reads served from fresh cached data",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_misses_total",
			Help: "Total number of reads that issued a network fetch",
		}),
		FetchesDeduped: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_fetches_deduped_total",
			Help: "Total number of fetch requests joined to an in-flight fetch",
		}),
		FetchesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_fetches_cancelled_total",
			Help: "Total number of in-flight fetches cancelled",
		}),
		FetchesDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_fetches_discarded_total",
			Help: "Total number of cancelled fetch results discarded on resolution",
		}),
		FetchErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_fetch_errors_total",
			Help: "Total number of failed fetches",
		}),
		EntriesRetired: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_entries_retired_total",
			Help: "Total number of entries parked after losing their last subscriber",
		}),
		EntriesRevived: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_entries_revived_total",
			Help: "Total number of retired entries resurrected within the grace period",
		}),
		StaleMarks: factory.NewCounter(prometheus.CounterOpts{
			Name: "catalog_cache_stale_marks_total",
			Help: "Total number of entries flagged stale by invalidation",
		}),
		MutationsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_mutations_committed_total",
			Help: "Total number of mutations committed, by operation",
		}, []string{"operation"}),
		MutationsRolledBack: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_cache_mutations_rolled_back_total",
			Help: "Total number of mutations rolled back, by operation",
		}, []string{"operation"}),
	}
}

// MutationCommitted records a committed mutation for the given operation.
func (m *Metrics) MutationCommitted(operation string) {
	if m == nil {
		return
	}
	m.MutationsCommitted.WithLabelValues(operation).Inc()
}

// MutationRolledBack records a rolled-back mutation for the given operation.
func (m *Metrics) MutationRolledBack(operation string) {
	if m == nil {
		return
	}
	m.MutationsRolledBack.WithLabelValues(operation).Inc()
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

func (m *Metrics) fetchDeduped() {
	if m != nil {
		m.FetchesDeduped.Inc()
	}
}

func (m *Metrics) fetchCancelled() {
	if m != nil {
		m.FetchesCancelled.Inc()
	}
}

func (m *Metrics) fetchDiscarded() {
	if m != nil {
		m.FetchesDiscarded.Inc()
	}
}

func (m *Metrics) fetchFailed() {
	if m != nil {
		m.FetchErrors.Inc()
	}
}

func (m *Metrics) entryRetired() {
	if m != nil {
		m.EntriesRetired.Inc()
	}
}

func (m *Metrics) entryResurrected() {
	if m != nil {
		m.EntriesRevived.Inc()
	}
}

func (m *Metrics) staleMarked() {
	if m != nil {
		m.StaleMarks.Inc()
	}
}
