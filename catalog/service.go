package catalog

import (
	"github.com/rs/zerolog"

	"github.com/Florvin-04/product-catalog-cache/cache"
	"github.com/Florvin-04/product-catalog-cache/mutation"
)

// Service exposes the admin catalog flows: subscribe to filtered product and
// category lists, and create/update/delete records with optimistic cache
// updates. It is a thin composition of the generic engine; all cache
// consistency logic lives in the cache and mutation packages.
type Service struct {
	store      *cache.Store
	fetches    *cache.Coordinator
	transport  Transport
	products   *mutation.Executor[Product]
	categories *mutation.Executor[Category]
	logger     zerolog.Logger
}

// NewService wires the catalog flows onto an engine instance.
func NewService(
	store *cache.Store,
	fetches *cache.Coordinator,
	scheduler *mutation.Scheduler,
	transport Transport,
	notifier mutation.Notifier,
	logger zerolog.Logger,
	metrics *cache.Metrics,
) *Service {
	log := logger.With().Str("component", "catalog_service").Logger()
	return &Service{
		store:      store,
		fetches:    fetches,
		transport:  transport,
		products:   mutation.NewExecutor[Product](store, fetches, scheduler, notifier, logger, metrics),
		categories: mutation.NewExecutor[Category](store, fetches, scheduler, notifier, logger, metrics),
		logger:     log,
	}
}

// Store returns the underlying cache store, e.g. for advanced subscriptions.
func (s *Service) Store() *cache.Store { return s.store }
