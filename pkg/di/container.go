// Package di wires the cache engine components together.
package di

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Florvin-04/product-catalog-cache/cache"
	"github.com/Florvin-04/product-catalog-cache/catalog"
	"github.com/Florvin-04/product-catalog-cache/mutation"
)

// Container provides dependency injection for the cache engine. It manages
// singleton instances of the store, fetch coordinator, and invalidation
// scheduler, and provides factory methods for mutation executors and the
// catalog service.
type Container struct {
	config      cache.Config
	store       *cache.Store
	coordinator *cache.Coordinator
	scheduler   *mutation.Scheduler
	notifier    mutation.Notifier
	metrics     *cache.Metrics
	logger      zerolog.Logger
}

// Options carries the external collaborators the engine consumes but does not
// implement.
type Options struct {
	// Notifier receives one success or failure signal per settled mutation.
	// Nil means signals are discarded.
	Notifier mutation.Notifier

	// Metrics registers engine metrics on the given registerer. Nil disables
	// instrumentation.
	Metrics prometheus.Registerer

	// Logger is the root logger; components derive tagged children from it.
	Logger zerolog.Logger
}

// NewContainer creates a DI container with the provided cache configuration.
func NewContainer(config cache.Config, opts Options) (*Container, error) {
	var metrics *cache.Metrics
	if opts.Metrics != nil {
		metrics = cache.NewMetrics(opts.Metrics)
	}

	store, err := cache.NewStore(config, cache.NewDefaultKeySerializer(), opts.Logger, metrics)
	if err != nil {
		return nil, err
	}
	coordinator := cache.NewCoordinator(store, config, opts.Logger, metrics)
	scheduler := mutation.NewScheduler(store, coordinator, opts.Logger)

	notifier := opts.Notifier
	if notifier == nil {
		notifier = mutation.NopNotifier{}
	}

	return &Container{
		config:      config,
		store:       store,
		coordinator: coordinator,
		scheduler:   scheduler,
		notifier:    notifier,
		metrics:     metrics,
		logger:      opts.Logger,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default
// configuration, a nop logger, and no metrics.
func NewContainerWithDefaults() (*Container, error) {
	return NewContainer(cache.DefaultConfig(), Options{Logger: zerolog.Nop()})
}

// Store returns the singleton cache store instance.
func (c *Container) Store() *cache.Store { return c.store }

// Coordinator returns the singleton fetch coordinator instance.
func (c *Container) Coordinator() *cache.Coordinator { return c.coordinator }

// Scheduler returns the singleton invalidation scheduler instance.
func (c *Container) Scheduler() *mutation.Scheduler { return c.scheduler }

// Notifier returns the configured notification collaborator.
func (c *Container) Notifier() mutation.Notifier { return c.notifier }

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config { return c.config }

// NewCatalogService wires a catalog service onto this container's engine.
func (c *Container) NewCatalogService(transport catalog.Transport) *catalog.Service {
	return catalog.NewService(c.store, c.coordinator, c.scheduler, transport, c.notifier, c.logger, c.metrics)
}

// NewExecutor creates a mutation executor for a record type against this
// container's engine.
//
// Since Go methods cannot have type parameters, this is provided as a
// package-level function. Example: NewExecutor[Product](container).
func NewExecutor[T mutation.Record](c *Container) *mutation.Executor[T] {
	return mutation.NewExecutor[T](c.store, c.coordinator, c.scheduler, c.notifier, c.logger, c.metrics)
}
