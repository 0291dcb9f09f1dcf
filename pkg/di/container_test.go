package di_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Florvin-04/product-catalog-cache/cache"
	"github.com/Florvin-04/product-catalog-cache/catalog"
	"github.com/Florvin-04/product-catalog-cache/mutation"
	"github.com/Florvin-04/product-catalog-cache/pkg/di"
	"github.com/Florvin-04/product-catalog-cache/pkg/testsupport"
)

func TestNewContainerWithDefaults(t *testing.T) {
	c, err := di.NewContainerWithDefaults()
	require.NoError(t, err)

	assert.NotNil(t, c.Store())
	assert.NotNil(t, c.Coordinator())
	assert.NotNil(t, c.Scheduler())
	assert.NotNil(t, c.Notifier())
	assert.Equal(t, cache.DefaultConfig(), c.Config())
}

func TestNewContainer_RejectsInvalidConfig(t *testing.T) {
	cfg := cache.DefaultConfig()
	cfg.GracePeriod = -time.Second

	_, err := di.NewContainer(cfg, di.Options{})
	require.Error(t, err)
	var cfgErr *cache.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestNewContainer_SharesSingletons(t *testing.T) {
	c, err := di.NewContainerWithDefaults()
	require.NoError(t, err)

	assert.Same(t, c.Store(), c.Store())
	assert.Same(t, c.Coordinator(), c.Coordinator())
}

func TestNewContainer_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := di.NewContainer(cache.DefaultConfig(), di.Options{Metrics: reg})
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "catalog_cache_hits_total")
}

func TestNewExecutor_RunsAgainstContainerEngine(t *testing.T) {
	notifier := &testsupport.RecordingNotifier{}
	c, err := di.NewContainer(cache.DefaultConfig(), di.Options{Notifier: notifier})
	require.NoError(t, err)

	key := cache.NewKey("products", nil)
	sub, _ := c.Store().Subscribe(key, nil)
	defer sub.Close()
	c.Store().Write(cache.ExactKey(key), func(any, bool) (any, bool) {
		return []catalog.Product{{ID: "p1", Name: "Lamp"}}, true
	})

	exec := di.NewExecutor[catalog.Product](c)
	_, err = exec.Execute(context.Background(), mutation.Request[catalog.Product]{
		Operation: mutation.OpUpdate,
		Record:    catalog.Product{ID: "p1", Name: "Desk Lamp"},
	}, func(context.Context) (catalog.Product, error) {
		return catalog.Product{ID: "p1", Name: "Desk Lamp"}, nil
	})
	require.NoError(t, err)

	entries := c.Store().Read(cache.ExactKey(key))
	require.Len(t, entries, 1)
	assert.Equal(t, "Desk Lamp", entries[0].Data.([]catalog.Product)[0].Name)
	assert.Len(t, notifier.Successes(), 1)
}

func TestNewCatalogService(t *testing.T) {
	c, err := di.NewContainerWithDefaults()
	require.NoError(t, err)

	transport := testsupport.NewFakeTransport()
	transport.RespondJSON(http.MethodGet, "/categories", testsupport.Categories(2))

	svc := c.NewCatalogService(transport)
	sub, items, err := svc.SubscribeCategories(context.Background(), catalog.CategoryFilter{}, nil)
	require.NoError(t, err)
	defer sub.Close()
	assert.Len(t, items, 2)
}
