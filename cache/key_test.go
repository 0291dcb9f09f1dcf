package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Florvin-04/product-catalog-cache/cache"
)

func TestSerializeKey_NoParams(t *testing.T) {
	s := cache.NewDefaultKeySerializer()

	got := s.SerializeKey(cache.NewKey("products", nil))
	assert.Equal(t, "products", got)

	got = s.SerializeKey(cache.NewKey("products", map[string]any{}))
	assert.Equal(t, "products", got)
}

func TestSerializeKey_Deterministic(t *testing.T) {
	s := cache.NewDefaultKeySerializer()

	a := cache.NewKey("products", map[string]any{"category_id": "c2", "page": 3, "search": "mug"})
	b := cache.NewKey("products", map[string]any{"search": "mug", "page": 3, "category_id": "c2"})

	// Map iteration order must not leak into the canonical form.
	for i := 0; i < 50; i++ {
		require.Equal(t, s.SerializeKey(a), s.SerializeKey(b))
	}
}

func TestSerializeKey_ParamsSorted(t *testing.T) {
	s := cache.NewDefaultKeySerializer()

	got := s.SerializeKey(cache.NewKey("products", map[string]any{"b": 2, "a": 1}))
	assert.Equal(t, "products::a=1::b=2", got)
}

func TestSerializeKey_DistinguishesParams(t *testing.T) {
	s := cache.NewDefaultKeySerializer()

	empty := s.SerializeKey(cache.NewKey("products", nil))
	filtered := s.SerializeKey(cache.NewKey("products", map[string]any{"category_id": "c2"}))
	otherResource := s.SerializeKey(cache.NewKey("categories", nil))

	assert.NotEqual(t, empty, filtered)
	assert.NotEqual(t, empty, otherResource)
}

func TestSerializeKey_CompositeValues(t *testing.T) {
	s := cache.NewDefaultKeySerializer()

	tests := []struct {
		name   string
		params map[string]any
		want   string
	}{
		{
			name:   "slice value",
			params: map[string]any{"ids": []string{"p1", "p2"}},
			want:   "products::ids=slice[2]:{p1,p2}",
		},
		{
			name:   "nil value",
			params: map[string]any{"cursor": nil},
			want:   "products::cursor=nil",
		},
		{
			name:   "nested map sorted",
			params: map[string]any{"range": map[string]int{"min": 1, "max": 9}},
			want:   "products::range=map[2]:{max=9,min=1}",
		},
		{
			name:   "bool and numbers",
			params: map[string]any{"active": true, "limit": int64(10)},
			want:   "products::active=true::limit=10",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := s.SerializeKey(cache.NewKey("products", tc.params))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestQueryKey_Equal(t *testing.T) {
	a := cache.NewKey("products", map[string]any{"page": 1})
	b := cache.NewKey("products", map[string]any{"page": 1})
	c := cache.NewKey("products", map[string]any{"page": 2})

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(cache.NewKey("categories", map[string]any{"page": 1})))
}

func TestKeyPredicates(t *testing.T) {
	products := cache.NewKey("products", map[string]any{"page": 1})
	categories := cache.NewKey("categories", nil)

	assert.True(t, cache.ByResource("products")(products))
	assert.False(t, cache.ByResource("products")(categories))

	assert.True(t, cache.ExactKey(products)(cache.NewKey("products", map[string]any{"page": 1})))
	assert.False(t, cache.ExactKey(products)(cache.NewKey("products", nil)))

	assert.True(t, cache.AnyKey()(products))
	assert.True(t, cache.AnyKey()(categories))
}
