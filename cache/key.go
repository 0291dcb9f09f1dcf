package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "::"

// QueryKey identifies a cacheable query: a resource name plus the filter
// parameters that shaped it. Two keys address the same entry iff their
// resource and params are deep-equal; equality, not identity, is the index.
type QueryKey struct {
	Resource string
	Params   map[string]any
}

// NewKey builds a QueryKey for a resource with optional filter params.
func NewKey(resource string, params map[string]any) QueryKey {
	return QueryKey{Resource: resource, Params: params}
}

// Equal reports whether k and other address the same cache entry.
func (k QueryKey) Equal(other QueryKey) bool {
	return k.Resource == other.Resource && reflect.DeepEqual(k.Params, other.Params)
}

// KeyPredicate selects a subset of cached keys, typically the keys a
// mutation affects or an invalidation pass should visit.
type KeyPredicate func(QueryKey) bool

// ByResource matches every key for the given resource regardless of params.
func ByResource(resource string) KeyPredicate {
	return func(k QueryKey) bool { return k.Resource == resource }
}

// ExactKey matches only the single key deep-equal to target.
func ExactKey(target QueryKey) KeyPredicate {
	return func(k QueryKey) bool { return k.Equal(target) }
}

// AnyKey matches every cached key.
func AnyKey() KeyPredicate {
	return func(QueryKey) bool { return true }
}

// KeySerializer builds a canonical string form of a QueryKey.
// It is responsible for producing stable keys across calls: two deep-equal
// keys must serialize identically, regardless of map iteration order.
type KeySerializer interface {
	SerializeKey(key QueryKey) string
}

// defaultKeySerializer implements KeySerializer using reflection-based
// serialization. It sorts map keys, recurses into slices, and falls back to
// JSON for complex types while ensuring deterministic output across runs.
type defaultKeySerializer struct{}

// NewDefaultKeySerializer creates a new instance of the default key serializer.
func NewDefaultKeySerializer() KeySerializer {
	return &defaultKeySerializer{}
}

// SerializeKey builds a canonical key from the resource name and params.
func (s *defaultKeySerializer) SerializeKey(key QueryKey) string {
	if len(key.Params) == 0 {
		return key.Resource
	}

	names := make([]string, 0, len(key.Params))
	for name := range key.Params {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names)+1)
	parts = append(parts, key.Resource)
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s=%s", name, s.serializeValue(key.Params[name])))
	}

	return strings.Join(parts, KeySeparator)
}

// serializeValue handles individual parameter serialization based on type.
func (s *defaultKeySerializer) serializeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf(v)

	switch rt.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return s.serializeValue(rv.Elem().Interface())

	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return s.serializeSequence("slice", rv)

	case reflect.Array:
		return s.serializeSequence("array", rv)

	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return s.serializeMap(rv)

	case reflect.Interface:
		if rv.IsNil() {
			return "interface:nil"
		}
		return s.serializeValue(rv.Elem().Interface())
	}

	if s.isBasicType(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return s.jsonFallback(v)
}

// serializeSequence handles slice and array serialization recursively.
func (s *defaultKeySerializer) serializeSequence(label string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)

	for i := 0; i < length; i++ {
		parts[i] = s.serializeValue(rv.Index(i).Interface())
	}

	return fmt.Sprintf("%s[%d]:{%s}", label, length, strings.Join(parts, ","))
}

// serializeMap handles nested map serialization with sorted keys for determinism.
func (s *defaultKeySerializer) serializeMap(rv reflect.Value) string {
	keys := rv.MapKeys()

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = fmt.Sprintf("%s=%s", s.serializeValue(k.Interface()), s.serializeValue(rv.MapIndex(k).Interface()))
	}
	sort.Strings(pairs)

	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

// isBasicType checks if a kind represents a basic Go type.
func (s *defaultKeySerializer) isBasicType(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}

// jsonFallback provides JSON serialization as a last resort.
func (s *defaultKeySerializer) jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%s", reflect.TypeOf(v).String())
	}
	return fmt.Sprintf("json:%s", string(data))
}
