// Package header provides an ordered, case-sensitive header map
// and the splitting of a raw HTTP response into the header block and the body.
package header

import (
	"github.com/keboola/go-utils/pkg/orderedmap"
)

// Map is an ordered header mapping.
// Keys are case-sensitive and kept exactly as set, last write for a key wins, the key keeps its first position.
// The zero value is not usable, use NewMap. Read methods are safe on a nil *Map.
type Map struct {
	values *orderedmap.OrderedMap
}

// Pair is one header key-value pair.
type Pair struct {
	Key   string
	Value string
}

func NewMap() *Map {
	return &Map{values: orderedmap.New()}
}

// FromPairs creates a Map from pairs, in the given order.
func FromPairs(pairs ...Pair) *Map {
	m := NewMap()
	for _, p := range pairs {
		m.Set(p.Key, p.Value)
	}
	return m
}

// FromMap creates a Map from a standard map, the order of keys is not defined.
func FromMap(in map[string]string) *Map {
	m := NewMap()
	m.Merge(in)
	return m
}

func (m *Map) Set(key, value string) {
	m.values.Set(key, value)
}

// Merge sets all values from the map.
func (m *Map) Merge(in map[string]string) {
	for k, v := range in {
		m.Set(k, v)
	}
}

func (m *Map) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, found := m.values.Get(key)
	if !found {
		return "", false
	}
	str, _ := v.(string)
	return str, true
}

// GetOr returns the value of the key or the defaultValue if the key is not set.
func (m *Map) GetOr(key, defaultValue string) string {
	if v, found := m.Get(key); found {
		return v
	}
	return defaultValue
}

func (m *Map) Has(key string) bool {
	_, found := m.Get(key)
	return found
}

func (m *Map) Delete(key string) {
	m.values.Delete(key)
}

func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return m.values.Keys()
}

func (m *Map) Len() int {
	return len(m.Keys())
}

func (m *Map) Pairs() []Pair {
	keys := m.Keys()
	out := make([]Pair, 0, len(keys))
	for _, k := range keys {
		v, _ := m.Get(k)
		out = append(out, Pair{Key: k, Value: v})
	}
	return out
}

// ToMap converts the Map to a standard map, the order is lost.
func (m *Map) ToMap() map[string]string {
	out := make(map[string]string)
	for _, p := range m.Pairs() {
		out[p.Key] = p.Value
	}
	return out
}

func (m *Map) Clone() *Map {
	return FromPairs(m.Pairs()...)
}

// MarshalJSON encodes the Map as a JSON object, keys are kept in order.
func (m *Map) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return m.values.MarshalJSON()
}
