// Package orderedmap provides an associative container with an explicit key order.
//
// A [Map] keeps a sequence of unique keys next to a key→value mapping. The order
// is insertion order unless a position is given explicitly or the whole ordering
// is replaced with [Map.UpdateOrder]. Containers use it to hold their items in
// visual order: keys are item ids, the order is the left-to-right or
// top-to-bottom child order.
//
// Map is not safe for concurrent use. The composer mutates it only from its
// event loop.
package orderedmap

import (
	"github.com/matzehuels/pagecomposer/pkg/errors"
)

// Map is an ordered associative container keyed by K.
type Map[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// New creates an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{values: make(map[K]V)}
}

// Put stores value under key. New keys are appended; an existing key keeps its
// position and gets the new value.
func (m *Map[K, V]) Put(key K, value V) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Insert stores value under key at position index. The index is clamped to
// [0, Len()]. If key is already present it is moved to index.
func (m *Map[K, V]) Insert(key K, value V, index int) {
	if _, ok := m.values[key]; ok {
		m.keys = removeKey(m.keys, key)
	}
	index = max(0, min(index, len(m.keys)))
	m.keys = append(m.keys, key)
	copy(m.keys[index+1:], m.keys[index:])
	m.keys[index] = key
	m.values[key] = value
}

// Get returns the value stored under key, or a KEY_NOT_FOUND error.
func (m *Map[K, V]) Get(key K) (V, error) {
	v, ok := m.values[key]
	if !ok {
		var zero V
		return zero, errors.KeyNotFound(key)
	}
	return v, nil
}

// Lookup returns the value stored under key and whether it was present.
func (m *Map[K, V]) Lookup(key K) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Remove deletes key and returns its value, or a KEY_NOT_FOUND error.
func (m *Map[K, V]) Remove(key K) (V, error) {
	v, ok := m.values[key]
	if !ok {
		var zero V
		return zero, errors.KeyNotFound(key)
	}
	m.keys = removeKey(m.keys, key)
	delete(m.values, key)
	return v, nil
}

// ContainsKey reports whether key is present.
func (m *Map[K, V]) ContainsKey(key K) bool {
	_, ok := m.values[key]
	return ok
}

// Each calls f for every entry in order. f must not mutate the map.
func (m *Map[K, V]) Each(f func(key K, value V)) {
	for _, k := range m.keys {
		f(k, m.values[k])
	}
}

// Values returns the values in key order.
func (m *Map[K, V]) Values() []V {
	out := make([]V, len(m.keys))
	for i, k := range m.keys {
		out[i] = m.values[k]
	}
	return out
}

// KeySet returns a snapshot of the keys in order.
func (m *Map[K, V]) KeySet() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// IndexMap returns the 1-based position of every key.
func (m *Map[K, V]) IndexMap() map[K]int {
	idx := make(map[K]int, len(m.keys))
	for i, k := range m.keys {
		idx[k] = i + 1
	}
	return idx
}

// IndexOf returns the 0-based position of key, or -1.
func (m *Map[K, V]) IndexOf(key K) int {
	for i, k := range m.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	return len(m.keys)
}

// Clear removes all entries.
func (m *Map[K, V]) Clear() {
	m.keys = nil
	m.values = make(map[K]V)
}

// UpdateOrder replaces the key order and reports whether it changed
// positionally. The new order must contain exactly the present keys; otherwise
// an INVALID_ORDER error is returned and the map is left untouched.
func (m *Map[K, V]) UpdateOrder(order []K) (bool, error) {
	if len(order) != len(m.keys) {
		return false, errors.New(errors.ErrCodeInvalidOrder,
			"order has %d keys, map has %d", len(order), len(m.keys))
	}
	seen := make(map[K]struct{}, len(order))
	for _, k := range order {
		if _, ok := m.values[k]; !ok {
			return false, errors.New(errors.ErrCodeInvalidOrder, "unknown key %v in order", k)
		}
		if _, dup := seen[k]; dup {
			return false, errors.New(errors.ErrCodeInvalidOrder, "duplicate key %v in order", k)
		}
		seen[k] = struct{}{}
	}

	changed := OrderChanged(m.keys, order)
	m.keys = append([]K(nil), order...)
	return changed, nil
}

// OrderChanged compares two key sequences positionally. A permutation of the
// same keys counts as a change.
func OrderChanged[K comparable](prev, next []K) bool {
	if len(prev) != len(next) {
		return true
	}
	for i := range prev {
		if prev[i] != next[i] {
			return true
		}
	}
	return false
}

func removeKey[K comparable](keys []K, key K) []K {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}
