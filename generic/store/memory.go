// Package store provides Store implementations.
package store

import (
	"cmp"
	"slices"

	"github.com/warp/payments-engine/generic"
)

// =============================================================================
// MEMORY STORE - Ordered in-memory keyed store
// =============================================================================

// Memory is a map-backed generic.CreatingStore. New keys are appended
// unsorted; FindAll sorts them once and reuses the order until the next
// new key arrives.
//
// Memory is not safe for concurrent use; the ledger engine is its only caller.
type Memory[K cmp.Ordered, V any] struct {
	records map[K]V
	keys    []K // sorted only when !dirty
	dirty   bool
	newFunc func(K) V
}

var (
	_ generic.CreatingStore[uint16, struct{}] = (*Memory[uint16, struct{}])(nil)
	_ generic.Store[uint32, struct{}]         = (*Memory[uint32, struct{}])(nil)
)

// NewMemory returns an empty store whose FindOrCreate inserts the zero V.
func NewMemory[K cmp.Ordered, V any]() *Memory[K, V] {
	return NewMemoryWithDefault[K, V](nil)
}

// NewMemoryWithDefault returns an empty store whose FindOrCreate inserts
// newFunc(key). A nil newFunc means the zero V.
func NewMemoryWithDefault[K cmp.Ordered, V any](newFunc func(K) V) *Memory[K, V] {
	return &Memory[K, V]{
		records: make(map[K]V),
		newFunc: newFunc,
	}
}

// Upsert inserts or replaces the record at key.
func (m *Memory[K, V]) Upsert(key K, rec V) {
	if _, ok := m.records[key]; !ok {
		m.keys = append(m.keys, key)
		m.dirty = true
	}
	m.records[key] = rec
}

func (m *Memory[K, V]) Find(key K) (V, bool) {
	rec, ok := m.records[key]
	return rec, ok
}

// FindOrCreate returns the record at key, inserting the default first if absent.
func (m *Memory[K, V]) FindOrCreate(key K) V {
	if rec, ok := m.records[key]; ok {
		return rec
	}
	var rec V
	if m.newFunc != nil {
		rec = m.newFunc(key)
	}
	m.Upsert(key, rec)
	return rec
}

// FindAll returns a copy of every record in ascending key order.
func (m *Memory[K, V]) FindAll() []V {
	if m.dirty {
		slices.Sort(m.keys)
		m.dirty = false
	}
	result := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		result = append(result, m.records[k])
	}
	return result
}

func (m *Memory[K, V]) Len() int {
	return len(m.records)
}
