/*
store.go - Keyed record store interface

PURPOSE:
  Defines the capability interface shared by the account store and the
  transaction store. Both are keyed collections with unique keys; the
  ledger engine is the only writer.

KEY INTERFACES:
  Store:         Upsert, Find, FindAll (ascending key order), Len
  CreatingStore: Store + FindOrCreate (accounts only)

CONTRACT:
  - Upsert inserts or overwrites. No side effects beyond the store.
  - Find never creates.
  - FindAll is ordered by key, not by insertion.
  - Records are values: mutating a returned record does not change the
    store until it is upserted again.

IMPLEMENTATIONS:
  - generic/store/memory.go: ordered in-memory map

SEE ALSO:
  - payments/engine.go: the single caller
*/
package generic

import "cmp"

// =============================================================================
// STORE - Keyed collection of records
// =============================================================================

// Store is a keyed collection of records of type V.
// Implementations are not required to be safe for concurrent use.
type Store[K cmp.Ordered, V any] interface {
	// Upsert inserts rec at key, replacing any existing record.
	Upsert(key K, rec V)

	// Find returns the record at key, if any.
	Find(key K) (V, bool)

	// FindAll returns every record in ascending key order.
	FindAll() []V

	// Len returns the number of records.
	Len() int
}

// CreatingStore extends Store with create-on-first-access.
type CreatingStore[K cmp.Ordered, V any] interface {
	Store[K, V]

	// FindOrCreate returns the record at key, inserting the store's default
	// record for key first if none exists.
	FindOrCreate(key K) V
}
