// Package storage defines the pluggable backend capability set the
// dispatcher consumes polymorphically: get/set/contains/del/get_all/iter
// keyed by (table, key). Any backend satisfying Backend is interchangeable.
package storage

import (
	"context"

	"github.com/shinemost/kvbroker/wire"
)

// Backend is the storage capability set the dispatcher consumes. A
// missing table or key is never an error for reads; Get/Contains/Del
// simply report absence.
type Backend interface {
	// Get returns the value at (table,key), or ok=false if absent.
	Get(ctx context.Context, table, key string) (v wire.Value, ok bool, err error)
	// Set writes value at (table,key), creating table if needed, and
	// returns the prior value if any.
	Set(ctx context.Context, table, key string, value wire.Value) (prev wire.Value, hadPrev bool, err error)
	// Contains reports whether (table,key) exists.
	Contains(ctx context.Context, table, key string) (bool, error)
	// Del removes (table,key) and returns the prior value if any.
	Del(ctx context.Context, table, key string) (prev wire.Value, hadPrev bool, err error)
	// GetAll returns a snapshot of every pair in table, in unspecified
	// but stable order.
	GetAll(ctx context.Context, table string) ([]wire.Kvpair, error)
	// Iter returns a finite, non-restartable snapshot iterator over table.
	Iter(ctx context.Context, table string) (Iterator, error)
	// Close releases any resources held by the backend.
	Close() error
}

// Iterator yields a finite sequence of Kvpairs, detached from any lock
// after creation.
type Iterator interface {
	// Next returns the next pair, or ok=false once exhausted.
	Next() (pair wire.Kvpair, ok bool)
}

// sliceIterator is the shared materialized-snapshot Iterator used by
// both the memory and bbolt backends.
type sliceIterator struct {
	pairs []wire.Kvpair
	pos   int
}

// NewSliceIterator builds an Iterator over an already-snapshotted slice.
func NewSliceIterator(pairs []wire.Kvpair) Iterator {
	return &sliceIterator{pairs: pairs}
}

func (it *sliceIterator) Next() (wire.Kvpair, bool) {
	if it.pos >= len(it.pairs) {
		return wire.Kvpair{}, false
	}
	p := it.pairs[it.pos]
	it.pos++
	return p, true
}
