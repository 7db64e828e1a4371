// Package memory implements storage.Backend as a concurrent mapping from
// table name to a mutex-guarded mapping from key to value.
package memory

import (
	"context"
	"sync"

	"github.com/shinemost/kvbroker/storage"
	"github.com/shinemost/kvbroker/wire"
)

type table struct {
	mu   sync.RWMutex
	data map[string]wire.Value
}

// Backend is an in-memory storage.Backend. The zero value is ready to use.
type Backend struct {
	tables sync.Map // string -> *table
}

// New returns a ready-to-use in-memory backend.
func New() *Backend {
	return &Backend{}
}

func (b *Backend) lookup(name string) (*table, bool) {
	v, ok := b.tables.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*table), true
}

func (b *Backend) getOrCreate(name string) *table {
	if t, ok := b.lookup(name); ok {
		return t
	}
	t := &table{data: make(map[string]wire.Value)}
	actual, _ := b.tables.LoadOrStore(name, t)
	return actual.(*table)
}

func (b *Backend) Get(_ context.Context, tableName, key string) (wire.Value, bool, error) {
	t, ok := b.lookup(tableName)
	if !ok {
		return wire.Value{}, false, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.data[key]
	return v, ok, nil
}

func (b *Backend) Set(_ context.Context, tableName, key string, value wire.Value) (wire.Value, bool, error) {
	t := b.getOrCreate(tableName)
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, hadPrev := t.data[key]
	t.data[key] = value
	return prev, hadPrev, nil
}

func (b *Backend) Contains(_ context.Context, tableName, key string) (bool, error) {
	t, ok := b.lookup(tableName)
	if !ok {
		return false, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok = t.data[key]
	return ok, nil
}

func (b *Backend) Del(_ context.Context, tableName, key string) (wire.Value, bool, error) {
	t, ok := b.lookup(tableName)
	if !ok {
		return wire.Value{}, false, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	prev, hadPrev := t.data[key]
	if hadPrev {
		delete(t.data, key)
	}
	return prev, hadPrev, nil
}

func (b *Backend) GetAll(_ context.Context, tableName string) ([]wire.Kvpair, error) {
	t, ok := b.lookup(tableName)
	if !ok {
		return nil, nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	pairs := make([]wire.Kvpair, 0, len(t.data))
	for k, v := range t.data {
		pairs = append(pairs, wire.Kvpair{Key: k, Value: v})
	}
	return pairs, nil
}

func (b *Backend) Iter(ctx context.Context, tableName string) (storage.Iterator, error) {
	pairs, err := b.GetAll(ctx, tableName)
	if err != nil {
		return nil, err
	}
	return storage.NewSliceIterator(pairs), nil
}

func (b *Backend) Close() error { return nil }
