// Package boltstore implements storage.Backend on top of go.etcd.io/bbolt,
// the embedded-log-store option of storage configuration. Each table
// maps to one bucket; writes create the bucket lazily inside the write
// transaction, since every backend implicitly creates tables on first
// write.
package boltstore

import (
	"context"
	"fmt"

	bolt "go.etcd.io/bbolt"

	kverrors "github.com/shinemost/kvbroker/internal/errors"
	"github.com/shinemost/kvbroker/storage"
	"github.com/shinemost/kvbroker/wire"
)

// Backend is a bbolt-backed storage.Backend.
type Backend struct {
	db *bolt.DB
}

// Open opens (creating if necessary) the bbolt database at path.
func Open(path string) (*Backend, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, kverrors.Storage("open", "", "", err.Error())
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Get(_ context.Context, table, key string) (wire.Value, bool, error) {
	var v wire.Value
	var ok bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		parsed, err := wire.ValueFromRaw(raw)
		if err != nil {
			return err
		}
		v, ok = parsed, true
		return nil
	})
	if err != nil {
		return wire.Value{}, false, kverrors.Storage("get", table, key, err.Error())
	}
	return v, ok, nil
}

func (b *Backend) Set(_ context.Context, table, key string, value wire.Value) (wire.Value, bool, error) {
	var prev wire.Value
	var hadPrev bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		if raw := bucket.Get([]byte(key)); raw != nil {
			parsed, err := wire.ValueFromRaw(raw)
			if err != nil {
				return err
			}
			prev, hadPrev = parsed, true
		}
		return bucket.Put([]byte(key), value.ToRaw())
	})
	if err != nil {
		return wire.Value{}, false, kverrors.Storage("set", table, key, err.Error())
	}
	return prev, hadPrev, nil
}

func (b *Backend) Contains(_ context.Context, table, key string) (bool, error) {
	var ok bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		ok = bucket.Get([]byte(key)) != nil
		return nil
	})
	if err != nil {
		return false, kverrors.Storage("contains", table, key, err.Error())
	}
	return ok, nil
}

func (b *Backend) Del(_ context.Context, table, key string) (wire.Value, bool, error) {
	var prev wire.Value
	var hadPrev bool
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		raw := bucket.Get([]byte(key))
		if raw == nil {
			return nil
		}
		parsed, err := wire.ValueFromRaw(raw)
		if err != nil {
			return err
		}
		prev, hadPrev = parsed, true
		return bucket.Delete([]byte(key))
	})
	if err != nil {
		return wire.Value{}, false, kverrors.Storage("del", table, key, err.Error())
	}
	return prev, hadPrev, nil
}

func (b *Backend) GetAll(_ context.Context, table string) ([]wire.Kvpair, error) {
	var pairs []wire.Kvpair
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(table))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(k, raw []byte) error {
			v, err := wire.ValueFromRaw(raw)
			if err != nil {
				return err
			}
			pairs = append(pairs, wire.Kvpair{Key: string(k), Value: v})
			return nil
		})
	})
	if err != nil {
		return nil, kverrors.Storage("get_all", table, "", err.Error())
	}
	return pairs, nil
}

func (b *Backend) Iter(ctx context.Context, table string) (storage.Iterator, error) {
	pairs, err := b.GetAll(ctx, table)
	if err != nil {
		return nil, err
	}
	return storage.NewSliceIterator(pairs), nil
}

func (b *Backend) Close() error {
	if err := b.db.Close(); err != nil {
		return fmt.Errorf("boltstore: close: %w", err)
	}
	return nil
}
