package storage_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shinemost/kvbroker/storage"
	"github.com/shinemost/kvbroker/storage/boltstore"
	"github.com/shinemost/kvbroker/storage/memory"
	"github.com/shinemost/kvbroker/wire"
)

func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()
	boltBackend, err := boltstore.Open(filepath.Join(t.TempDir(), "conformance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { boltBackend.Close() })
	return map[string]storage.Backend{
		"memory": memory.New(),
		"bolt":   boltBackend,
	}
}

func TestConformance(t *testing.T) {
	ctx := context.Background()
	for name, backend := range backends(t) {
		backend := backend
		t.Run(name, func(t *testing.T) {
			_, ok, err := backend.Get(ctx, "missing", "k")
			require.NoError(t, err)
			require.False(t, ok)

			exists, err := backend.Contains(ctx, "missing", "k")
			require.NoError(t, err)
			require.False(t, exists)

			_, hadPrev, err := backend.Set(ctx, "t1", "hello", wire.StringValue("world"))
			require.NoError(t, err)
			require.False(t, hadPrev)

			prev, hadPrev, err := backend.Set(ctx, "t1", "hello", wire.StringValue("world2"))
			require.NoError(t, err)
			require.True(t, hadPrev)
			require.Equal(t, wire.StringValue("world"), prev)

			v, ok, err := backend.Get(ctx, "t1", "hello")
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, wire.StringValue("world2"), v)

			exists, err = backend.Contains(ctx, "t1", "hello")
			require.NoError(t, err)
			require.True(t, exists)

			delPrev, hadPrev, err := backend.Del(ctx, "t1", "hello")
			require.NoError(t, err)
			require.True(t, hadPrev)
			require.Equal(t, wire.StringValue("world2"), delPrev)

			_, hadPrev, err = backend.Del(ctx, "t1", "hello")
			require.NoError(t, err)
			require.False(t, hadPrev)

			_, _, err = backend.Set(ctx, "score", "u1", wire.IntValue(10))
			require.NoError(t, err)
			_, _, err = backend.Set(ctx, "score", "u2", wire.IntValue(8))
			require.NoError(t, err)
			_, _, err = backend.Set(ctx, "score", "u3", wire.IntValue(11))
			require.NoError(t, err)
			_, _, err = backend.Set(ctx, "score", "u1", wire.IntValue(6))
			require.NoError(t, err)

			pairs, err := backend.GetAll(ctx, "score")
			require.NoError(t, err)
			require.Len(t, pairs, 3)

			byKey := map[string]wire.Value{}
			for _, p := range pairs {
				byKey[p.Key] = p.Value
			}
			require.Equal(t, wire.IntValue(6), byKey["u1"])
			require.Equal(t, wire.IntValue(8), byKey["u2"])
			require.Equal(t, wire.IntValue(11), byKey["u3"])

			empty, err := backend.GetAll(ctx, "no-such-table")
			require.NoError(t, err)
			require.Empty(t, empty)

			iter, err := backend.Iter(ctx, "score")
			require.NoError(t, err)
			count := 0
			for {
				_, ok := iter.Next()
				if !ok {
					break
				}
				count++
			}
			require.Equal(t, 3, count)
		})
	}
}
