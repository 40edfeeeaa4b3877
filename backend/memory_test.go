package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestMemoryBackend(t *testing.T) {
	b := NewMemoryBackend()

	item, err := b.Get(ctx, "missing", false)
	require.Nil(t, err)
	require.Nil(t, item)

	err = b.Set(ctx, "page:front", []byte("payload"), PermanentExpire, []string{"node:1"})
	require.Nil(t, err)

	item, err = b.Get(ctx, "page:front", false)
	require.Nil(t, err)
	require.NotNil(t, item)
	require.Equal(t, []byte("payload"), item.Data)
	require.Equal(t, PermanentExpire, item.Expire)
	require.Equal(t, []string{"node:1"}, item.Tags)
	require.True(t, item.Valid)

	err = b.Delete(ctx, "page:front")
	require.Nil(t, err)
	item, err = b.Get(ctx, "page:front", false)
	require.Nil(t, err)
	require.Nil(t, item)
}

func TestMemoryBackendMultiple(t *testing.T) {
	b := NewMemoryBackend()

	err := b.SetMultiple(ctx, map[string]Item{
		"a": {Data: []byte("1"), Expire: PermanentExpire},
		"b": {Data: []byte("2"), Expire: PermanentExpire},
	})
	require.Nil(t, err)

	found, err := b.GetMultiple(ctx, []string{"a", "b", "c"}, false)
	require.Nil(t, err)
	require.Len(t, found, 2)
	require.Equal(t, []byte("1"), found["a"].Data)
	require.Equal(t, []byte("2"), found["b"].Data)

	err = b.DeleteMultiple(ctx, []string{"a", "b"})
	require.Nil(t, err)
	found, err = b.GetMultiple(ctx, []string{"a", "b"}, false)
	require.Nil(t, err)
	require.Len(t, found, 0)
}

func TestMemoryBackendInvalidate(t *testing.T) {
	b := NewMemoryBackend()

	err := b.Set(ctx, "k", []byte("v"), PermanentExpire, nil)
	require.Nil(t, err)

	err = b.Invalidate(ctx, "k")
	require.Nil(t, err)

	item, err := b.Get(ctx, "k", false)
	require.Nil(t, err)
	require.Nil(t, item)

	item, err = b.Get(ctx, "k", true)
	require.Nil(t, err)
	require.NotNil(t, item)
	require.False(t, item.Valid)

	err = b.Set(ctx, "k2", []byte("v2"), PermanentExpire, nil)
	require.Nil(t, err)
	err = b.InvalidateAll(ctx)
	require.Nil(t, err)
	item, err = b.Get(ctx, "k2", false)
	require.Nil(t, err)
	require.Nil(t, item)
}

func TestMemoryBackendExpiry(t *testing.T) {
	b := NewMemoryBackend()
	now := time.Unix(1000000, 0)
	b.nowFunc = func() time.Time { return now }

	err := b.Set(ctx, "soon", []byte("v"), now.Add(time.Minute).Unix(), nil)
	require.Nil(t, err)

	item, err := b.Get(ctx, "soon", false)
	require.Nil(t, err)
	require.NotNil(t, item)

	// move past the expiry
	now = now.Add(2 * time.Minute)
	item, err = b.Get(ctx, "soon", false)
	require.Nil(t, err)
	require.Nil(t, item)

	// expired but still retrievable until collected
	item, err = b.Get(ctx, "soon", true)
	require.Nil(t, err)
	require.NotNil(t, item)

	err = b.GarbageCollection(ctx)
	require.Nil(t, err)
	item, err = b.Get(ctx, "soon", true)
	require.Nil(t, err)
	require.Nil(t, item)
}

func TestMemoryBackendRemoveBin(t *testing.T) {
	b := NewMemoryBackend()
	err := b.Set(ctx, "k", []byte("v"), PermanentExpire, nil)
	require.Nil(t, err)

	err = b.RemoveBin(ctx)
	require.Nil(t, err)

	item, err := b.Get(ctx, "k", true)
	require.Nil(t, err)
	require.Nil(t, item)
}
