//go:build integration

package backend

import (
	"testing"

	st "github.com/cachegate/cachegate/settings"
	"github.com/stretchr/testify/require"
)

// requires a redis endpoint in CG__REDIS__ENDPOINT

func TestRedisBackend(t *testing.T) {
	st.ResetSettings()
	b, err := NewRedisBackend("inttest")
	require.Nil(t, err)

	// clear previous run
	err = b.RemoveBin(ctx)
	require.Nil(t, err)

	// should be same tests as memory backend as they should function identically
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

	err = b.Invalidate(ctx, "page:front")
	require.Nil(t, err)
	item, err = b.Get(ctx, "page:front", false)
	require.Nil(t, err)
	require.Nil(t, item)
	item, err = b.Get(ctx, "page:front", true)
	require.Nil(t, err)
	require.NotNil(t, item)
	require.False(t, item.Valid)

	err = b.SetMultiple(ctx, map[string]Item{
		"a": {Data: []byte("1"), Expire: PermanentExpire},
		"b": {Data: []byte("2"), Expire: PermanentExpire},
	})
	require.Nil(t, err)
	found, err := b.GetMultiple(ctx, []string{"a", "b", "c"}, false)
	require.Nil(t, err)
	require.Len(t, found, 2)

	err = b.RemoveBin(ctx)
	require.Nil(t, err)
	found, err = b.GetMultiple(ctx, []string{"a", "b"}, false)
	require.Nil(t, err)
	require.Len(t, found, 0)
}
