package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	for _, addr := range []string{mr.Addr(), "redis://" + mr.Addr() + "/0"} {
		client, err := Connect(addr, true)
		require.NoError(t, err, addr)
		require.NotNil(t, client)
		require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
		_ = client.Close()
	}
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestConnect_UnreachableServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client, err := Connect(addr, false)
	assert.NoError(t, err)
	assert.Nil(t, client, "optional redis degrades to nil")

	_, err = Connect(addr, true)
	assert.Error(t, err)

	_, err = Connect("redis://%zz", true)
	assert.Error(t, err)
}
