//go:build integration

package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		url = "redis://localhost:6379/15"
	}
	c, err := NewClient(context.Background(), url, time.Minute)
	if err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestSnapshotRoundTrip(t *testing.T) {
	c := setup(t)
	ctx := context.Background()
	id := "test-match-1"
	t.Cleanup(func() { c.Delete(ctx, id) })

	got, err := c.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, c.SetSnapshot(ctx, id, []byte(`{"phase":{"kind":"placing"}}`), 4))

	got, err = c.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.JSONEq(t, `{"phase":{"kind":"placing"}}`, string(got))

	turn, err := c.GetTurn(ctx, id)
	require.NoError(t, err)
	require.Equal(t, 4, turn)

	ttl, err := c.rdb.TTL(ctx, snapshotKey(id)).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))

	require.NoError(t, c.Delete(ctx, id))
	got, err = c.GetSnapshot(ctx, id)
	require.NoError(t, err)
	require.Nil(t, got)
}
