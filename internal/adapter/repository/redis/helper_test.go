package redis

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// newTestRedisClient connects to a private miniredis. Retries are off so
// tests that stop the server see the failure on the first command.
func newTestRedisClient(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return client, mr
}

// requireTTL asserts key exists with a TTL close to want.
func requireTTL(t *testing.T, mr *miniredis.Miniredis, key string, want time.Duration) {
	t.Helper()
	require.True(t, mr.Exists(key), "key %s missing", key)
	require.InDelta(t, want.Seconds(), mr.TTL(key).Seconds(), 1)
}
