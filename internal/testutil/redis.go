package testutil

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisCandidates are tried in order when TEST_REDIS_ADDR is unset: the local
// test profile, then a plain local or compose-network instance.
var redisCandidates = []string{"localhost:56379", "localhost:6379", "redis:6379"}

// SetupTestRedis connects to the first reachable test Redis and closes the
// client when the test ends. TEST_REDIS_DB selects the logical database.
func SetupTestRedis(t testing.TB) *redis.Client {
	t.Helper()

	addrs := redisCandidates
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		addrs = []string{addr}
	}
	db := 0
	if v := os.Getenv("TEST_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			t.Fatalf("invalid TEST_REDIS_DB %q", v)
		}
		db = n
	}

	var lastErr error
	for _, addr := range addrs {
		client := redis.NewClient(&redis.Options{Addr: addr, DB: db})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err == nil {
			t.Cleanup(func() { _ = client.Close() })
			return client
		}
		_ = client.Close()
		lastErr = errors.Join(lastErr, err)
	}
	unavailable(t, "redis", lastErr)
	return nil
}

// RedisKeyPrefix returns a prefix unique to this test run and deletes every
// key under it when the test ends.
func RedisKeyPrefix(t testing.TB, client redis.UniversalClient) string {
	t.Helper()
	prefix := "drivenotes:test:" + uniqueSuffix() + ":"
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		iter := client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	})
	return prefix
}
