package redis

import (
	"context"
	"os"
	"testing"

	"github.com/flowforge/redisrun/pkg/kv"
	"github.com/flowforge/redisrun/pkg/kv/kvtest"
)

func TestRedisStore(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("REDIS_URL not set, skipping Redis tests")
	}

	factory := func(t *testing.T) kv.Store {
		store, err := New(redisURL)
		if err != nil {
			t.Fatalf("Failed to create Redis store: %v", err)
		}

		// Clean up any leftover test keys
		keys, err := store.Keys(context.Background(), "test:*")
		if err == nil && len(keys) > 0 {
			store.Del(context.Background(), keys...)
		}

		return store
	}

	kvtest.RunConformanceTests(t, factory)
}
