package kv_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/redisrun/pkg/kv"
	_ "github.com/flowforge/redisrun/pkg/kv/memory"
	_ "github.com/flowforge/redisrun/pkg/kv/redis"
)

func TestNewStoreFromConfigMemory(t *testing.T) {
	store, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendMemory})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "k", "v", 0))
	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewStoreFromConfigRedisRequiresURL(t *testing.T) {
	_, err := kv.NewStoreFromConfig(kv.Config{Backend: kv.BackendRedis})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis URL")
}

func TestNewStoreFromConfigUnknownBackend(t *testing.T) {
	_, err := kv.NewStoreFromConfig(kv.Config{Backend: "etcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported backend")
}
