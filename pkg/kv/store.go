package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key or field is not found
var ErrNotFound = errors.New("not found")

// ErrUnsupported is returned when a backend cannot execute a command
// (for example scripting on the in-memory store)
var ErrUnsupported = errors.New("command not supported by backend")

// ZMember is a sorted-set member with its score
type ZMember struct {
	Member string
	Score  float64
}

// Store defines the Redis command surface the dispatcher issues calls
// against. Values travel as strings; callers decide on encodings.
type Store interface {
	// String operations. A zero ttl means no expiration. SetNX and SetXX
	// report whether the write condition held; a false return is not an
	// error.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	SetXX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)

	// Counter operations
	IncrBy(ctx context.Context, key string, n int64) (int64, error)
	DecrBy(ctx context.Context, key string, n int64) (int64, error)

	// Key operations
	Del(ctx context.Context, keys ...string) (int64, error)
	Exists(ctx context.Context, keys ...string) (int64, error)
	Type(ctx context.Context, key string) (string, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ExpireAt(ctx context.Context, key string, at time.Time) (bool, error)
	Persist(ctx context.Context, key string) (bool, error)
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Hash operations
	HSet(ctx context.Context, key string, fields map[string]string) (int64, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HDel(ctx context.Context, key string, fields ...string) (int64, error)
	HLen(ctx context.Context, key string) (int64, error)
	HKeys(ctx context.Context, key string) ([]string, error)
	HVals(ctx context.Context, key string) ([]string, error)
	HExists(ctx context.Context, key, field string) (bool, error)

	// Set operations
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
	SIsMember(ctx context.Context, key, member string) (bool, error)
	SCard(ctx context.Context, key string) (int64, error)

	// List operations. BLPop and BRPop block until an element arrives or
	// the timeout elapses; a zero timeout blocks indefinitely. They return
	// the origin key and the popped value, or ErrNotFound on timeout.
	LPush(ctx context.Context, key string, values ...string) (int64, error)
	RPush(ctx context.Context, key string, values ...string) (int64, error)
	LPop(ctx context.Context, key string) (string, error)
	RPop(ctx context.Context, key string) (string, error)
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error)
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error)
	LLen(ctx context.Context, key string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Sorted-set operations
	ZAdd(ctx context.Context, key string, members ...ZMember) (int64, error)
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ZMember, error)
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
	ZCard(ctx context.Context, key string) (int64, error)

	// Multi operations. MGet returns nil entries for missing keys.
	MGet(ctx context.Context, keys ...string) ([]*string, error)
	MSet(ctx context.Context, pairs map[string]string) error

	// Scripting and raw command passthrough
	Eval(ctx context.Context, script string, keys []string, args []any) (any, error)
	Do(ctx context.Context, args ...any) (any, error)

	// Pub/sub and diagnostics
	Publish(ctx context.Context, channel, payload string) (int64, error)
	Info(ctx context.Context) (string, error)

	// Health check
	Ping(ctx context.Context) error

	// Cleanup
	Close() error
}
