// Package kvtest provides conformance tests for kv.Store implementations
package kvtest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
)

// StoreFactory creates a fresh Store instance for testing
type StoreFactory func(t *testing.T) kv.Store

// RunConformanceTests runs all conformance tests against a Store implementation
func RunConformanceTests(t *testing.T, factory StoreFactory) {
	t.Run("StringOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"SetGet", testSetGet},
			{"GetNonExistent", testGetNonExistent},
			{"SetNX", testSetNX},
			{"SetXX", testSetXX},
			{"SetWithTTL", testSetWithTTL},
		})
	})
	t.Run("KeyOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"DelExists", testDelExists},
			{"Type", testType},
			{"KeysPattern", testKeysPattern},
			{"Scan", testScan},
			{"ExpirePersist", testExpirePersist},
			{"ExpireAt", testExpireAt},
			{"TTLSentinels", testTTLSentinels},
		})
	})
	t.Run("CounterOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"IncrDecr", testIncrDecr},
		})
	})
	t.Run("HashOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"HSetHGetAll", testHSetHGetAll},
			{"HashIntrospection", testHashIntrospection},
		})
	})
	t.Run("SetOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"SAddSMembers", testSAddSMembers},
			{"SRemSCard", testSRemSCard},
		})
	})
	t.Run("ListOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"PushPop", testPushPop},
			{"LLenLRange", testLLenLRange},
			{"BlockingPop", testBlockingPop},
		})
	})
	t.Run("SortedSetOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"ZAddZRange", testZAddZRange},
			{"ZRemZCard", testZRemZCard},
		})
	})
	t.Run("MultiOperations", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"MSetMGet", testMSetMGet},
		})
	})
	t.Run("Diagnostics", func(t *testing.T) {
		runSuite(t, factory, []namedTest{
			{"Info", testInfo},
			{"Ping", testPing},
		})
	})
}

type namedTest struct {
	name string
	test func(t *testing.T, store kv.Store)
}

func runSuite(t *testing.T, factory StoreFactory, tests []namedTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := factory(t)
			defer store.Close()
			tt.test(t, store)
		})
	}
}

func testSetGet(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:string"
	value := "hello world"

	if err := store.Set(ctx, key, value, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	result, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if result != value {
		t.Fatalf("Expected %q, got %q", value, result)
	}
}

func testGetNonExistent(t *testing.T, store kv.Store) {
	ctx := context.Background()

	_, err := store.Get(ctx, "test:nonexistent")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func testSetNX(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:setnx"

	ok, err := store.SetNX(ctx, key, "first", 0)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected SetNX to succeed on absent key")
	}

	ok, err = store.SetNX(ctx, key, "second", 0)
	if err != nil {
		t.Fatalf("SetNX failed: %v", err)
	}
	if ok {
		t.Fatal("Expected SetNX to fail on existing key")
	}

	value, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if value != "first" {
		t.Fatalf("Expected %q, got %q", "first", value)
	}
}

func testSetXX(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:setxx"

	ok, err := store.SetXX(ctx, key, "value", 0)
	if err != nil {
		t.Fatalf("SetXX failed: %v", err)
	}
	if ok {
		t.Fatal("Expected SetXX to fail on absent key")
	}

	if err := store.Set(ctx, key, "orig", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	ok, err = store.SetXX(ctx, key, "updated", 0)
	if err != nil {
		t.Fatalf("SetXX failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected SetXX to succeed on existing key")
	}
}

func testSetWithTTL(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:ttl"

	if err := store.Set(ctx, key, "value", time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ttl, err := store.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Fatalf("Expected TTL in (0, 1h], got %v", ttl)
	}
}

func testDelExists(t *testing.T, store kv.Store) {
	ctx := context.Background()

	store.Set(ctx, "test:del:1", "a", 0)
	store.Set(ctx, "test:del:2", "b", 0)

	count, err := store.Exists(ctx, "test:del:1", "test:del:2", "test:del:3")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 keys to exist, got %d", count)
	}

	deleted, err := store.Del(ctx, "test:del:1", "test:del:3")
	if err != nil {
		t.Fatalf("Del failed: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("Expected 1 deleted, got %d", deleted)
	}
}

func testType(t *testing.T, store kv.Store) {
	ctx := context.Background()

	store.Set(ctx, "test:type:str", "v", 0)
	store.HSet(ctx, "test:type:hash", map[string]string{"f": "v"})
	store.SAdd(ctx, "test:type:set", "m")
	store.RPush(ctx, "test:type:list", "e")

	for key, want := range map[string]string{
		"test:type:str":  "string",
		"test:type:hash": "hash",
		"test:type:set":  "set",
		"test:type:list": "list",
		"test:type:none": "none",
	} {
		got, err := store.Type(ctx, key)
		if err != nil {
			t.Fatalf("Type(%s) failed: %v", key, err)
		}
		if got != want {
			t.Fatalf("Type(%s): expected %q, got %q", key, want, got)
		}
	}
}

func testKeysPattern(t *testing.T, store kv.Store) {
	ctx := context.Background()

	store.Set(ctx, "test:keys:a", "1", 0)
	store.Set(ctx, "test:keys:b", "2", 0)
	store.Set(ctx, "test:other", "3", 0)

	keys, err := store.Keys(ctx, "test:keys:*")
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 keys, got %v", keys)
	}
}

func testScan(t *testing.T, store kv.Store) {
	ctx := context.Background()

	for _, key := range []string{"test:scan:a", "test:scan:b", "test:scan:c"} {
		store.Set(ctx, key, "v", 0)
	}

	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := store.Scan(ctx, cursor, "test:scan:*", 2)
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		for _, key := range keys {
			seen[key] = struct{}{}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	if len(seen) != 3 {
		t.Fatalf("Expected 3 keys over full scan, got %d", len(seen))
	}
}

func testExpirePersist(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:expire"

	store.Set(ctx, key, "v", 0)

	ok, err := store.Expire(ctx, key, time.Hour)
	if err != nil {
		t.Fatalf("Expire failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected Expire to succeed on existing key")
	}

	ok, err = store.Persist(ctx, key)
	if err != nil {
		t.Fatalf("Persist failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected Persist to clear the TTL")
	}

	ttl, err := store.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != -1*time.Second {
		t.Fatalf("Expected -1s (no TTL), got %v", ttl)
	}
}

func testTTLSentinels(t *testing.T, store kv.Store) {
	ctx := context.Background()

	// Missing key: ErrNotFound, never a negative duration.
	if _, err := store.TTL(ctx, "test:ttl:missing"); !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for missing key, got %v", err)
	}

	// Existing key without expiration: exactly -1s.
	key := "test:ttl:noexpiry"
	store.Set(ctx, key, "v", 0)

	ttl, err := store.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl != -1*time.Second {
		t.Fatalf("Expected -1s (no TTL), got %v", ttl)
	}
}

func testExpireAt(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:expireat"

	store.Set(ctx, key, "v", 0)

	ok, err := store.ExpireAt(ctx, key, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ExpireAt failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected ExpireAt to succeed on existing key")
	}

	ttl, err := store.TTL(ctx, key)
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 {
		t.Fatalf("Expected positive TTL, got %v", ttl)
	}
}

func testIncrDecr(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:counter"

	value, err := store.IncrBy(ctx, key, 5)
	if err != nil {
		t.Fatalf("IncrBy failed: %v", err)
	}
	if value != 5 {
		t.Fatalf("Expected 5, got %d", value)
	}

	value, err = store.DecrBy(ctx, key, 2)
	if err != nil {
		t.Fatalf("DecrBy failed: %v", err)
	}
	if value != 3 {
		t.Fatalf("Expected 3, got %d", value)
	}
}

func testHSetHGetAll(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:hash"
	fields := map[string]string{"name": "alice", "age": "30"}

	added, err := store.HSet(ctx, key, fields)
	if err != nil {
		t.Fatalf("HSet failed: %v", err)
	}
	if added != 2 {
		t.Fatalf("Expected 2 new fields, got %d", added)
	}

	result, err := store.HGetAll(ctx, key)
	if err != nil {
		t.Fatalf("HGetAll failed: %v", err)
	}
	if !reflect.DeepEqual(result, fields) {
		t.Fatalf("Expected %v, got %v", fields, result)
	}
}

func testHashIntrospection(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:hash:intro"

	store.HSet(ctx, key, map[string]string{"a": "1", "b": "2"})

	length, err := store.HLen(ctx, key)
	if err != nil {
		t.Fatalf("HLen failed: %v", err)
	}
	if length != 2 {
		t.Fatalf("Expected HLen 2, got %d", length)
	}

	keys, err := store.HKeys(ctx, key)
	if err != nil {
		t.Fatalf("HKeys failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("Expected 2 fields, got %v", keys)
	}

	vals, err := store.HVals(ctx, key)
	if err != nil {
		t.Fatalf("HVals failed: %v", err)
	}
	if len(vals) != 2 {
		t.Fatalf("Expected 2 values, got %v", vals)
	}

	exists, err := store.HExists(ctx, key, "a")
	if err != nil {
		t.Fatalf("HExists failed: %v", err)
	}
	if !exists {
		t.Fatal("Expected field 'a' to exist")
	}

	exists, err = store.HExists(ctx, key, "missing")
	if err != nil {
		t.Fatalf("HExists failed: %v", err)
	}
	if exists {
		t.Fatal("Expected field 'missing' to be absent")
	}
}

func testSAddSMembers(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:set"

	added, err := store.SAdd(ctx, key, "a", "b", "a")
	if err != nil {
		t.Fatalf("SAdd failed: %v", err)
	}
	if added != 2 {
		t.Fatalf("Expected 2 added, got %d", added)
	}

	members, err := store.SMembers(ctx, key)
	if err != nil {
		t.Fatalf("SMembers failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("Expected 2 members, got %v", members)
	}

	isMember, err := store.SIsMember(ctx, key, "a")
	if err != nil {
		t.Fatalf("SIsMember failed: %v", err)
	}
	if !isMember {
		t.Fatal("Expected 'a' to be a member")
	}
}

func testSRemSCard(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:set:rem"

	store.SAdd(ctx, key, "a", "b", "c")

	removed, err := store.SRem(ctx, key, "a", "missing")
	if err != nil {
		t.Fatalf("SRem failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 removed, got %d", removed)
	}

	count, err := store.SCard(ctx, key)
	if err != nil {
		t.Fatalf("SCard failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 remaining, got %d", count)
	}
}

func testPushPop(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:list"

	if _, err := store.RPush(ctx, key, "a", "b"); err != nil {
		t.Fatalf("RPush failed: %v", err)
	}
	if _, err := store.LPush(ctx, key, "z"); err != nil {
		t.Fatalf("LPush failed: %v", err)
	}

	head, err := store.LPop(ctx, key)
	if err != nil {
		t.Fatalf("LPop failed: %v", err)
	}
	if head != "z" {
		t.Fatalf("Expected %q, got %q", "z", head)
	}

	tail, err := store.RPop(ctx, key)
	if err != nil {
		t.Fatalf("RPop failed: %v", err)
	}
	if tail != "b" {
		t.Fatalf("Expected %q, got %q", "b", tail)
	}
}

func testLLenLRange(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:list:range"

	store.RPush(ctx, key, "a", "b", "c")

	length, err := store.LLen(ctx, key)
	if err != nil {
		t.Fatalf("LLen failed: %v", err)
	}
	if length != 3 {
		t.Fatalf("Expected length 3, got %d", length)
	}

	values, err := store.LRange(ctx, key, 0, -1)
	if err != nil {
		t.Fatalf("LRange failed: %v", err)
	}
	if !reflect.DeepEqual(values, []string{"a", "b", "c"}) {
		t.Fatalf("Expected [a b c], got %v", values)
	}
}

func testBlockingPop(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:list:blocking"

	store.RPush(ctx, key, "ready")

	origin, value, err := store.BLPop(ctx, time.Second, key)
	if err != nil {
		t.Fatalf("BLPop failed: %v", err)
	}
	if origin != key || value != "ready" {
		t.Fatalf("Expected (%q, %q), got (%q, %q)", key, "ready", origin, value)
	}

	// Timeout path on an empty list
	_, _, err = store.BRPop(ctx, 50*time.Millisecond, "test:list:empty")
	if !errors.Is(err, kv.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on timeout, got %v", err)
	}
}

func testZAddZRange(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:zset"

	added, err := store.ZAdd(ctx, key,
		kv.ZMember{Member: "one", Score: 1},
		kv.ZMember{Member: "two", Score: 2},
		kv.ZMember{Member: "three", Score: 3},
	)
	if err != nil {
		t.Fatalf("ZAdd failed: %v", err)
	}
	if added != 3 {
		t.Fatalf("Expected 3 added, got %d", added)
	}

	members, err := store.ZRange(ctx, key, 0, -1)
	if err != nil {
		t.Fatalf("ZRange failed: %v", err)
	}
	if !reflect.DeepEqual(members, []string{"one", "two", "three"}) {
		t.Fatalf("Expected [one two three], got %v", members)
	}

	scored, err := store.ZRangeWithScores(ctx, key, 0, 0)
	if err != nil {
		t.Fatalf("ZRangeWithScores failed: %v", err)
	}
	if len(scored) != 1 || scored[0].Member != "one" || scored[0].Score != 1 {
		t.Fatalf("Expected [{one 1}], got %v", scored)
	}
}

func testZRemZCard(t *testing.T, store kv.Store) {
	ctx := context.Background()
	key := "test:zset:rem"

	store.ZAdd(ctx, key,
		kv.ZMember{Member: "a", Score: 1},
		kv.ZMember{Member: "b", Score: 2},
	)

	removed, err := store.ZRem(ctx, key, "a")
	if err != nil {
		t.Fatalf("ZRem failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("Expected 1 removed, got %d", removed)
	}

	count, err := store.ZCard(ctx, key)
	if err != nil {
		t.Fatalf("ZCard failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("Expected 1 remaining, got %d", count)
	}
}

func testMSetMGet(t *testing.T, store kv.Store) {
	ctx := context.Background()

	err := store.MSet(ctx, map[string]string{
		"test:multi:a": "1",
		"test:multi:b": "2",
	})
	if err != nil {
		t.Fatalf("MSet failed: %v", err)
	}

	values, err := store.MGet(ctx, "test:multi:a", "test:multi:missing", "test:multi:b")
	if err != nil {
		t.Fatalf("MGet failed: %v", err)
	}
	if len(values) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(values))
	}
	if values[0] == nil || *values[0] != "1" {
		t.Fatalf("Expected first value 1, got %v", values[0])
	}
	if values[1] != nil {
		t.Fatalf("Expected nil for missing key, got %v", *values[1])
	}
	if values[2] == nil || *values[2] != "2" {
		t.Fatalf("Expected third value 2, got %v", values[2])
	}
}

func testInfo(t *testing.T, store kv.Store) {
	ctx := context.Background()

	report, err := store.Info(ctx)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if report == "" {
		t.Fatal("Expected non-empty report")
	}
}

func testPing(t *testing.T, store kv.Store) {
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
