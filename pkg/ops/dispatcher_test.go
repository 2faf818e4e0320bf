package ops

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowforge/redisrun/pkg/kv"
	"github.com/flowforge/redisrun/pkg/kv/memory"
)

// countingStore records how many times the handle was closed.
type countingStore struct {
	kv.Store
	closes int
}

func (c *countingStore) Close() error {
	c.closes++
	return c.Store.Close()
}

// keepOpen lets a test reuse one underlying store across executions.
type keepOpen struct {
	kv.Store
}

func (keepOpen) Close() error { return nil }

func newTestDispatcher() *Dispatcher {
	return NewDispatcher(nil, nil)
}

func TestExecuteStoreSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	defer mem.Close()
	d := newTestDispatcher()

	_, err := d.ExecuteStore(ctx, keepOpen{mem}, "set",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"key": "greeting", "value": "hello"}},
		Options{})
	require.NoError(t, err)

	results, err := d.ExecuteStore(ctx, keepOpen{mem}, "get",
		NewItems([]map[string]any{{"source": "test"}}),
		MapSource{Base: map[string]any{"key": "greeting"}},
		Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "hello", results[0].Data["data"])
	assert.Equal(t, "test", results[0].Data["source"], "the input payload passes through")
}

func TestExecuteStoreClosesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher()

	tests := []struct {
		name      string
		operation string
		params    ParameterSource
		opts      Options
		wantErr   bool
	}{
		{
			name:      "success",
			operation: "set",
			params:    MapSource{Base: map[string]any{"key": "k", "value": "v"}},
		},
		{
			name:      "unknown operation",
			operation: "teleport",
			wantErr:   true,
		},
		{
			name:      "item failure aborts",
			operation: "mset",
			params:    MapSource{Base: map[string]any{"keysAndValues": "k1 v1 k2"}},
			wantErr:   true,
		},
		{
			name:      "item failure isolated",
			operation: "mset",
			params:    MapSource{Base: map[string]any{"keysAndValues": "k1 v1 k2"}},
			opts:      Options{ContinueOnFail: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &countingStore{Store: memory.NewStore()}
			_, err := d.ExecuteStore(ctx, store, tt.operation,
				NewItems([]map[string]any{{}}), tt.params, tt.opts)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, 1, store.closes)
		})
	}
}

func TestExecuteStoreAbortsOnItemFailure(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{Store: memory.NewStore()}
	d := newTestDispatcher()

	params := MapSource{
		Base: map[string]any{"keysAndValues": "k v"},
		PerItem: []map[string]any{
			nil,
			{"keysAndValues": "k1 v1 k2"}, // odd token count
			nil,
		},
	}

	results, err := d.ExecuteStore(ctx, store, "mset",
		NewItems([]map[string]any{{}, {}, {}}), params, Options{})

	require.Error(t, err)
	assert.Nil(t, results)
	assert.Equal(t, 1, store.closes)

	var ierr *ItemError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, 1, ierr.Index)

	var perr *ParameterError
	assert.ErrorAs(t, err, &perr)
}

func TestExecuteStoreContinueOnFail(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	defer mem.Close()
	d := newTestDispatcher()

	params := MapSource{
		Base: map[string]any{"keysAndValues": "k v"},
		PerItem: []map[string]any{
			{"keysAndValues": "a 1"},
			{"keysAndValues": "b 2 c"}, // odd token count
			{"keysAndValues": "d 3"},
		},
	}

	results, err := d.ExecuteStore(ctx, keepOpen{mem}, "mset",
		NewItems([]map[string]any{{"n": 0.0}, {"n": 1.0}, {"n": 2.0}}),
		params, Options{ContinueOnFail: true})

	require.NoError(t, err)
	require.Len(t, results, 3, "one result per item, failed or not")

	assert.Equal(t, 0, results[0].Index)
	assert.Empty(t, results[0].Error)
	assert.Equal(t, 0.0, results[0].Data["n"])

	assert.Equal(t, 1, results[1].Index)
	assert.NotEmpty(t, results[1].Error)
	assert.Nil(t, results[1].Data)

	assert.Equal(t, 2, results[2].Index)
	assert.Empty(t, results[2].Error)

	// The surviving writes landed; the failed item wrote nothing.
	got, err := mem.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", got)
	_, err = mem.Get(ctx, "b")
	assert.True(t, errors.Is(err, kv.ErrNotFound))
}

func TestExecuteStoreMissingRequiredParameter(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher()

	_, err := d.ExecuteStore(ctx, memory.NewStore(), "set",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"value": "v"}}, Options{})

	var perr *ParameterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "key", perr.Name)
}

func TestExecuteStoreConditionalSetReportsOutcome(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	defer mem.Close()
	require.NoError(t, mem.Set(ctx, "taken", "v1", 0))
	d := newTestDispatcher()

	results, err := d.ExecuteStore(ctx, keepOpen{mem}, "set",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"key": "taken", "value": "v2", "mode": "nx"}},
		Options{})

	require.NoError(t, err, "an unmet condition is data, not an error")
	require.Len(t, results, 1)
	assert.Equal(t, false, results[0].Data["success"])
	assert.Equal(t, ReasonKeyAlreadyExists, results[0].Data["reason"])

	got, err := mem.Get(ctx, "taken")
	require.NoError(t, err)
	assert.Equal(t, "v1", got)
}

func TestExecuteStoreExistsCountsPresentKeys(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	defer mem.Close()
	require.NoError(t, mem.Set(ctx, "key1", "v", 0))
	require.NoError(t, mem.Set(ctx, "key2", "v", 0))
	d := newTestDispatcher()

	results, err := d.ExecuteStore(ctx, keepOpen{mem}, "exists",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"keys": "key1 key2 key3"}},
		Options{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(2), results[0].Data["exists"])
	assert.Equal(t, []string{"key1", "key2", "key3"}, results[0].Data["keys"])
}

func TestExecuteStoreInfoRunsOnce(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher()

	results, err := d.ExecuteStore(ctx, memory.NewStore(), "info",
		NewItems([]map[string]any{{}, {}, {}}), nil, Options{})

	require.NoError(t, err)
	require.Len(t, results, 1, "the diagnostic report runs once per execution")
	assert.Equal(t, "master", results[0].Data["role"])

	keyspace, ok := results[0].Data["db0"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, keyspace, "keys")
}

func TestExecuteStoreScanPages(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	defer mem.Close()
	for _, key := range []string{"p1", "p2", "p3", "p4", "p5"} {
		require.NoError(t, mem.Set(ctx, key, "v", 0))
	}
	d := newTestDispatcher()

	cursor := "0"
	var seen []string
	for i := 0; i < 10; i++ {
		results, err := d.ExecuteStore(ctx, keepOpen{mem}, "scan",
			NewItems([]map[string]any{{}}),
			MapSource{Base: map[string]any{"cursor": cursor, "keyPattern": "p*", "count": 2}},
			Options{})
		require.NoError(t, err)
		require.Len(t, results, 1)

		seen = append(seen, results[0].Data["keys"].([]string)...)
		cursor = results[0].Data["cursor"].(string)
		if cursor == "0" {
			break
		}
	}

	assert.Equal(t, "0", cursor, "the scan must terminate")
	assert.ElementsMatch(t, []string{"p1", "p2", "p3", "p4", "p5"}, seen)
}

func TestExecuteStoreScanRejectsBadCursor(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher()

	_, err := d.ExecuteStore(ctx, memory.NewStore(), "scan",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"cursor": "not-a-cursor"}},
		Options{})

	var perr *ParameterError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "cursor", perr.Name)
}

func TestExecuteStoreUnsupportedCommandIsIsolatable(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher()

	// The in-memory backend cannot run scripts, so this surfaces a store
	// error. Under isolation it becomes an inline record.
	results, err := d.ExecuteStore(ctx, memory.NewStore(), "eval",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"script": "return 1"}},
		Options{ContinueOnFail: true})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, results[0].Error)
}

func TestExecuteStorePushPopRoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	defer mem.Close()
	d := newTestDispatcher()

	payload := map[string]any{"event": "signup", "count": 2.0}
	_, err := d.ExecuteStore(ctx, keepOpen{mem}, "push",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"list": "events", "messageData": payload}},
		Options{})
	require.NoError(t, err)

	results, err := d.ExecuteStore(ctx, keepOpen{mem}, "pop",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"list": "events"}},
		Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, payload, results[0].Data["data"], "structured payloads decode back")
}

func TestExecuteStorePopEmptyListYieldsNull(t *testing.T) {
	ctx := context.Background()
	d := newTestDispatcher()

	results, err := d.ExecuteStore(ctx, memory.NewStore(), "pop",
		NewItems([]map[string]any{{}}),
		MapSource{Base: map[string]any{"list": "empty", "propertyName": "out.value"}},
		Options{})

	require.NoError(t, err)
	require.Len(t, results, 1)
	nested, ok := results[0].Data["out"].(map[string]any)
	require.True(t, ok, "dot paths create nested maps")
	value, present := nested["value"]
	assert.True(t, present)
	assert.Nil(t, value)
}

func TestLookup(t *testing.T) {
	_, ok := Lookup("get")
	assert.True(t, ok)
	_, ok = Lookup("flushall")
	assert.False(t, ok)

	all := Operations()
	assert.True(t, sort.StringsAreSorted(all))

	names := make(map[string]bool, len(all))
	for _, name := range all {
		names[name] = true
	}
	for _, want := range []string{
		"delete", "get", "set", "incr", "decr", "exists", "mget", "mset",
		"keys", "scan", "ttl", "persist", "expireat",
		"push", "pop", "bpop", "llen",
		"sadd", "srem", "smembers", "sismember", "scard",
		"zadd", "zrange", "zrem", "zcard",
		"hlen", "hkeys", "hvals", "hexists",
		"eval", "info", "publish", "jsonget", "jsonset",
	} {
		assert.True(t, names[want], "catalogue is missing %q", want)
	}
}
