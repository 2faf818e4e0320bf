package ops

import (
	"context"
	"sort"

	"github.com/flowforge/redisrun/pkg/kv"
)

// runContext carries the per-execution state handlers operate on: the store
// handle and the caller's parameter source.
type runContext struct {
	store  kv.Store
	params ParameterSource
}

// HandlerFunc executes one operation for one item with its resolved
// parameters and returns the output record.
type handlerFunc func(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error)

// Operation is one entry of the closed operation catalogue. The declared
// parameter list doubles as documentation and validation: every parameter is
// resolved and coerced before the handler runs.
type Operation struct {
	Name   string
	Params []Param

	// Once marks operations that run once per execution instead of once
	// per item (the diagnostic report).
	Once bool

	handler handlerFunc
}

var registry = buildRegistry()

func buildRegistry() map[string]Operation {
	catalogue := []Operation{
		// Keys and strings
		{
			Name:    "delete",
			Params:  []Param{{Name: "key", Kind: ParamString, Required: true}},
			handler: handleDelete,
		},
		{
			Name: "get",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "keyType", Kind: ParamString, Default: TypeAutomatic},
				{Name: "propertyName", Kind: ParamString, Default: "data"},
			},
			handler: handleGet,
		},
		{
			Name: "set",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "value", Kind: ParamAny, Required: true},
				{Name: "keyType", Kind: ParamString, Default: TypeAutomatic},
				{Name: "expire", Kind: ParamBool, Default: false},
				{Name: "ttl", Kind: ParamInt, Default: int64(60)},
				{Name: "mode", Kind: ParamString, Default: ""},
				{Name: "valueIsJson", Kind: ParamBool, Default: true},
			},
			handler: handleSet,
		},
		{
			Name: "incr",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "by", Kind: ParamInt, Default: int64(1)},
				{Name: "expire", Kind: ParamBool, Default: false},
				{Name: "ttl", Kind: ParamInt, Default: int64(60)},
			},
			handler: handleIncr,
		},
		{
			Name: "decr",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "by", Kind: ParamInt, Default: int64(1)},
				{Name: "expire", Kind: ParamBool, Default: false},
				{Name: "ttl", Kind: ParamInt, Default: int64(60)},
			},
			handler: handleDecr,
		},
		{
			Name:    "exists",
			Params:  []Param{{Name: "keys", Kind: ParamString, Required: true}},
			handler: handleExists,
		},
		{
			Name:    "mget",
			Params:  []Param{{Name: "keys", Kind: ParamString, Required: true}},
			handler: handleMGet,
		},
		{
			Name:    "mset",
			Params:  []Param{{Name: "keysAndValues", Kind: ParamString, Required: true}},
			handler: handleMSet,
		},
		{
			Name: "keys",
			Params: []Param{
				{Name: "keyPattern", Kind: ParamString, Required: true},
				{Name: "getValues", Kind: ParamBool, Default: true},
			},
			handler: handleKeys,
		},
		{
			Name: "scan",
			Params: []Param{
				{Name: "cursor", Kind: ParamString, Default: "0"},
				{Name: "keyPattern", Kind: ParamString, Default: "*"},
				{Name: "count", Kind: ParamInt, Default: int64(100)},
			},
			handler: handleScan,
		},
		{
			Name:    "ttl",
			Params:  []Param{{Name: "key", Kind: ParamString, Required: true}},
			handler: handleTTL,
		},
		{
			Name:    "persist",
			Params:  []Param{{Name: "key", Kind: ParamString, Required: true}},
			handler: handlePersist,
		},
		{
			Name: "expireat",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "timestamp", Kind: ParamInt, Required: true},
			},
			handler: handleExpireAt,
		},

		// Lists
		{
			Name: "push",
			Params: []Param{
				{Name: "list", Kind: ParamString, Required: true},
				{Name: "messageData", Kind: ParamAny, Required: true},
				{Name: "tail", Kind: ParamBool, Default: false},
			},
			handler: handlePush,
		},
		{
			Name: "pop",
			Params: []Param{
				{Name: "list", Kind: ParamString, Required: true},
				{Name: "tail", Kind: ParamBool, Default: false},
				{Name: "propertyName", Kind: ParamString, Default: "data"},
			},
			handler: handlePop,
		},
		{
			Name: "bpop",
			Params: []Param{
				{Name: "list", Kind: ParamString, Required: true},
				{Name: "tail", Kind: ParamBool, Default: false},
				{Name: "timeout", Kind: ParamInt, Default: int64(0)},
				{Name: "propertyName", Kind: ParamString, Default: "data"},
			},
			handler: handleBPop,
		},
		{
			Name:    "llen",
			Params:  []Param{{Name: "list", Kind: ParamString, Required: true}},
			handler: handleLLen,
		},

		// Sets
		{
			Name: "sadd",
			Params: []Param{
				{Name: "set", Kind: ParamString, Required: true},
				{Name: "members", Kind: ParamString, Required: true},
			},
			handler: handleSAdd,
		},
		{
			Name: "srem",
			Params: []Param{
				{Name: "set", Kind: ParamString, Required: true},
				{Name: "members", Kind: ParamString, Required: true},
			},
			handler: handleSRem,
		},
		{
			Name:    "smembers",
			Params:  []Param{{Name: "set", Kind: ParamString, Required: true}},
			handler: handleSMembers,
		},
		{
			Name: "sismember",
			Params: []Param{
				{Name: "set", Kind: ParamString, Required: true},
				{Name: "member", Kind: ParamString, Required: true},
			},
			handler: handleSIsMember,
		},
		{
			Name:    "scard",
			Params:  []Param{{Name: "set", Kind: ParamString, Required: true}},
			handler: handleSCard,
		},

		// Sorted sets
		{
			Name: "zadd",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "members", Kind: ParamString, Required: true},
			},
			handler: handleZAdd,
		},
		{
			Name: "zrange",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "start", Kind: ParamInt, Default: int64(0)},
				{Name: "stop", Kind: ParamInt, Default: int64(-1)},
				{Name: "withScores", Kind: ParamBool, Default: false},
			},
			handler: handleZRange,
		},
		{
			Name: "zrem",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "members", Kind: ParamString, Required: true},
			},
			handler: handleZRem,
		},
		{
			Name:    "zcard",
			Params:  []Param{{Name: "key", Kind: ParamString, Required: true}},
			handler: handleZCard,
		},

		// Hash introspection
		{
			Name:    "hlen",
			Params:  []Param{{Name: "hash", Kind: ParamString, Required: true}},
			handler: handleHLen,
		},
		{
			Name:    "hkeys",
			Params:  []Param{{Name: "hash", Kind: ParamString, Required: true}},
			handler: handleHKeys,
		},
		{
			Name:    "hvals",
			Params:  []Param{{Name: "hash", Kind: ParamString, Required: true}},
			handler: handleHVals,
		},
		{
			Name: "hexists",
			Params: []Param{
				{Name: "hash", Kind: ParamString, Required: true},
				{Name: "field", Kind: ParamString, Required: true},
			},
			handler: handleHExists,
		},

		// Scripting, diagnostics, pub/sub, extension commands
		{
			Name: "eval",
			Params: []Param{
				{Name: "script", Kind: ParamString, Required: true},
				{Name: "keys", Kind: ParamString, Default: ""},
				{Name: "args", Kind: ParamString, Default: ""},
			},
			handler: handleEval,
		},
		{
			Name:    "info",
			Once:    true,
			handler: handleInfo,
		},
		{
			Name: "publish",
			Params: []Param{
				{Name: "channel", Kind: ParamString, Required: true},
				{Name: "messageData", Kind: ParamAny, Required: true},
			},
			handler: handlePublish,
		},
		{
			Name: "jsonget",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "path", Kind: ParamString, Default: "$"},
				{Name: "propertyName", Kind: ParamString, Default: "data"},
			},
			handler: handleJSONGet,
		},
		{
			Name: "jsonset",
			Params: []Param{
				{Name: "key", Kind: ParamString, Required: true},
				{Name: "path", Kind: ParamString, Default: "$"},
				{Name: "value", Kind: ParamAny, Required: true},
			},
			handler: handleJSONSet,
		},
	}

	out := make(map[string]Operation, len(catalogue))
	for _, op := range catalogue {
		out[op.Name] = op
	}
	return out
}

// Lookup returns the descriptor for an operation identifier.
func Lookup(name string) (Operation, bool) {
	op, ok := registry[name]
	return op, ok
}

// Operations lists all operation identifiers in sorted order.
func Operations() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
