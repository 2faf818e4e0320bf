package ops

import (
	"context"
	"strconv"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
)

func handleDelete(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	if _, err := rc.store.Del(ctx, p.str("key")); err != nil {
		return nil, err
	}
	return copyData(item.Data), nil
}

func handleGet(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")

	vt, err := resolveReadType(ctx, rc.store, key, p.str("keyType"))
	if err != nil {
		return nil, err
	}

	value, found, err := readValue(ctx, rc.store, key, vt)
	if err != nil {
		return nil, err
	}

	out := copyData(item.Data)
	if !found {
		// Absent key or unsupported representation: explicit null so the
		// caller can tell "no value" from "value missing from the record".
		setPath(out, p.str("propertyName"), nil)
		return out, nil
	}
	setPath(out, p.str("propertyName"), value)
	return out, nil
}

func handleSet(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")

	vt, err := inferWriteType(p.str("keyType"), p.raw("value"))
	if err != nil {
		return nil, err
	}

	var ttl time.Duration
	if p.boolean("expire") && p.i64("ttl") > 0 {
		ttl = time.Duration(p.i64("ttl")) * time.Second
	}

	mode := p.str("mode")
	result, err := writeValue(ctx, rc.store, key, vt, p.raw("value"), ttl, mode, p.boolean("valueIsJson"))
	if err != nil {
		return nil, err
	}

	// Conditional writes report their outcome; unconditional writes pass
	// the item through.
	if mode != "" {
		return result.asRecord(), nil
	}
	return copyData(item.Data), nil
}

func applyCounter(ctx context.Context, rc *runContext, p bag, apply func(context.Context, string, int64) (int64, error)) (map[string]any, error) {
	key := p.str("key")

	value, err := apply(ctx, key, p.i64("by"))
	if err != nil {
		return nil, err
	}

	if p.boolean("expire") && p.i64("ttl") > 0 {
		ttl := time.Duration(p.i64("ttl")) * time.Second
		if _, err := rc.store.Expire(ctx, key, ttl); err != nil {
			return nil, err
		}
	}

	return map[string]any{"key": key, "value": value}, nil
}

func handleIncr(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	return applyCounter(ctx, rc, p, rc.store.IncrBy)
}

func handleDecr(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	return applyCounter(ctx, rc, p, rc.store.DecrBy)
}

func handleExists(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	keys := tokens(p.str("keys"))
	if len(keys) == 0 {
		return nil, &ParameterError{Name: "keys", Reason: "at least one key is required"}
	}

	count, err := rc.store.Exists(ctx, keys...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"exists": count, "keys": keys}, nil
}

func handleMGet(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	keys := tokens(p.str("keys"))
	if len(keys) == 0 {
		return nil, &ParameterError{Name: "keys", Reason: "at least one key is required"}
	}

	values, err := rc.store.MGet(ctx, keys...)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(keys))
	for i, key := range keys {
		if values[i] == nil {
			out[key] = nil
			continue
		}
		out[key] = *values[i]
	}
	return out, nil
}

func handleMSet(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	kvPairs, err := pairs("keysAndValues", tokens(p.str("keysAndValues")))
	if err != nil {
		return nil, err
	}
	if len(kvPairs) == 0 {
		return nil, &ParameterError{Name: "keysAndValues", Reason: "at least one key/value pair is required"}
	}

	if err := rc.store.MSet(ctx, kvPairs); err != nil {
		return nil, err
	}
	return copyData(item.Data), nil
}

// handleKeys is the expansion operation: it scans for keys matching a
// pattern and, when requested, fetches each key's value via automatic type
// resolution, aggregating everything into a single record.
func handleKeys(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	keys, err := rc.store.Keys(ctx, p.str("keyPattern"))
	if err != nil {
		return nil, err
	}

	if !p.boolean("getValues") {
		return map[string]any{"keys": keys}, nil
	}

	out := make(map[string]any, len(keys))
	for _, key := range keys {
		vt, err := resolveReadType(ctx, rc.store, key, TypeAutomatic)
		if err != nil {
			return nil, err
		}
		value, found, err := readValue(ctx, rc.store, key, vt)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		out[key] = value
	}
	return out, nil
}

func handleScan(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	// The cursor is opaque: parsed only at the store boundary and echoed
	// back verbatim as a string.
	cursor, err := strconv.ParseUint(p.str("cursor"), 10, 64)
	if err != nil {
		return nil, &ParameterError{Name: "cursor", Reason: "cursor must be the value returned by the previous scan"}
	}

	keys, next, err := rc.store.Scan(ctx, cursor, p.str("keyPattern"), p.i64("count"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"cursor": strconv.FormatUint(next, 10),
		"keys":   keys,
	}, nil
}

func handleTTL(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")

	ttl, err := rc.store.TTL(ctx, key)
	if err == kv.ErrNotFound {
		// Mirror the Redis convention for missing keys
		return map[string]any{"key": key, "ttl": int64(-2)}, nil
	}
	if err != nil {
		return nil, err
	}

	seconds := int64(-1)
	if ttl > 0 {
		seconds = int64(ttl / time.Second)
	}
	return map[string]any{"key": key, "ttl": seconds}, nil
}

func handlePersist(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")

	persisted, err := rc.store.Persist(ctx, key)
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": key, "persisted": persisted}, nil
}

func handleExpireAt(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")

	set, err := rc.store.ExpireAt(ctx, key, time.Unix(p.i64("timestamp"), 0))
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": key, "set": set}, nil
}
