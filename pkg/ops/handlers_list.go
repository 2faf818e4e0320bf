package ops

import (
	"context"
	"encoding/json"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
	"github.com/spf13/cast"
)

// encodePayload renders an arbitrary value for the wire: strings as-is,
// everything else JSON-encoded.
func encodePayload(name string, value any) (string, error) {
	if text, ok := value.(string); ok {
		return text, nil
	}
	if text, err := cast.ToStringE(value); err == nil {
		return text, nil
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return "", &ParameterError{Name: name, Reason: "value is not serializable"}
	}
	return string(encoded), nil
}

// decodePayload attempts a JSON decode of a stored value, falling back to
// the raw string.
func decodePayload(text string) any {
	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return text
	}
	return decoded
}

func handlePush(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	payload, err := encodePayload("messageData", p.raw("messageData"))
	if err != nil {
		return nil, err
	}

	list := p.str("list")
	if p.boolean("tail") {
		_, err = rc.store.RPush(ctx, list, payload)
	} else {
		_, err = rc.store.LPush(ctx, list, payload)
	}
	if err != nil {
		return nil, err
	}
	return copyData(item.Data), nil
}

func handlePop(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	list := p.str("list")

	var value string
	var err error
	if p.boolean("tail") {
		value, err = rc.store.RPop(ctx, list)
	} else {
		value, err = rc.store.LPop(ctx, list)
	}

	out := copyData(item.Data)
	if err == kv.ErrNotFound {
		setPath(out, p.str("propertyName"), nil)
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	setPath(out, p.str("propertyName"), decodePayload(value))
	return out, nil
}

// handleBPop suspends the whole run until an element arrives or the timeout
// elapses. A zero timeout waits indefinitely; that boundary is the caller's,
// no dispatcher-side timeout is stacked on top.
func handleBPop(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	list := p.str("list")
	timeout := time.Duration(p.i64("timeout")) * time.Second

	var origin, value string
	var err error
	if p.boolean("tail") {
		origin, value, err = rc.store.BRPop(ctx, timeout, list)
	} else {
		origin, value, err = rc.store.BLPop(ctx, timeout, list)
	}

	if err == kv.ErrNotFound {
		out := map[string]any{"list": list}
		setPath(out, p.str("propertyName"), nil)
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	out := map[string]any{"list": origin}
	setPath(out, p.str("propertyName"), decodePayload(value))
	return out, nil
}

func handleLLen(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	list := p.str("list")

	length, err := rc.store.LLen(ctx, list)
	if err != nil {
		return nil, err
	}
	return map[string]any{"list": list, "length": length}, nil
}
