package ops

import (
	"context"

	"github.com/flowforge/redisrun/pkg/kv"
)

// narrowIntegers converts 64-bit integers in a script result to float64.
// Values above 2^53 lose precision; a documented limitation of keeping the
// result JSON-representable.
func narrowIntegers(value any) any {
	switch v := value.(type) {
	case int64:
		return float64(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = narrowIntegers(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, e := range v {
			if text, ok := key.(string); ok {
				out[text] = narrowIntegers(e)
			}
		}
		return out
	default:
		return value
	}
}

func handleEval(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	keys := tokens(p.str("keys"))

	rawArgs := tokens(p.str("args"))
	args := make([]any, len(rawArgs))
	for i, a := range rawArgs {
		args[i] = a
	}

	result, err := rc.store.Eval(ctx, p.str("script"), keys, args)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": narrowIntegers(result)}, nil
}

// handleInfo runs once per execution rather than per item.
func handleInfo(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	report, err := rc.store.Info(ctx)
	if err != nil {
		return nil, err
	}
	return ParseReport(report), nil
}

func handlePublish(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	payload, err := encodePayload("messageData", p.raw("messageData"))
	if err != nil {
		return nil, err
	}

	if _, err := rc.store.Publish(ctx, p.str("channel"), payload); err != nil {
		return nil, err
	}
	return copyData(item.Data), nil
}

func handleJSONGet(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	out := copyData(item.Data)

	result, err := rc.store.Do(ctx, "JSON.GET", p.str("key"), p.str("path"))
	if err == kv.ErrNotFound {
		setPath(out, p.str("propertyName"), nil)
		return out, nil
	}
	if err != nil {
		return nil, err
	}

	// Extension command results arrive as raw strings; best-effort JSON
	// decode with raw fallback.
	if text, ok := result.(string); ok {
		setPath(out, p.str("propertyName"), decodePayload(text))
		return out, nil
	}
	setPath(out, p.str("propertyName"), narrowIntegers(result))
	return out, nil
}

func handleJSONSet(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	payload, err := encodePayload("value", p.raw("value"))
	if err != nil {
		return nil, err
	}

	if _, err := rc.store.Do(ctx, "JSON.SET", p.str("key"), p.str("path"), payload); err != nil {
		return nil, err
	}
	return copyData(item.Data), nil
}
