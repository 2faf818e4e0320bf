package ops

import (
	"context"
)

func handleHLen(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	hash := p.str("hash")

	length, err := rc.store.HLen(ctx, hash)
	if err != nil {
		return nil, err
	}
	return map[string]any{"hash": hash, "length": length}, nil
}

func handleHKeys(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	hash := p.str("hash")

	fields, err := rc.store.HKeys(ctx, hash)
	if err != nil {
		return nil, err
	}
	return map[string]any{"hash": hash, "fields": fields}, nil
}

func handleHVals(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	hash := p.str("hash")

	values, err := rc.store.HVals(ctx, hash)
	if err != nil {
		return nil, err
	}
	return map[string]any{"hash": hash, "values": values}, nil
}

func handleHExists(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	hash := p.str("hash")
	field := p.str("field")

	exists, err := rc.store.HExists(ctx, hash, field)
	if err != nil {
		return nil, err
	}
	return map[string]any{"hash": hash, "field": field, "exists": exists}, nil
}
