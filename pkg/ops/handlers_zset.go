package ops

import (
	"context"
	"strconv"

	"github.com/flowforge/redisrun/pkg/kv"
)

// parseScoredMembers reads an alternating score/member token sequence.
func parseScoredMembers(name string, toks []string) ([]kv.ZMember, error) {
	if len(toks) == 0 {
		return nil, &ParameterError{Name: name, Reason: "at least one score/member pair is required"}
	}
	if len(toks)%2 != 0 {
		return nil, &ParameterError{Name: name, Reason: "expected an even number of space-delimited tokens"}
	}

	members := make([]kv.ZMember, 0, len(toks)/2)
	for i := 0; i < len(toks); i += 2 {
		score, err := strconv.ParseFloat(toks[i], 64)
		if err != nil {
			return nil, &ParameterError{Name: name, Reason: "score " + strconv.Quote(toks[i]) + " is not a number"}
		}
		members = append(members, kv.ZMember{Score: score, Member: toks[i+1]})
	}
	return members, nil
}

func handleZAdd(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")

	members, err := parseScoredMembers("members", tokens(p.str("members")))
	if err != nil {
		return nil, err
	}

	added, err := rc.store.ZAdd(ctx, key, members...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": key, "added": added}, nil
}

func handleZRange(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")
	start, stop := p.i64("start"), p.i64("stop")

	if !p.boolean("withScores") {
		members, err := rc.store.ZRange(ctx, key, start, stop)
		if err != nil {
			return nil, err
		}
		return map[string]any{"key": key, "members": members}, nil
	}

	scored, err := rc.store.ZRangeWithScores(ctx, key, start, stop)
	if err != nil {
		return nil, err
	}
	members := make([]map[string]any, len(scored))
	for i, m := range scored {
		members[i] = map[string]any{"member": m.Member, "score": m.Score}
	}
	return map[string]any{"key": key, "members": members}, nil
}

func handleZRem(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")
	members := tokens(p.str("members"))
	if len(members) == 0 {
		return nil, &ParameterError{Name: "members", Reason: "at least one member is required"}
	}

	removed, err := rc.store.ZRem(ctx, key, members...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": key, "removed": removed}, nil
}

func handleZCard(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	key := p.str("key")

	count, err := rc.store.ZCard(ctx, key)
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": key, "count": count}, nil
}
