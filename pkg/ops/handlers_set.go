package ops

import (
	"context"
)

func handleSAdd(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	set := p.str("set")
	members := tokens(p.str("members"))
	if len(members) == 0 {
		return nil, &ParameterError{Name: "members", Reason: "at least one member is required"}
	}

	added, err := rc.store.SAdd(ctx, set, members...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"set": set, "added": added}, nil
}

func handleSRem(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	set := p.str("set")
	members := tokens(p.str("members"))
	if len(members) == 0 {
		return nil, &ParameterError{Name: "members", Reason: "at least one member is required"}
	}

	removed, err := rc.store.SRem(ctx, set, members...)
	if err != nil {
		return nil, err
	}
	return map[string]any{"set": set, "removed": removed}, nil
}

func handleSMembers(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	set := p.str("set")

	members, err := rc.store.SMembers(ctx, set)
	if err != nil {
		return nil, err
	}
	return map[string]any{"set": set, "members": members}, nil
}

func handleSIsMember(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	set := p.str("set")
	member := p.str("member")

	isMember, err := rc.store.SIsMember(ctx, set, member)
	if err != nil {
		return nil, err
	}
	return map[string]any{"set": set, "member": member, "isMember": isMember}, nil
}

func handleSCard(ctx context.Context, rc *runContext, item Item, p bag) (map[string]any, error) {
	set := p.str("set")

	count, err := rc.store.SCard(ctx, set)
	if err != nil {
		return nil, err
	}
	return map[string]any{"set": set, "count": count}, nil
}
