package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
)

// Store is an in-memory implementation of the kv.Store interface
type Store struct {
	mu          sync.RWMutex
	strings     map[string]string
	hashes      map[string]map[string]string
	sets        map[string]map[string]struct{}
	lists       map[string][]string
	zsets       map[string]map[string]float64
	expirations map[string]time.Time

	hub *PubSubHub

	janitorInterval time.Duration
	janitorStop     chan struct{}
	janitorDone     chan struct{}

	closeOnce sync.Once
}

// New creates a new in-memory store with optional janitor for TTL cleanup
func New(janitorInterval time.Duration) *Store {
	s := &Store{
		strings:         make(map[string]string),
		hashes:          make(map[string]map[string]string),
		sets:            make(map[string]map[string]struct{}),
		lists:           make(map[string][]string),
		zsets:           make(map[string]map[string]float64),
		expirations:     make(map[string]time.Time),
		hub:             NewPubSubHub(),
		janitorInterval: janitorInterval,
		janitorStop:     make(chan struct{}),
		janitorDone:     make(chan struct{}),
	}

	if janitorInterval > 0 {
		go s.janitor()
	} else {
		close(s.janitorDone)
	}

	return s
}

// NewStore creates an in-memory store without background cleanup; expired
// keys are still evicted lazily on access.
func NewStore() *Store {
	return New(0)
}

// janitor runs background expiration cleanup
func (s *Store) janitor() {
	defer close(s.janitorDone)
	ticker := time.NewTicker(s.janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.janitorStop:
			return
		}
	}
}

// evictExpired removes all expired keys
func (s *Store) evictExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredUnsafe()
}

// isExpired checks if a key has expired (must hold lock)
func (s *Store) isExpired(key string) bool {
	if expiry, exists := s.expirations[key]; exists {
		return time.Now().After(expiry)
	}
	return false
}

// setExpiration sets TTL for a key (must hold write lock)
func (s *Store) setExpiration(key string, ttl time.Duration) {
	if ttl > 0 {
		s.expirations[key] = time.Now().Add(ttl)
	} else {
		delete(s.expirations, key)
	}
}

// deleteKeyUnsafe removes a key from all data structures (must hold write lock)
func (s *Store) deleteKeyUnsafe(key string) {
	delete(s.strings, key)
	delete(s.hashes, key)
	delete(s.sets, key)
	delete(s.lists, key)
	delete(s.zsets, key)
}

// expireIfNeeded evicts the key if its TTL has lapsed (must hold write lock)
func (s *Store) expireIfNeeded(key string) {
	if s.isExpired(key) {
		s.deleteKeyUnsafe(key)
		delete(s.expirations, key)
	}
}

// keyExistsUnsafe reports whether a live value of any type is stored under
// key (must hold lock, after expiry handling)
func (s *Store) keyExistsUnsafe(key string) bool {
	if _, ok := s.strings[key]; ok {
		return true
	}
	if _, ok := s.hashes[key]; ok {
		return true
	}
	if _, ok := s.sets[key]; ok {
		return true
	}
	if _, ok := s.lists[key]; ok {
		return true
	}
	if _, ok := s.zsets[key]; ok {
		return true
	}
	return false
}

// String operations

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteKeyUnsafe(key)
	s.strings[key] = value
	s.setExpiration(key, ttl)
	return nil
}

func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if s.keyExistsUnsafe(key) {
		return false, nil
	}
	s.strings[key] = value
	s.setExpiration(key, ttl)
	return true, nil
}

func (s *Store) SetXX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if !s.keyExistsUnsafe(key) {
		return false, nil
	}
	s.deleteKeyUnsafe(key)
	s.strings[key] = value
	s.setExpiration(key, ttl)
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	value, ok := s.strings[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	return value, nil
}

// Counter operations

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	current := int64(0)
	if value, ok := s.strings[key]; ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value is not an integer")
		}
		current = parsed
	}
	current += n
	s.strings[key] = strconv.FormatInt(current, 10)
	return current, nil
}

func (s *Store) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.IncrBy(ctx, key, -n)
}

// Key operations

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		s.expireIfNeeded(key)
		if s.keyExistsUnsafe(key) {
			s.deleteKeyUnsafe(key)
			delete(s.expirations, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for _, key := range keys {
		s.expireIfNeeded(key)
		if s.keyExistsUnsafe(key) {
			count++
		}
	}
	return count, nil
}

func (s *Store) Type(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	switch {
	case hasKey(s.strings, key):
		return "string", nil
	case hasKey(s.hashes, key):
		return "hash", nil
	case hasKey(s.sets, key):
		return "set", nil
	case hasKey(s.lists, key):
		return "list", nil
	case hasKey(s.zsets, key):
		return "zset", nil
	default:
		return "none", nil
	}
}

func hasKey[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.matchingKeysUnsafe(pattern), nil
}

// matchingKeysUnsafe returns live keys matching pattern in sorted order
// (must hold write lock)
func (s *Store) matchingKeysUnsafe(pattern string) []string {
	var keys []string
	seen := make(map[string]struct{})
	collect := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		s.expireIfNeeded(key)
		if s.keyExistsUnsafe(key) && globMatch(pattern, key) {
			keys = append(keys, key)
		}
	}

	for key := range s.strings {
		collect(key)
	}
	for key := range s.hashes {
		collect(key)
	}
	for key := range s.sets {
		collect(key)
	}
	for key := range s.lists {
		collect(key)
	}
	for key := range s.zsets {
		collect(key)
	}

	sort.Strings(keys)
	return keys
}

// Scan pages over the sorted key space. The cursor is an offset into the
// sorted snapshot; 0 terminates the iteration, matching the Redis contract
// of an opaque cursor that callers echo back verbatim.
func (s *Store) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if count <= 0 {
		count = 10
	}
	all := s.matchingKeysUnsafe(pattern)
	if cursor >= uint64(len(all)) {
		return []string{}, 0, nil
	}

	end := cursor + uint64(count)
	if end >= uint64(len(all)) {
		return all[cursor:], 0, nil
	}
	return all[cursor:end], end, nil
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if !s.keyExistsUnsafe(key) {
		return false, nil
	}
	s.setExpiration(key, ttl)
	return true, nil
}

func (s *Store) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if !s.keyExistsUnsafe(key) {
		return false, nil
	}
	s.expirations[key] = at
	return true, nil
}

func (s *Store) Persist(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if _, ok := s.expirations[key]; !ok {
		return false, nil
	}
	delete(s.expirations, key)
	return true, nil
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	if !s.keyExistsUnsafe(key) {
		return 0, kv.ErrNotFound
	}
	expiry, ok := s.expirations[key]
	if !ok {
		// no TTL set, mirror the Redis -1 convention
		return -1 * time.Second, nil
	}
	return time.Until(expiry), nil
}

// Hash operations

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	hash, ok := s.hashes[key]
	if !ok {
		hash = make(map[string]string)
		s.hashes[key] = hash
	}

	var added int64
	for field, value := range fields {
		if _, exists := hash[field]; !exists {
			added++
		}
		hash[field] = value
	}
	return added, nil
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	hash, ok := s.hashes[key]
	if !ok {
		return "", kv.ErrNotFound
	}
	value, ok := hash[field]
	if !ok {
		return "", kv.ErrNotFound
	}
	return value, nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	hash, ok := s.hashes[key]
	if !ok {
		return nil, kv.ErrNotFound
	}

	out := make(map[string]string, len(hash))
	for field, value := range hash {
		out[field] = value
	}
	return out, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	hash, ok := s.hashes[key]
	if !ok {
		return 0, nil
	}

	var deleted int64
	for _, field := range fields {
		if _, exists := hash[field]; exists {
			delete(hash, field)
			deleted++
		}
	}
	if len(hash) == 0 {
		delete(s.hashes, key)
		delete(s.expirations, key)
	}
	return deleted, nil
}

func (s *Store) HLen(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	return int64(len(s.hashes[key])), nil
}

func (s *Store) HKeys(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	fields := make([]string, 0, len(s.hashes[key]))
	for field := range s.hashes[key] {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields, nil
}

func (s *Store) HVals(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	hash := s.hashes[key]
	fields := make([]string, 0, len(hash))
	for field := range hash {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	values := make([]string, len(fields))
	for i, field := range fields {
		values[i] = hash[field]
	}
	return values, nil
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	_, ok := s.hashes[key][field]
	return ok, nil
}

// Set operations

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}

	var added int64
	for _, member := range members {
		if _, exists := set[member]; !exists {
			set[member] = struct{}{}
			added++
		}
	}
	return added, nil
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	set, ok := s.sets[key]
	if !ok {
		return 0, nil
	}

	var removed int64
	for _, member := range members {
		if _, exists := set[member]; exists {
			delete(set, member)
			removed++
		}
	}
	if len(set) == 0 {
		delete(s.sets, key)
		delete(s.expirations, key)
	}
	return removed, nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	set := s.sets[key]
	members := make([]string, 0, len(set))
	for member := range set {
		members = append(members, member)
	}
	sort.Strings(members)
	return members, nil
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	_, ok := s.sets[key][member]
	return ok, nil
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	return int64(len(s.sets[key])), nil
}

// List operations

func (s *Store) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	list := s.lists[key]
	for _, value := range values {
		list = append([]string{value}, list...)
	}
	s.lists[key] = list
	return int64(len(list)), nil
}

func (s *Store) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	s.lists[key] = append(s.lists[key], values...)
	return int64(len(s.lists[key])), nil
}

func (s *Store) LPop(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popUnsafe(key, false)
}

func (s *Store) RPop(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popUnsafe(key, true)
}

// popUnsafe removes one element from a list end (must hold write lock)
func (s *Store) popUnsafe(key string, tail bool) (string, error) {
	s.expireIfNeeded(key)
	list := s.lists[key]
	if len(list) == 0 {
		return "", kv.ErrNotFound
	}

	var value string
	if tail {
		value = list[len(list)-1]
		list = list[:len(list)-1]
	} else {
		value = list[0]
		list = list[1:]
	}

	if len(list) == 0 {
		delete(s.lists, key)
		delete(s.expirations, key)
	} else {
		s.lists[key] = list
	}
	return value, nil
}

const blockingPollInterval = 20 * time.Millisecond

// blockingPop polls the given keys until one yields an element, the timeout
// elapses, or ctx is done. A zero timeout blocks indefinitely.
func (s *Store) blockingPop(ctx context.Context, timeout time.Duration, tail bool, keys []string) (string, string, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	ticker := time.NewTicker(blockingPollInterval)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		for _, key := range keys {
			value, err := s.popUnsafe(key, tail)
			if err == nil {
				s.mu.Unlock()
				return key, value, nil
			}
		}
		s.mu.Unlock()

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return "", "", kv.ErrNotFound
		}

		select {
		case <-ctx.Done():
			return "", "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Store) BLPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error) {
	return s.blockingPop(ctx, timeout, false, keys)
}

func (s *Store) BRPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error) {
	return s.blockingPop(ctx, timeout, true, keys)
}

func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	return int64(len(s.lists[key])), nil
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	list := s.lists[key]
	length := int64(len(list))

	// Normalize negative indices the way Redis does
	if start < 0 {
		start = length + start
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop = length + stop
	}
	if start >= length || stop < start {
		return []string{}, nil
	}
	if stop >= length {
		stop = length - 1
	}

	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

// Sorted-set operations

func (s *Store) ZAdd(ctx context.Context, key string, members ...kv.ZMember) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	zset, ok := s.zsets[key]
	if !ok {
		zset = make(map[string]float64)
		s.zsets[key] = zset
	}

	var added int64
	for _, m := range members {
		if _, exists := zset[m.Member]; !exists {
			added++
		}
		zset[m.Member] = m.Score
	}
	return added, nil
}

// sortedMembersUnsafe returns zset members ordered by score, then member
// (must hold lock)
func (s *Store) sortedMembersUnsafe(key string) []kv.ZMember {
	zset := s.zsets[key]
	members := make([]kv.ZMember, 0, len(zset))
	for member, score := range zset {
		members = append(members, kv.ZMember{Member: member, Score: score})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Score != members[j].Score {
			return members[i].Score < members[j].Score
		}
		return members[i].Member < members[j].Member
	})
	return members
}

func zrangeBounds(length, start, stop int64) (int64, int64, bool) {
	if start < 0 {
		start = length + start
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop = length + stop
	}
	if start >= length || stop < start {
		return 0, 0, false
	}
	if stop >= length {
		stop = length - 1
	}
	return start, stop, true
}

func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.ZRangeWithScores(ctx, key, start, stop)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(members))
	for i, m := range members {
		out[i] = m.Member
	}
	return out, nil
}

func (s *Store) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]kv.ZMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	members := s.sortedMembersUnsafe(key)
	start, stop, ok := zrangeBounds(int64(len(members)), start, stop)
	if !ok {
		return []kv.ZMember{}, nil
	}
	return members[start : stop+1], nil
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	zset, ok := s.zsets[key]
	if !ok {
		return 0, nil
	}

	var removed int64
	for _, member := range members {
		if _, exists := zset[member]; exists {
			delete(zset, member)
			removed++
		}
	}
	if len(zset) == 0 {
		delete(s.zsets, key)
		delete(s.expirations, key)
	}
	return removed, nil
}

func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expireIfNeeded(key)
	return int64(len(s.zsets[key])), nil
}

// Multi operations

func (s *Store) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make([]*string, len(keys))
	for i, key := range keys {
		s.expireIfNeeded(key)
		if value, ok := s.strings[key]; ok {
			v := value
			values[i] = &v
		}
	}
	return values, nil
}

func (s *Store) MSet(ctx context.Context, pairs map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, value := range pairs {
		s.deleteKeyUnsafe(key)
		s.strings[key] = value
		delete(s.expirations, key)
	}
	return nil
}

// Scripting and raw command passthrough

func (s *Store) Eval(ctx context.Context, script string, keys []string, args []any) (any, error) {
	return nil, fmt.Errorf("eval: %w", kv.ErrUnsupported)
}

func (s *Store) Do(ctx context.Context, args ...any) (any, error) {
	return nil, fmt.Errorf("raw command: %w", kv.ErrUnsupported)
}

// Pub/sub and diagnostics

func (s *Store) Publish(ctx context.Context, channel, payload string) (int64, error) {
	return s.hub.Publish(channel, payload), nil
}

// Subscribe registers an in-memory subscription. This is not part of
// kv.Store; tests and dry runs reach it through the concrete type.
func (s *Store) Subscribe(ctx context.Context, channels ...string) *PubSub {
	return s.hub.Subscribe(ctx, channels...)
}

// Info synthesizes a diagnostic report in the line-oriented INFO format so
// report parsing can be exercised without a server.
func (s *Store) Info(ctx context.Context) (string, error) {
	s.mu.Lock()
	s.evictExpiredUnsafe()
	keys := 0
	keys += len(s.strings) + len(s.hashes) + len(s.sets) + len(s.lists) + len(s.zsets)
	expires := len(s.expirations)
	s.mu.Unlock()

	var b strings.Builder
	b.WriteString("# Server\r\n")
	b.WriteString("redis_version:0.0.0-memory\r\n")
	b.WriteString("redis_mode:standalone\r\n")
	b.WriteString("\r\n# Clients\r\n")
	b.WriteString("connected_clients:1\r\n")
	b.WriteString("\r\n# Replication\r\n")
	b.WriteString("role:master\r\n")
	b.WriteString("\r\n# Keyspace\r\n")
	fmt.Fprintf(&b, "db0:keys=%d,expires=%d,avg_ttl=0\r\n", keys, expires)
	return b.String(), nil
}

// evictExpiredUnsafe removes expired keys (must hold write lock)
func (s *Store) evictExpiredUnsafe() {
	now := time.Now()
	for key, expiry := range s.expirations {
		if now.After(expiry) {
			s.deleteKeyUnsafe(key)
			delete(s.expirations, key)
		}
	}
}

// Ping always succeeds for the in-memory store
func (s *Store) Ping(ctx context.Context) error {
	return nil
}

// Close stops the janitor and releases all data
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		close(s.janitorStop)
		<-s.janitorDone

		s.mu.Lock()
		s.strings = make(map[string]string)
		s.hashes = make(map[string]map[string]string)
		s.sets = make(map[string]map[string]struct{})
		s.lists = make(map[string][]string)
		s.zsets = make(map[string]map[string]float64)
		s.expirations = make(map[string]time.Time)
		s.mu.Unlock()
	})
	return nil
}
