package redis

import (
	"context"
	"crypto/tls"
	"net/url"
	"strconv"
	"time"

	"github.com/flowforge/redisrun/pkg/kv"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis-backed implementation of the kv.Store interface
type Store struct {
	client *redis.Client
}

// Options configures a direct (non-URL) connection.
type Options struct {
	Addr     string
	Username string
	Password string
	DB       int

	// TLS enables encrypted transport on the socket; nothing else.
	TLS bool

	DialTimeout time.Duration
}

// New creates a new Redis-backed store from a URL and verifies the
// connection with a ping.
func New(redisURL string) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// Fallback for simple address format
		u, parseErr := url.Parse("redis://" + redisURL)
		if parseErr != nil {
			return nil, err // Return original error
		}

		db := 0
		if u.Path != "" && u.Path != "/" {
			if dbNum, dbErr := strconv.Atoi(u.Path[1:]); dbErr == nil {
				db = dbNum
			}
		}

		opt = &redis.Options{
			Addr:     u.Host,
			Password: "",
			DB:       db,
		}

		if u.User != nil {
			if password, hasPassword := u.User.Password(); hasPassword {
				opt.Password = password
			}
		}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &Store{client: client}, nil
}

// NewWithOptions creates a Redis-backed store without touching the network.
// The first command issued against it dials the server.
func NewWithOptions(opts Options) *Store {
	ropts := &redis.Options{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
	if opts.DialTimeout > 0 {
		ropts.DialTimeout = opts.DialTimeout
	}
	if opts.TLS {
		ropts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &Store{client: redis.NewClient(ropts)}
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// String operations

func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *Store) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

func (s *Store) SetXX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetXX(ctx, key, value, ttl).Result()
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	result, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", kv.ErrNotFound
		}
		return "", err
	}
	return result, nil
}

// Counter operations

func (s *Store) IncrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.client.IncrBy(ctx, key, n).Result()
}

func (s *Store) DecrBy(ctx context.Context, key string, n int64) (int64, error) {
	return s.client.DecrBy(ctx, key, n).Result()
}

// Key operations

func (s *Store) Del(ctx context.Context, keys ...string) (int64, error) {
	return s.client.Del(ctx, keys...).Result()
}

func (s *Store) Exists(ctx context.Context, keys ...string) (int64, error) {
	return s.client.Exists(ctx, keys...).Result()
}

func (s *Store) Type(ctx context.Context, key string) (string, error) {
	return s.client.Type(ctx, key).Result()
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	return s.client.Keys(ctx, pattern).Result()
}

func (s *Store) Scan(ctx context.Context, cursor uint64, pattern string, count int64) ([]string, uint64, error) {
	return s.client.Scan(ctx, cursor, pattern, count).Result()
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return s.client.Expire(ctx, key, ttl).Result()
}

func (s *Store) ExpireAt(ctx context.Context, key string, at time.Time) (bool, error) {
	return s.client.ExpireAt(ctx, key, at).Result()
}

func (s *Store) Persist(ctx context.Context, key string) (bool, error) {
	return s.client.Persist(ctx, key).Result()
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	// go-redis passes the protocol sentinels through as raw counts
	// (time.Duration(-2) and time.Duration(-1), i.e. nanoseconds), not
	// second-scaled durations. -2 means the key does not exist, -1 means
	// it has no expiration.
	switch ttl {
	case -2, -2 * time.Second:
		return 0, kv.ErrNotFound
	case -1, -1 * time.Second:
		return -1 * time.Second, nil
	}

	return ttl, nil
}

// Hash operations

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) (int64, error) {
	return s.client.HSet(ctx, key, fields).Result()
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, error) {
	result, err := s.client.HGet(ctx, key, field).Result()
	if err != nil {
		if err == redis.Nil {
			return "", kv.ErrNotFound
		}
		return "", err
	}
	return result, nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	result, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		// Distinguish between empty hash and non-existent key
		exists, err := s.client.Exists(ctx, key).Result()
		if err != nil {
			return nil, err
		}
		if exists == 0 {
			return nil, kv.ErrNotFound
		}
	}

	return result, nil
}

func (s *Store) HDel(ctx context.Context, key string, fields ...string) (int64, error) {
	return s.client.HDel(ctx, key, fields...).Result()
}

func (s *Store) HLen(ctx context.Context, key string) (int64, error) {
	return s.client.HLen(ctx, key).Result()
}

func (s *Store) HKeys(ctx context.Context, key string) ([]string, error) {
	return s.client.HKeys(ctx, key).Result()
}

func (s *Store) HVals(ctx context.Context, key string) ([]string, error) {
	return s.client.HVals(ctx, key).Result()
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	return s.client.HExists(ctx, key, field).Result()
}

// Set operations

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	return s.client.SAdd(ctx, key, toAny(members)...).Result()
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	return s.client.SRem(ctx, key, toAny(members)...).Result()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func (s *Store) SIsMember(ctx context.Context, key, member string) (bool, error) {
	return s.client.SIsMember(ctx, key, member).Result()
}

func (s *Store) SCard(ctx context.Context, key string) (int64, error) {
	return s.client.SCard(ctx, key).Result()
}

// List operations

func (s *Store) LPush(ctx context.Context, key string, values ...string) (int64, error) {
	return s.client.LPush(ctx, key, toAny(values)...).Result()
}

func (s *Store) RPush(ctx context.Context, key string, values ...string) (int64, error) {
	return s.client.RPush(ctx, key, toAny(values)...).Result()
}

func (s *Store) LPop(ctx context.Context, key string) (string, error) {
	result, err := s.client.LPop(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", kv.ErrNotFound
		}
		return "", err
	}
	return result, nil
}

func (s *Store) RPop(ctx context.Context, key string) (string, error) {
	result, err := s.client.RPop(ctx, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", kv.ErrNotFound
		}
		return "", err
	}
	return result, nil
}

func (s *Store) BLPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error) {
	result, err := s.client.BLPop(ctx, timeout, keys...).Result()
	if err != nil {
		if err == redis.Nil {
			return "", "", kv.ErrNotFound
		}
		return "", "", err
	}
	return result[0], result[1], nil
}

func (s *Store) BRPop(ctx context.Context, timeout time.Duration, keys ...string) (string, string, error) {
	result, err := s.client.BRPop(ctx, timeout, keys...).Result()
	if err != nil {
		if err == redis.Nil {
			return "", "", kv.ErrNotFound
		}
		return "", "", err
	}
	return result[0], result[1], nil
}

func (s *Store) LLen(ctx context.Context, key string) (int64, error) {
	return s.client.LLen(ctx, key).Result()
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

// Sorted-set operations

func (s *Store) ZAdd(ctx context.Context, key string, members ...kv.ZMember) (int64, error) {
	zs := make([]redis.Z, len(members))
	for i, m := range members {
		zs[i] = redis.Z{Score: m.Score, Member: m.Member}
	}
	return s.client.ZAdd(ctx, key, zs...).Result()
}

func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.ZRange(ctx, key, start, stop).Result()
}

func (s *Store) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]kv.ZMember, error) {
	result, err := s.client.ZRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}

	members := make([]kv.ZMember, len(result))
	for i, z := range result {
		member, _ := z.Member.(string)
		members[i] = kv.ZMember{Member: member, Score: z.Score}
	}
	return members, nil
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	return s.client.ZRem(ctx, key, toAny(members)...).Result()
}

func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	return s.client.ZCard(ctx, key).Result()
}

// Multi operations

func (s *Store) MGet(ctx context.Context, keys ...string) ([]*string, error) {
	result, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	values := make([]*string, len(result))
	for i, value := range result {
		if str, ok := value.(string); ok {
			v := str
			values[i] = &v
		}
		// nil entries represent missing keys
	}

	return values, nil
}

func (s *Store) MSet(ctx context.Context, pairs map[string]string) error {
	values := make([]interface{}, 0, len(pairs)*2)
	for key, value := range pairs {
		values = append(values, key, value)
	}
	return s.client.MSet(ctx, values...).Err()
}

// Scripting and raw command passthrough

func (s *Store) Eval(ctx context.Context, script string, keys []string, args []any) (any, error) {
	result, err := s.client.Eval(ctx, script, keys, args...).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

func (s *Store) Do(ctx context.Context, args ...any) (any, error) {
	result, err := s.client.Do(ctx, args...).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, kv.ErrNotFound
		}
		return nil, err
	}
	return result, nil
}

// Pub/sub and diagnostics

func (s *Store) Publish(ctx context.Context, channel, payload string) (int64, error) {
	return s.client.Publish(ctx, channel, payload).Result()
}

func (s *Store) Info(ctx context.Context) (string, error) {
	return s.client.Info(ctx).Result()
}

// Ping checks if Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}
