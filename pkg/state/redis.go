package state

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"cross-swap/pkg/types"
)

const (
	snapshotKeyPrefix = "cross-swap:snapshot:"
	lockKeyPrefix     = "cross-swap:lock:"

	DefaultSnapshotTTL = 7 * 24 * time.Hour
	defaultLockTTL     = 30 * time.Second
)

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL      string
	Password string
	TTL      time.Duration
}

// NewRedisClient parses the URL and verifies the connection
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// RedisStore keeps snapshots as JSON strings with a TTL so abandoned sessions expire
type RedisStore struct {
	rdb     redis.UniversalClient
	ttl     time.Duration
	resolve types.ChainResolver
}

func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration, resolve types.ChainResolver) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, resolve: resolve}
}

func snapshotKey(sessionID string) string {
	return snapshotKeyPrefix + sessionID
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	blob, err := Encode(snap)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, snapshotKey(snap.SessionID), blob, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Snapshot, error) {
	blob, err := s.rdb.Get(ctx, snapshotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return Decode(blob, s.resolve)
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, snapshotKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]*Snapshot, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, snapshotKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan snapshots: %w", err)
	}
	sort.Strings(keys)

	out := make([]*Snapshot, 0, len(keys))
	for _, key := range keys {
		blob, err := s.rdb.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			// expired between scan and get
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		snap, err := Decode(blob, s.resolve)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

// releaseScript deletes the lock only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker is a Locker shared between processes
type RedisLocker struct {
	rdb   redis.UniversalClient
	ttl   time.Duration
	retry time.Duration
}

func NewRedisLocker(rdb redis.UniversalClient) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: defaultLockTTL, retry: 100 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, sessionID string) (func(), error) {
	key := lockKeyPrefix + sessionID
	token := uuid.NewString()

	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", sessionID, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, l.rdb, []string{key}, token).Err()
	}, nil
}
