package cache

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig captures the connection parameters for the Redis-backed store.
type RedisConfig struct {
	Address        string
	Username       string
	Password       string
	DB             int
	TLS            bool
	Timeout        time.Duration
	KeyPrefix      string
	IndexRetention time.Duration
}

const (
	defaultRedisTimeout        = 5 * time.Second
	defaultRedisKeyPrefix      = "axoncache:"
	defaultRedisIndexRetention = 24 * time.Hour
	redisScanBatch             = 500
)

// insertIfAbsentScript stores ARGV[1] unless the key holds an envelope whose expiry
// (milliseconds, 0 = never) is still ahead of ARGV[3]. A value without a readable header is
// corrupt and counts as absent. ARGV[2] is the absolute expiry in milliseconds or 0.
var insertIfAbsentScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if current then
  local sep = string.find(current, '|', 1, true)
  local expires = nil
  if sep then
    expires = tonumber(string.sub(current, 1, sep - 1))
  end
  if expires ~= nil and (expires == 0 or expires > tonumber(ARGV[3])) then
    return 0
  end
end
redis.call('SET', KEYS[1], ARGV[1])
if ARGV[2] ~= '0' then
  redis.call('PEXPIREAT', KEYS[1], ARGV[2])
end
return 1
`)

// RedisStore implements Store and KeyIndex on Redis. Values are wrapped in an envelope
// "<expiry-ms>|<payload>" so the logical expiry survives alongside Redis' own key expiry,
// which purges dead entries without the cache layer's involvement.
type RedisStore struct {
	client         *redis.Client
	prefix         string
	indexRetention time.Duration
}

// NewRedisStore creates a Redis client and eagerly pings it so that misconfiguration is
// surfaced during application startup.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	opts := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)
	store := NewRedisStoreFromClient(client, cfg.KeyPrefix, cfg.IndexRetention)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return store, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client, prefix string, indexRetention time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisKeyPrefix
	}
	if indexRetention <= 0 {
		indexRetention = defaultRedisIndexRetention
	}
	return &RedisStore{client: client, prefix: prefix, indexRetention: indexRetention}
}

// Close releases the underlying connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	if err := validateKey(entry.Key); err != nil {
		return err
	}

	key := s.entryKey(entry.Key)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, encodeEnvelope(entry), 0)
	if entry.ExpiresAt != nil {
		pipe.PExpireAt(ctx, key, *entry.ExpiresAt)
	}
	_, err := pipe.Exec(ctx)
	return unavailable("put", err)
}

func (s *RedisStore) InsertIfAbsent(ctx context.Context, entry Entry, now time.Time) error {
	if err := validateKey(entry.Key); err != nil {
		return err
	}

	inserted, err := insertIfAbsentScript.Run(ctx, s.client,
		[]string{s.entryKey(entry.Key)},
		encodeEnvelope(entry),
		expiryMillis(entry.ExpiresAt),
		now.UnixMilli(),
	).Int()
	if err != nil {
		return unavailable("insert", err)
	}
	if inserted == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	raw, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, unavailable("get", err)
	}

	entry := decodeEnvelope(raw)
	entry.Key = key
	return entry, true, nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixed := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixed = append(prefixed, s.entryKey(key))
	}
	return unavailable("delete", s.client.Del(ctx, prefixed...).Err())
}

// DeleteAll removes every entry under this store's prefix, leaving other tenants of the
// Redis database untouched.
func (s *RedisStore) DeleteAll(ctx context.Context) error {
	err := s.scan(ctx, s.entryPattern(), func(keys []string) error {
		return s.client.Del(ctx, keys...).Err()
	})
	return unavailable("delete all", err)
}

// DeleteExpired removes entries whose logical expiry passed but which Redis has not purged yet.
func (s *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	var removed int64
	err := s.scan(ctx, s.entryPattern(), func(keys []string) error {
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		expired := make([]string, 0)
		for i, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}
			if decodeEnvelope([]byte(raw)).Expired(now) {
				expired = append(expired, keys[i])
			}
		}
		if len(expired) == 0 {
			return nil
		}
		n, err := s.client.Del(ctx, expired...).Result()
		removed += n
		return err
	})
	if err != nil {
		return removed, unavailable("delete expired", err)
	}
	return removed, nil
}

func (s *RedisStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats
	err := s.scan(ctx, s.entryPattern(), func(keys []string) error {
		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return err
		}
		for _, value := range values {
			raw, ok := value.(string)
			if !ok {
				continue
			}
			stats.Total++
			if decodeEnvelope([]byte(raw)).Expired(now) {
				stats.Expired++
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, unavailable("stats", err)
	}
	stats.Active = stats.Total - stats.Expired
	return stats, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return unavailable("ping", s.client.Ping(ctx).Err())
}

// Track adds key to the group's sorted set, scored by trackedAt in milliseconds, and extends
// the set's retention. Groups that receive no new members for longer than the retention window
// are dropped by Redis.
func (s *RedisStore) Track(ctx context.Context, group, key string, trackedAt time.Time, _ *time.Time) error {
	groupKey := s.groupKey(group)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, groupKey, redis.Z{Score: float64(trackedAt.UnixMilli()), Member: key})
	pipe.PExpire(ctx, groupKey, s.indexRetention)
	_, err := pipe.Exec(ctx)
	return unavailable("track", err)
}

func (s *RedisStore) Members(ctx context.Context, group string) ([]string, error) {
	keys, err := s.client.ZRange(ctx, s.groupKey(group), 0, -1).Result()
	if err != nil {
		return nil, unavailable("members", err)
	}
	return keys, nil
}

// PruneOrphans drops members older than the grace period whose entry is gone. Redis expires
// entries physically, so an expired entry is a missing one.
func (s *RedisStore) PruneOrphans(ctx context.Context, now time.Time) (int64, error) {
	cutoff := strconv.FormatInt(now.Add(-OrphanGracePeriod).UnixMilli(), 10)

	var removed int64
	err := s.scan(ctx, escapeGlob(s.prefix)+"g:*", func(groups []string) error {
		for _, groupKey := range groups {
			members, err := s.client.ZRangeByScore(ctx, groupKey, &redis.ZRangeBy{Min: "-inf", Max: cutoff}).Result()
			if err != nil {
				return err
			}
			if len(members) == 0 {
				continue
			}

			pipe := s.client.Pipeline()
			checks := make([]*redis.IntCmd, len(members))
			for i, member := range members {
				checks[i] = pipe.Exists(ctx, s.entryKey(member))
			}
			if _, err := pipe.Exec(ctx); err != nil {
				return err
			}

			orphans := make([]interface{}, 0)
			for i, check := range checks {
				if check.Val() == 0 {
					orphans = append(orphans, members[i])
				}
			}
			if len(orphans) == 0 {
				continue
			}
			n, err := s.client.ZRem(ctx, groupKey, orphans...).Result()
			if err != nil {
				return err
			}
			removed += n
		}
		return nil
	})
	if err != nil {
		return removed, unavailable("prune index", err)
	}
	return removed, nil
}

func (s *RedisStore) scan(ctx context.Context, pattern string, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, redisScanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (s *RedisStore) entryKey(key string) string {
	return s.prefix + "e:" + key
}

func (s *RedisStore) groupKey(group string) string {
	return s.prefix + "g:" + group
}

func (s *RedisStore) entryPattern() string {
	return escapeGlob(s.prefix) + "e:*"
}

func encodeEnvelope(entry Entry) []byte {
	buf := make([]byte, 0, len(entry.Value)+16)
	buf = strconv.AppendInt(buf, expiryMillis(entry.ExpiresAt), 10)
	buf = append(buf, '|')
	return append(buf, entry.Value...)
}

// decodeEnvelope never fails: a payload without a readable header is returned as-is so the
// backend's decoder can reject it and evict the entry.
func decodeEnvelope(raw []byte) Entry {
	sep := bytes.IndexByte(raw, '|')
	if sep < 0 {
		return Entry{Value: raw}
	}
	millis, err := strconv.ParseInt(string(raw[:sep]), 10, 64)
	if err != nil {
		return Entry{Value: raw}
	}
	entry := Entry{Value: raw[sep+1:]}
	if millis > 0 {
		expires := time.UnixMilli(millis).UTC()
		entry.ExpiresAt = &expires
	}
	return entry
}

func expiryMillis(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	millis := t.UnixMilli()
	if millis <= 0 {
		// 0 is reserved for "never"; anything at or before the epoch is already dead.
		return 1
	}
	return millis
}

func escapeGlob(s string) string {
	var builder strings.Builder
	builder.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', ']', '\\':
			builder.WriteByte('\\')
		}
		builder.WriteByte(s[i])
	}
	return builder.String()
}
