package cachehelper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/charlesng35/axoncache/internal/cache"
	"github.com/charlesng35/axoncache/pkg/logger"
)

// Config controls key qualification and per-region TTLs.
type Config struct {
	// KeyPrefix and KeyVersion, when set, are prepended as "{prefix}:{version}:".
	KeyPrefix  string
	KeyVersion string
	// TTLs overrides the default TTL of individual regions.
	TTLs map[Region]time.Duration
}

// Helper exposes typed cache operations per region on top of a Backend. User-scoped writes
// are recorded in the key index so that InvalidateUser can drop every key derived from a user.
type Helper struct {
	backend   *cache.Backend
	index     cache.KeyIndex
	keyPrefix string
	ttls      map[Region]time.Duration
	log       *zap.Logger
	flight    singleflight.Group
}

// Option customises the Helper.
type Option func(*Helper)

// WithLogger overrides the helper logger.
func WithLogger(log *zap.Logger) Option {
	return func(h *Helper) {
		if log != nil {
			h.log = log
		}
	}
}

// New builds a Helper. index may be nil, in which case InvalidateUser only drops the keys it
// can derive from the user id and other user-scoped entries live out their TTL.
func New(backend *cache.Backend, index cache.KeyIndex, cfg Config, opts ...Option) (*Helper, error) {
	if backend == nil {
		return nil, errors.New("cachehelper: backend is required")
	}

	ttls := make(map[Region]time.Duration, len(defaultTTLs))
	for region, ttl := range defaultTTLs {
		ttls[region] = ttl
	}
	for region, ttl := range cfg.TTLs {
		if !region.Valid() {
			return nil, fmt.Errorf("cachehelper: unknown region %q", region)
		}
		ttls[region] = ttl
	}

	prefix, err := keyPrefix(cfg.KeyPrefix, cfg.KeyVersion)
	if err != nil {
		return nil, err
	}

	h := &Helper{
		backend:   backend,
		index:     index,
		keyPrefix: prefix,
		ttls:      ttls,
		log:       logger.WithModule("cachehelper"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

const maxPrefixLength = 64

func keyPrefix(prefix, version string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	version = strings.TrimSpace(version)
	if prefix == "" && version == "" {
		return "", nil
	}

	var builder strings.Builder
	if prefix != "" {
		builder.WriteString(escapeSegment(prefix))
		builder.WriteByte(':')
	}
	if version != "" {
		builder.WriteString(escapeSegment(version))
		builder.WriteByte(':')
	}
	if builder.Len() > maxPrefixLength {
		return "", fmt.Errorf("cachehelper: key prefix longer than %d bytes", maxPrefixLength)
	}
	return builder.String(), nil
}

// Backend returns the underlying backend.
func (h *Helper) Backend() *cache.Backend {
	return h.backend
}

// TTL returns the effective default TTL for region.
func (h *Helper) TTL(region Region) time.Duration {
	return h.ttls[region]
}

// Key returns the fully qualified store key for ref. Keys that would exceed the store limit
// are replaced by "{region}:{sha256 of the unqualified key}". Segments always escape ':', so
// no unhashed key can take that form.
func (h *Helper) Key(ref Ref) string {
	key := h.keyPrefix + ref.Key
	if len(key) <= cache.MaxKeyLength {
		return key
	}
	sum := sha256.Sum256([]byte(ref.Key))
	return h.keyPrefix + string(ref.Region) + ":" + hex.EncodeToString(sum[:])
}

// CallOption adjusts a single cache write.
type CallOption func(*callOptions)

type callOptions struct {
	ttl    time.Duration
	hasTTL bool
}

// WithTTL overrides the region's default TTL for one write. cache.NoExpiration stores the
// value without expiry.
func WithTTL(ttl time.Duration) CallOption {
	return func(o *callOptions) {
		o.ttl = ttl
		o.hasTTL = true
	}
}

func (h *Helper) resolveTTL(region Region, opts []CallOption) time.Duration {
	var options callOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.hasTTL {
		return options.ttl
	}
	return h.ttls[region]
}

// Cache stores value for ref. Only serialization failures are returned; a value whose owner
// could not be indexed is not cached, so InvalidateUser never misses a live entry.
func (h *Helper) Cache(ctx context.Context, ref Ref, value any, opts ...CallOption) error {
	ttl := h.resolveTTL(ref.Region, opts)
	key := h.Key(ref)

	if userID, ok := ref.UserID(); ok && h.index != nil {
		now := h.backend.Now()
		var expiresAt *time.Time
		if ttl >= 0 {
			t := now.Add(ttl).UTC()
			expiresAt = &t
		}
		if err := h.index.Track(ctx, userGroup(userID), key, now, expiresAt); err != nil {
			h.log.Warn("skipping cache write for untracked key",
				zap.String("key", key),
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			return nil
		}
	}

	return h.backend.Set(ctx, key, value, ttl)
}

// Get decodes the cached value for ref into dest and reports a hit.
func (h *Helper) Get(ctx context.Context, ref Ref, dest any) bool {
	return h.backend.Get(ctx, h.Key(ref), dest)
}

// Delete drops the entries behind refs.
func (h *Helper) Delete(ctx context.Context, refs ...Ref) {
	if len(refs) == 0 {
		return
	}
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, h.Key(ref))
	}
	h.backend.Delete(ctx, keys...)
}

// Fetch returns the cached value for ref or computes it with loader and caches the result.
// Concurrent misses for the same key within this process share one loader call. Loader errors
// are returned and nothing is cached.
func Fetch[T any](ctx context.Context, h *Helper, ref Ref, loader func(context.Context) (T, error), opts ...CallOption) (T, error) {
	var value T
	if h.Get(ctx, ref, &value) {
		return value, nil
	}

	key := h.Key(ref)
	result, err, _ := h.flight.Do(key, func() (any, error) {
		loaded, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		if err := h.Cache(ctx, ref, loaded, opts...); err != nil {
			h.log.Warn("computed value not cached", zap.String("key", key), zap.Error(err))
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	value, _ = result.(T)
	return value, nil
}

func userGroup(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}
