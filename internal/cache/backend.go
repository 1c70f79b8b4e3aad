package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/charlesng35/axoncache/pkg/logger"
	"github.com/charlesng35/axoncache/pkg/metrics"
)

// NoExpiration stores an entry that never expires. Any negative TTL has the same meaning.
const NoExpiration time.Duration = -1

const tracerName = "github.com/charlesng35/axoncache/internal/cache"

// Backend exposes the cache contract (add, get, set, delete, clear) on top of a Store.
// Keys must already be fully qualified by the caller. Store failures never reach the caller:
// reads degrade to a miss and writes are logged and dropped. Only encoding failures on write
// are returned, as *SerializationError.
type Backend struct {
	store  Store
	codec  Codec
	now    func() time.Time
	log    *zap.Logger
	tracer trace.Tracer

	hits   atomic.Int64
	misses atomic.Int64
}

// Option customises the Backend.
type Option func(*Backend)

// WithCodec overrides the value serializer.
func WithCodec(codec Codec) Option {
	return func(b *Backend) {
		if codec != nil {
			b.codec = codec
		}
	}
}

// WithClock overrides the clock used to compute and check expiry.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		if now != nil {
			b.now = now
		}
	}
}

// WithLogger overrides the backend logger.
func WithLogger(log *zap.Logger) Option {
	return func(b *Backend) {
		if log != nil {
			b.log = log
		}
	}
}

// WithTracer overrides the tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(b *Backend) {
		if tracer != nil {
			b.tracer = tracer
		}
	}
}

// NewBackend wraps store behind the cache contract.
func NewBackend(store Store, opts ...Option) (*Backend, error) {
	if store == nil {
		return nil, errors.New("cache: store is required")
	}

	b := &Backend{
		store:  store,
		codec:  JSONCodec{},
		now:    time.Now,
		log:    logger.WithModule("cache"),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Add stores value only when no live entry occupies key. It reports whether this call won.
func (b *Backend) Add(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	ctx, span := b.startSpan(ctx, "cache.add", key)
	defer span.End()

	payload, err := b.encode(key, value)
	if err != nil {
		metrics.RecordCacheOperation("add", "serialization_error")
		return false, err
	}

	now := b.now()
	entry := Entry{Key: key, Value: payload, ExpiresAt: expiryFor(now, ttl)}
	err = b.store.InsertIfAbsent(ctx, entry, now)
	switch {
	case err == nil:
		metrics.RecordCacheOperation("add", "stored")
		return true, nil
	case errors.Is(err, ErrAlreadyExists):
		metrics.RecordCacheOperation("add", "exists")
		return false, nil
	default:
		metrics.RecordCacheOperation("add", "error")
		b.log.Warn("cache add dropped", zap.String("key", key), zap.Error(err))
		return false, nil
	}
}

// Get decodes the live entry for key into dest, which must be a non-nil pointer, and reports
// a hit. On a miss dest is left untouched, so a value placed there beforehand acts as the
// default. Expired and undecodable entries are deleted as a side effect.
func (b *Backend) Get(ctx context.Context, key string, dest any) bool {
	ctx, span := b.startSpan(ctx, "cache.get", key)
	defer span.End()

	target := reflect.ValueOf(dest)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		b.log.Error("cache get requires a non-nil pointer", zap.String("key", key), zap.String("type", fmt.Sprintf("%T", dest)))
		b.recordMiss("error")
		return false
	}

	entry, found, err := b.store.Get(ctx, key)
	if err != nil {
		b.log.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		b.recordMiss("error")
		return false
	}
	if !found {
		b.recordMiss("miss")
		return false
	}

	if entry.Expired(b.now()) {
		b.evict(ctx, key)
		b.recordMiss("expired")
		return false
	}

	decoded := reflect.New(target.Elem().Type())
	if err := b.codec.Unmarshal(entry.Value, decoded.Interface()); err != nil {
		serr := &SerializationError{Key: key, Op: "decode", Err: err}
		b.log.Warn("evicting corrupt cache entry", zap.String("key", key), zap.Error(serr))
		b.evict(ctx, key)
		b.recordMiss("corrupt")
		return false
	}

	target.Elem().Set(decoded.Elem())
	span.SetAttributes(attribute.Bool("cache.hit", true))
	b.hits.Add(1)
	metrics.RecordCacheOperation("get", "hit")
	return true
}

// GetOr returns the cached value for key, or def on a miss.
func GetOr[T any](ctx context.Context, b *Backend, key string, def T) T {
	var value T
	if b.Get(ctx, key, &value) {
		return value
	}
	return def
}

// Set upserts value under key. A negative ttl stores the entry without expiry and a zero ttl
// stores an entry that is already expired.
func (b *Backend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	ctx, span := b.startSpan(ctx, "cache.set", key)
	defer span.End()

	payload, err := b.encode(key, value)
	if err != nil {
		metrics.RecordCacheOperation("set", "serialization_error")
		return err
	}

	entry := Entry{Key: key, Value: payload, ExpiresAt: expiryFor(b.now(), ttl)}
	if err := b.store.Put(ctx, entry); err != nil {
		metrics.RecordCacheOperation("set", "error")
		b.log.Warn("cache write dropped", zap.String("key", key), zap.Error(err))
		return nil
	}
	metrics.RecordCacheOperation("set", "ok")
	return nil
}

// Delete removes keys. Absent keys are ignored and failures are only logged.
func (b *Backend) Delete(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, span := b.tracer.Start(ctx, "cache.delete", trace.WithAttributes(attribute.Int("cache.keys", len(keys))))
	defer span.End()

	if err := b.store.Delete(ctx, keys...); err != nil {
		metrics.RecordCacheOperation("delete", "error")
		b.log.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
		return
	}
	metrics.RecordCacheOperation("delete", "ok")
}

// Clear removes every entry. The error is returned because flushing is an operator action
// whose outcome must be reported.
func (b *Backend) Clear(ctx context.Context) error {
	ctx, span := b.tracer.Start(ctx, "cache.clear")
	defer span.End()

	if err := b.store.DeleteAll(ctx); err != nil {
		metrics.RecordCacheOperation("clear", "error")
		b.log.Error("cache clear failed", zap.Error(err))
		return err
	}
	metrics.RecordCacheOperation("clear", "ok")
	b.log.Info("cache cleared")
	return nil
}

// Stats reports the store's total, active and expired entry counts.
func (b *Backend) Stats(ctx context.Context) (Stats, error) {
	stats, err := b.store.Stats(ctx, b.now())
	if err != nil {
		return Stats{}, err
	}
	metrics.SetCacheEntries(stats.Active, stats.Expired)
	return stats, nil
}

// Now returns the backend clock's current time.
func (b *Backend) Now() time.Time {
	return b.now()
}

// Ping checks whether the store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.store.Ping(ctx)
}

// HitRatio returns the percentage of Get calls served from the cache by this process.
func (b *Backend) HitRatio() float64 {
	hits := b.hits.Load()
	total := hits + b.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// Lookups returns the number of hits and misses observed by this process.
func (b *Backend) Lookups() (hits, misses int64) {
	return b.hits.Load(), b.misses.Load()
}

func (b *Backend) encode(key string, value any) ([]byte, error) {
	payload, err := b.codec.Marshal(value)
	if err != nil {
		return nil, &SerializationError{Key: key, Op: "encode", Err: err}
	}
	return payload, nil
}

func (b *Backend) evict(ctx context.Context, key string) {
	if err := b.store.Delete(ctx, key); err != nil {
		b.log.Warn("cache eviction failed", zap.String("key", key), zap.Error(err))
	}
}

func (b *Backend) recordMiss(result string) {
	b.misses.Add(1)
	metrics.RecordCacheOperation("get", result)
}

func (b *Backend) startSpan(ctx context.Context, name, key string) (context.Context, trace.Span) {
	return b.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("cache.key", key)))
}
