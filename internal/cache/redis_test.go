package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisStoreEnvelope(t *testing.T) {
	expires := time.UnixMilli(1716195600123).UTC()

	entry := decodeEnvelope(encodeEnvelope(Entry{Value: []byte(`{"a":1}`), ExpiresAt: &expires}))
	require.Equal(t, []byte(`{"a":1}`), entry.Value)
	require.NotNil(t, entry.ExpiresAt)
	require.True(t, expires.Equal(*entry.ExpiresAt))

	entry = decodeEnvelope(encodeEnvelope(Entry{Value: []byte("a|b")}))
	require.Equal(t, []byte("a|b"), entry.Value)
	require.Nil(t, entry.ExpiresAt)

	entry = decodeEnvelope([]byte("garbage"))
	require.Equal(t, []byte("garbage"), entry.Value)
	require.Nil(t, entry.ExpiresAt)
}

func TestRedisStoreMalformedValueIsEvicted(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreFromClient(client, "app:", time.Hour)
	backend, err := NewBackend(store, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	require.NoError(t, mr.Set("app:e:post_detail_42", "not-an-envelope"))

	var detail postDetail
	require.False(t, backend.Get(ctx, "post_detail_42", &detail))
	require.False(t, mr.Exists("app:e:post_detail_42"))

	require.NoError(t, mr.Set("app:e:post_detail_42", "0|{broken"))
	ok, err := backend.Add(ctx, "post_detail_42", postDetail{ID: 42}, time.Minute)
	require.NoError(t, err)
	require.False(t, ok, "a live envelope with an unreadable payload occupies the key until it is evicted")
}

func TestRedisStoreInsertIfAbsentOverwritesHeaderlessValue(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreFromClient(client, "app:", time.Hour)
	backend, err := NewBackend(store, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	for _, corrupt := range []string{"not-an-envelope", "soon|{}"} {
		require.NoError(t, mr.Set("app:e:post_detail_42", corrupt))

		ok, err := backend.Add(ctx, "post_detail_42", postDetail{ID: 42}, time.Minute)
		require.NoError(t, err)
		require.True(t, ok, corrupt)

		var detail postDetail
		require.True(t, backend.Get(ctx, "post_detail_42", &detail))
		require.Equal(t, int64(42), detail.ID)
	}
}

func TestRedisStoreSetsPhysicalExpiry(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreFromClient(client, "", time.Hour)
	backend, err := NewBackend(store, WithLogger(zap.NewNop()))
	require.NoError(t, err)

	require.NoError(t, backend.Set(ctx, "chat_messages_7", []string{"hello"}, 5*time.Minute))
	require.True(t, mr.Exists("axoncache:e:chat_messages_7"))
	require.Greater(t, mr.TTL("axoncache:e:chat_messages_7"), time.Duration(0))

	require.NoError(t, backend.Set(ctx, "popular_posts", []int{1}, NoExpiration))
	require.Zero(t, mr.TTL("axoncache:e:popular_posts"))
}

func TestRedisStoreDeleteAllKeepsForeignKeys(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreFromClient(client, "app:", time.Hour)
	require.NoError(t, mr.Set("sessions:abc", "keep"))
	require.NoError(t, mr.Set("app[1]:e:x", "keep"))
	require.NoError(t, store.Put(ctx, Entry{Key: "chat_list_1", Value: []byte("[]")}))
	require.NoError(t, store.Put(ctx, Entry{Key: "chat_list_2", Value: []byte("[]")}))

	require.NoError(t, store.DeleteAll(ctx))

	require.False(t, mr.Exists("app:e:chat_list_1"))
	require.False(t, mr.Exists("app:e:chat_list_2"))
	require.True(t, mr.Exists("sessions:abc"))
	require.True(t, mr.Exists("app[1]:e:x"))
}

func TestRedisStoreTrackSetsRetention(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := NewRedisStoreFromClient(client, "app:", 30*time.Minute)
	trackedAt := time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.Track(ctx, "user:1", "chat_list_1", trackedAt, nil))

	members, err := mr.ZMembers("app:g:user:1")
	require.NoError(t, err)
	require.Equal(t, []string{"chat_list_1"}, members)
	score, err := mr.ZScore("app:g:user:1", "chat_list_1")
	require.NoError(t, err)
	require.Equal(t, float64(trackedAt.UnixMilli()), score)
	require.Equal(t, 30*time.Minute, mr.TTL("app:g:user:1"))
}
