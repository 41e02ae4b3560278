package backends

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, prefix string) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	r := NewRedis(client, prefix)
	t.Cleanup(func() { _ = r.Close() })
	return r, mr
}

func TestRedisBackend(t *testing.T) {
	runBackendSuite(t, func(t *testing.T) Backend {
		r, _ := newTestRedis(t, "test:")
		return r
	})
}

func TestRedisKeysArePrefixed(t *testing.T) {
	r, mr := newTestRedis(t, "device-1:")
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, "@talkify_streak", []byte(`{"data":3}`)))

	stored, err := mr.Get("device-1:@talkify_streak")
	require.NoError(t, err)
	assert.Equal(t, `{"data":3}`, stored)
}

func TestRedisDefaultPrefix(t *testing.T) {
	r, mr := newTestRedis(t, "")
	require.NoError(t, r.Put(context.Background(), "k", []byte("v")))
	assert.True(t, mr.Exists(DefaultRedisPrefix+"k"))
}

func TestRedisClearLeavesOtherNamespaces(t *testing.T) {
	r, mr := newTestRedis(t, "talkify:")
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", "keep"))
	for _, key := range []string{"@talkify_words", "@talkify_quiz_data", "@talkify_streak"} {
		require.NoError(t, r.Put(ctx, key, []byte("x")))
	}

	require.NoError(t, r.Clear(ctx))

	assert.Equal(t, []string{"other:key"}, mr.Keys())
}

func TestRedisServerDown(t *testing.T) {
	r, mr := newTestRedis(t, "talkify:")
	mr.Close()

	_, _, err := r.Get(context.Background(), "@talkify_words")
	require.Error(t, err)
}
