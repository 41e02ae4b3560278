package backends

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runBackendSuite exercises the contract every Backend must honor.
func runBackendSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()

	t.Run("missing key is a miss", func(t *testing.T) {
		b := newBackend(t)
		value, ok, err := b.Get(context.Background(), "@talkify_words")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, value)
	})

	t.Run("put then get round trips", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		payload := []byte(`{"data":{"word":"apple"},"timestamp":1700000000000}`)

		require.NoError(t, b.Put(ctx, "@talkify_daily_word", payload))

		value, ok, err := b.Get(ctx, "@talkify_daily_word")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, payload, value)
	})

	t.Run("put replaces previous value", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Put(ctx, "k", []byte("first")))
		require.NoError(t, b.Put(ctx, "k", []byte("second")))

		value, ok, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("second"), value)
	})

	t.Run("delete removes only named keys", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Put(ctx, "a", []byte("1")))
		require.NoError(t, b.Put(ctx, "b", []byte("2")))
		require.NoError(t, b.Put(ctx, "c", []byte("3")))

		require.NoError(t, b.Delete(ctx, "a", "b", "never-written"))

		for _, key := range []string{"a", "b"} {
			_, ok, err := b.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok, "key %q should be deleted", key)
		}
		value, ok, err := b.Get(ctx, "c")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("3"), value)
	})

	t.Run("clear removes everything", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()

		require.NoError(t, b.Put(ctx, "a", []byte("1")))
		require.NoError(t, b.Put(ctx, "b", []byte("2")))
		require.NoError(t, b.Clear(ctx))

		for _, key := range []string{"a", "b"} {
			_, ok, err := b.Get(ctx, key)
			require.NoError(t, err)
			assert.False(t, ok)
		}
	})

	t.Run("returned value is not aliased", func(t *testing.T) {
		b := newBackend(t)
		ctx := context.Background()
		payload := []byte("abc")

		require.NoError(t, b.Put(ctx, "k", payload))
		payload[0] = 'z'

		value, ok, err := b.Get(ctx, "k")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, []byte("abc"), value)
	})

	t.Run("operations fail after close", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Close())

		_, _, err := b.Get(context.Background(), "k")
		assert.True(t, errors.Is(err, ErrClosed), "Get after Close: %v", err)
		err = b.Put(context.Background(), "k", []byte("v"))
		assert.True(t, errors.Is(err, ErrClosed), "Put after Close: %v", err)
	})
}
