package backends

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/dgraph-io/ristretto"

	"github.com/talkify/talkify/pkg/locking"
)

// Tiered keeps recently read envelopes in a ristretto cache in front of a
// slower backend. Writes go to the cold backend first; the hot tier is only
// populated once the cold write succeeded, so the two never disagree about
// the latest value. Writes and hot-tier fills for one key are serialized, so
// a fill that read an older value cannot land after a newer write.
type Tiered struct {
	hot    *ristretto.Cache
	cold   Backend
	locks  locking.Group
	closed atomic.Bool
}

// NewTiered wraps cold with a hot tier bounded to roughly maxBytes of values.
func NewTiered(cold Backend, maxBytes int64) (*Tiered, error) {
	if cold == nil {
		return nil, errors.New("cold backend is required")
	}
	if maxBytes <= 0 {
		maxBytes = 8 << 20
	}
	hot, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hot tier: %w", err)
	}
	return &Tiered{hot: hot, cold: cold, locks: locking.NewMemLock()}, nil
}

func (t *Tiered) Put(ctx context.Context, key string, value []byte) error {
	if t.closed.Load() {
		return ErrClosed
	}
	return t.locks.DoWithLock(key, func() error {
		// Drop the hot copy first so a failed cold write cannot leave a stale
		// value readable.
		t.hot.Del(key)
		if err := t.cold.Put(ctx, key, value); err != nil {
			return err
		}
		t.remember(key, value)
		return nil
	})
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if t.closed.Load() {
		return nil, false, ErrClosed
	}
	if value, found := t.hot.Get(key); found {
		if data, ok := value.([]byte); ok {
			return cloneBytes(data), true, nil
		}
		t.hot.Del(key)
	}

	// ristretto may reject or evict a set, so a hot miss always falls back to
	// the authoritative cold backend.
	var (
		data []byte
		ok   bool
	)
	err := t.locks.DoWithLock(key, func() error {
		var err error
		data, ok, err = t.cold.Get(ctx, key)
		if err != nil || !ok {
			return err
		}
		t.remember(key, data)
		return nil
	})
	if err != nil || !ok {
		return nil, false, err
	}
	return data, true, nil
}

func (t *Tiered) Delete(ctx context.Context, keys ...string) error {
	if t.closed.Load() {
		return ErrClosed
	}
	// Removing the hot copies again afterwards drops any fill that raced
	// the cold delete.
	for _, key := range keys {
		t.hot.Del(key)
	}
	err := t.cold.Delete(ctx, keys...)
	for _, key := range keys {
		_ = t.locks.DoWithLock(key, func() error {
			t.hot.Del(key)
			return nil
		})
	}
	return err
}

func (t *Tiered) Clear(ctx context.Context) error {
	if t.closed.Load() {
		return ErrClosed
	}
	t.hot.Clear()
	return t.cold.Clear(ctx)
}

func (t *Tiered) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	t.hot.Close()
	return t.cold.Close()
}

func (t *Tiered) remember(key string, value []byte) {
	cost := int64(len(value))
	if cost == 0 {
		cost = 1
	}
	t.hot.Set(key, cloneBytes(value), cost)
	t.hot.Wait()
}

var _ Backend = (*Tiered)(nil)
