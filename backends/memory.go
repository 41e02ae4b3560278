package backends

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bluele/gcache"
)

// DefaultMemoryEntries bounds the in-memory backend. The app only ever writes
// a handful of fixed keys, so the limit exists to keep tests and ad-hoc keys
// from growing without bound.
const DefaultMemoryEntries = 1024

// Memory is a process-local LRU backend. Nothing survives a restart.
type Memory struct {
	cache  gcache.Cache
	closed atomic.Bool
}

func NewMemory(size int) *Memory {
	if size <= 0 {
		size = DefaultMemoryEntries
	}
	return &Memory{cache: gcache.New(size).LRU().Build()}
}

func (m *Memory) Put(_ context.Context, key string, value []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if err := m.cache.Set(key, cloneBytes(value)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.closed.Load() {
		return nil, false, ErrClosed
	}
	value, err := m.cache.Get(key)
	if errors.Is(err, gcache.KeyNotFoundError) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	data, ok := value.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("unexpected value type %T for %s", value, key)
	}
	return cloneBytes(data), true, nil
}

func (m *Memory) Delete(_ context.Context, keys ...string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	for _, key := range keys {
		m.cache.Remove(key)
	}
	return nil
}

func (m *Memory) Clear(context.Context) error {
	if m.closed.Load() {
		return ErrClosed
	}
	m.cache.Purge()
	return nil
}

func (m *Memory) Close() error {
	if !m.closed.Swap(true) {
		m.cache.Purge()
	}
	return nil
}

// Len reports the number of live entries.
func (m *Memory) Len() int {
	return m.cache.Len(false)
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

var _ Backend = (*Memory)(nil)
