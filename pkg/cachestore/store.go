// Package cachestore wraps a backend with timestamped JSON envelopes and the
// read-time expiry rule used by the offline fallback.
package cachestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/talkify/talkify/backends"
	"github.com/talkify/talkify/pkg/metrics"
)

// DefaultMaxAge is used whenever a read passes a non-positive max age.
const DefaultMaxAge = 24 * time.Hour

// Envelope is the persisted form of every cache entry.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Timestamp *int64          `json:"timestamp"` // epoch milliseconds
}

// Entry describes a stored envelope without decoding its payload.
type Entry struct {
	Key     string
	Written time.Time
	Age     time.Duration
	Size    int
}

// Store reads and writes envelopes over one backend. It is safe for
// concurrent use; concurrent writes to a key resolve last-write-wins.
type Store struct {
	backend  backends.Backend
	now      func() time.Time
	logger   *slog.Logger
	latency  *metrics.LatencyTracker
	outcomes *metrics.Outcomes
	closed   atomic.Bool
}

// Option configures a Store at Open.
type Option func(*Store)

// WithClock replaces time.Now, mostly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

func WithLatency(lt *metrics.LatencyTracker) Option {
	return func(s *Store) { s.latency = lt }
}

func WithOutcomes(o *metrics.Outcomes) Option {
	return func(s *Store) { s.outcomes = o }
}

// Open returns a store over backend. The store owns backend from here on and
// closes it in Close.
func Open(backend backends.Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("cache backend is required")
	}
	s := &Store{backend: backend, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Write replaces the envelope under key with payload stamped with the
// current time. The error is informational: callers on the fallback path
// record it and carry on.
func (s *Store) Write(ctx context.Context, key string, payload any) (err error) {
	defer s.latency.Since(metrics.OpCacheWrite, time.Now())
	defer func() {
		if err != nil {
			s.outcomes.CacheWriteFailed(key)
			s.logger.Warn("failed to write cache entry", "key", key, "error", err)
		}
	}()

	if s.closed.Load() {
		return backends.ErrClosed
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	ts := s.now().UnixMilli()
	raw, err := json.Marshal(Envelope{Data: data, Timestamp: &ts})
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}
	if err := s.backend.Put(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to store envelope: %w", err)
	}
	return nil
}

// ReadInto decodes the payload under key into dst when the entry is younger
// than maxAge. dst is only meaningful when the status is Hit.
func (s *Store) ReadInto(ctx context.Context, key string, maxAge time.Duration, dst any) Status {
	defer s.latency.Since(metrics.OpCacheRead, time.Now())

	status := s.read(ctx, key, maxAge, dst)
	s.outcomes.CacheRead(key, status.String())
	return status
}

func (s *Store) read(ctx context.Context, key string, maxAge time.Duration, dst any) Status {
	env, _, status := s.load(ctx, key)
	if !status.OK() {
		return status
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	age := s.now().UnixMilli() - *env.Timestamp
	if age >= maxAge.Milliseconds() {
		return Expired
	}
	if err := decodeInto(env.Data, dst); err != nil {
		s.logger.Warn("failed to decode cached payload", "key", key, "error", err)
		return Corrupt
	}
	return Hit
}

// load fetches and parses the envelope without applying the expiry rule.
func (s *Store) load(ctx context.Context, key string) (Envelope, int, Status) {
	var env Envelope
	if s.closed.Load() {
		return env, 0, Unavailable
	}
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.Warn("failed to read cache entry", "key", key, "error", err)
		return env, 0, Unavailable
	}
	if !ok {
		return env, 0, Absent
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn("failed to parse cache envelope", "key", key, "error", err)
		return env, len(raw), Corrupt
	}
	if env.Timestamp == nil {
		s.logger.Warn("cache envelope has no timestamp", "key", key)
		return env, len(raw), Corrupt
	}
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return env, len(raw), Absent
	}
	return env, len(raw), Hit
}

func decodeInto(data json.RawMessage, dst any) error {
	if raw, ok := dst.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	return json.Unmarshal(data, dst)
}

// Read is the typed form of ReadInto.
func Read[T any](ctx context.Context, s *Store, key string, maxAge time.Duration) (T, Status) {
	var value T
	status := s.ReadInto(ctx, key, maxAge, &value)
	if status != Hit {
		var zero T
		return zero, status
	}
	return value, status
}

// Inspect reports the age and size of the envelope under key. The expiry
// rule is not applied; Status is Hit for any well-formed entry.
func (s *Store) Inspect(ctx context.Context, key string) (Entry, Status) {
	env, size, status := s.load(ctx, key)
	entry := Entry{Key: key, Size: size}
	if env.Timestamp != nil {
		entry.Written = time.UnixMilli(*env.Timestamp)
		entry.Age = s.now().Sub(entry.Written)
	}
	return entry, status
}

// Clear removes keys in one batch, or every known key when none are given.
func (s *Store) Clear(ctx context.Context, keys ...string) error {
	if s.closed.Load() {
		return backends.ErrClosed
	}
	if len(keys) == 0 {
		keys = KnownKeys()
	}
	if err := s.backend.Delete(ctx, keys...); err != nil {
		s.logger.Warn("failed to clear cache", "keys", keys, "error", err)
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Reset wipes every entry in the backend's namespace, not just the known
// keys: the saved session, the tutor quota and keys left behind by older
// releases go too.
func (s *Store) Reset(ctx context.Context) error {
	if s.closed.Load() {
		return backends.ErrClosed
	}
	if err := s.backend.Clear(ctx); err != nil {
		s.logger.Warn("failed to reset cache", "error", err)
		return fmt.Errorf("failed to reset cache: %w", err)
	}
	return nil
}

// Close flushes and releases the backend. Later calls are no-ops.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.backend.Close()
}
