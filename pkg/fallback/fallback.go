// Package fallback serves network-first reads that degrade to the cache and
// then to a default value. A fetch never fails: IsOffline is the only signal
// callers need to branch on.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkify/talkify/pkg/cachestore"
	"github.com/talkify/talkify/pkg/connectivity"
	"github.com/talkify/talkify/pkg/metrics"
)

// ErrOffline is the FetchErr of a result served without attempting the
// network because the connectivity check said offline.
var ErrOffline = errors.New("network unreachable")

// Source names where a result's data came from.
type Source string

const (
	SourceNetwork Source = "network"
	SourceCache   Source = "cache"
	SourceDefault Source = "default"
)

// Result is the outcome of one Fetch.
type Result[T any] struct {
	Data      T
	IsOffline bool
	Source    Source

	// CacheStatus is the status of the fallback cache read. It is only
	// meaningful when Source is not SourceNetwork.
	CacheStatus cachestore.Status
	// FetchErr is why the network result was not used: ErrOffline, or the
	// operation's error.
	FetchErr error
	// CacheWriteErr is the outcome of persisting a fresh network result.
	CacheWriteErr error
}

// Fetcher holds the collaborators shared by every fallback fetch.
type Fetcher struct {
	store    *cachestore.Store
	checker  *connectivity.Checker
	maxAge   time.Duration
	logger   *slog.Logger
	latency  *metrics.LatencyTracker
	outcomes *metrics.Outcomes
}

// Option configures a Fetcher at New.
type Option func(*Fetcher)

// WithMaxAge sets how old a cached entry may be and still be served.
func WithMaxAge(d time.Duration) Option {
	return func(f *Fetcher) { f.maxAge = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = logger }
}

func WithLatency(lt *metrics.LatencyTracker) Option {
	return func(f *Fetcher) { f.latency = lt }
}

func WithOutcomes(o *metrics.Outcomes) Option {
	return func(f *Fetcher) { f.outcomes = o }
}

// New returns a fetcher. A nil checker counts as always online; a nil store
// behaves like an unavailable cache.
func New(store *cachestore.Store, checker *connectivity.Checker, opts ...Option) *Fetcher {
	f := &Fetcher{
		store:   store,
		checker: checker,
		maxAge:  cachestore.DefaultMaxAge,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	return f
}

// Store returns the cache store the fetcher reads and writes.
func (f *Fetcher) Store() *cachestore.Store {
	return f.store
}

// Online runs the connectivity check.
func (f *Fetcher) Online(ctx context.Context) bool {
	return f.checker.IsOnline(ctx)
}

// Fetch runs op when online and caches its result under key. When offline,
// or when op fails, it serves a cache entry younger than the fetcher's max
// age, and otherwise def.
func Fetch[T any](ctx context.Context, f *Fetcher, key string, op func(context.Context) (T, error), def T) Result[T] {
	defer f.latency.Since(metrics.OpFallback, time.Now())

	res := fetch(ctx, f, key, op, def)
	f.outcomes.Fetch(key, string(res.Source))
	return res
}

func fetch[T any](ctx context.Context, f *Fetcher, key string, op func(context.Context) (T, error), def T) Result[T] {
	var fetchErr error
	if f.checker.IsOnline(ctx) {
		data, err := runOperation(ctx, f, op)
		if err == nil {
			res := Result[T]{Data: data, Source: SourceNetwork}
			if f.store != nil {
				res.CacheWriteErr = f.store.Write(ctx, key, data)
			}
			return res
		}
		f.logger.Warn("failed to fetch, falling back to cache", "key", key, "error", err)
		fetchErr = err
	} else {
		fetchErr = ErrOffline
	}

	status := cachestore.Unavailable
	if f.store != nil {
		var cached T
		cached, status = cachestore.Read[T](ctx, f.store, key, f.maxAge)
		if status.OK() {
			return Result[T]{
				Data:        cached,
				IsOffline:   true,
				Source:      SourceCache,
				CacheStatus: status,
				FetchErr:    fetchErr,
			}
		}
	}

	f.logger.Debug("serving default value", "key", key, "cache_status", status.String())
	return Result[T]{
		Data:        def,
		IsOffline:   true,
		Source:      SourceDefault,
		CacheStatus: status,
		FetchErr:    fetchErr,
	}
}

func runOperation[T any](ctx context.Context, f *Fetcher, op func(context.Context) (T, error)) (data T, err error) {
	defer f.latency.Since(metrics.OpNetwork, time.Now())
	defer func() {
		if r := recover(); r != nil {
			var zero T
			data, err = zero, fmt.Errorf("operation panicked: %v", r)
		}
	}()
	if op == nil {
		var zero T
		return zero, errors.New("no operation given")
	}
	return op(ctx)
}
