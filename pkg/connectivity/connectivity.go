// Package connectivity answers whether the network is likely reachable.
//
// Every check probes afresh. There is no result caching, polling or event
// subscription. When a probe cannot decide, the answer is online: a broken
// probe must never force stale data when the network might work.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talkify/talkify/pkg/metrics"
)

// Probe reports whether the network is reachable. A non-nil error means the
// probe could not decide.
type Probe interface {
	Reachable(ctx context.Context) (bool, error)
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) (bool, error)

func (f ProbeFunc) Reachable(ctx context.Context) (bool, error) {
	return f(ctx)
}

// Checker runs a probe with fail-open semantics.
type Checker struct {
	probe    Probe
	logger   *slog.Logger
	latency  *metrics.LatencyTracker
	outcomes *metrics.Outcomes
}

type Option func(*Checker)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) { c.logger = logger }
}

func WithLatency(lt *metrics.LatencyTracker) Option {
	return func(c *Checker) { c.latency = lt }
}

func WithOutcomes(o *metrics.Outcomes) Option {
	return func(c *Checker) { c.outcomes = o }
}

// NewChecker returns a checker over probe. A nil probe is indeterminate, so
// the checker always reports online.
func NewChecker(probe Probe, opts ...Option) *Checker {
	c := &Checker{probe: probe}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// IsOnline reports whether the network is likely reachable. It returns true
// whenever the probe errors, panics or is missing.
func (c *Checker) IsOnline(ctx context.Context) bool {
	if c == nil {
		return true
	}
	defer c.latency.Since(metrics.OpProbe, time.Now())

	online, err := c.run(ctx)
	if err != nil {
		c.logger.Debug("connectivity probe indeterminate, assuming online", "error", err)
		c.outcomes.Probe("indeterminate")
		return true
	}
	if online {
		c.outcomes.Probe("online")
	} else {
		c.outcomes.Probe("offline")
	}
	return online
}

func (c *Checker) run(ctx context.Context) (online bool, err error) {
	if c.probe == nil {
		return false, errors.New("no connectivity probe configured")
	}
	defer func() {
		if r := recover(); r != nil {
			online, err = false, fmt.Errorf("connectivity probe panicked: %v", r)
		}
	}()
	return c.probe.Reachable(ctx)
}
