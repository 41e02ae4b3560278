package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes counts how offline-fallback calls were served. It owns a private
// registry so several instances can coexist in tests.
type Outcomes struct {
	registry    *prometheus.Registry
	fetches     *prometheus.CounterVec
	cacheReads  *prometheus.CounterVec
	writeFail   *prometheus.CounterVec
	probeResult *prometheus.CounterVec
}

func NewOutcomes() *Outcomes {
	registry := prometheus.NewRegistry()

	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talkify_fallback_fetches_total",
		Help: "Offline-fallback fetches by cache key and serving source",
	}, []string{"key", "source"})

	cacheReads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talkify_cache_reads_total",
		Help: "Cache store reads by key and status",
	}, []string{"key", "status"})

	writeFail := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talkify_cache_write_failures_total",
		Help: "Best-effort cache writes that failed",
	}, []string{"key"})

	probeResult := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "talkify_connectivity_checks_total",
		Help: "Connectivity checks by result",
	}, []string{"result"})

	registry.MustRegister(fetches, cacheReads, writeFail, probeResult)

	return &Outcomes{
		registry:    registry,
		fetches:     fetches,
		cacheReads:  cacheReads,
		writeFail:   writeFail,
		probeResult: probeResult,
	}
}

func (o *Outcomes) Fetch(key, source string) {
	if o == nil {
		return
	}
	o.fetches.WithLabelValues(key, source).Inc()
}

func (o *Outcomes) CacheRead(key, status string) {
	if o == nil {
		return
	}
	o.cacheReads.WithLabelValues(key, status).Inc()
}

func (o *Outcomes) CacheWriteFailed(key string) {
	if o == nil {
		return
	}
	o.writeFail.WithLabelValues(key).Inc()
}

// Probe records a connectivity result: "online", "offline" or "indeterminate".
func (o *Outcomes) Probe(result string) {
	if o == nil {
		return
	}
	o.probeResult.WithLabelValues(result).Inc()
}

// Registry exposes the gatherer for export.
func (o *Outcomes) Registry() *prometheus.Registry {
	return o.registry
}

// WriteTextfile writes the counters in the node-exporter textfile format.
func (o *Outcomes) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, o.registry)
}
