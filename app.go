package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/talkify/talkify/pkg/api"
	"github.com/talkify/talkify/pkg/cachestore"
	"github.com/talkify/talkify/pkg/connectivity"
	"github.com/talkify/talkify/pkg/content"
	"github.com/talkify/talkify/pkg/fallback"
	"github.com/talkify/talkify/pkg/learning"
	"github.com/talkify/talkify/pkg/metrics"
	"github.com/talkify/talkify/pkg/session"
	"github.com/talkify/talkify/pkg/tutor"
)

// app holds every long-lived component of one run.
type app struct {
	cfg      Config
	logger   *slog.Logger
	latency  *metrics.LatencyTracker
	outcomes *metrics.Outcomes

	store    *cachestore.Store
	sessions *session.Store
	svc      *learning.Service
	tutor    *tutor.Tutor
}

func newApp(ctx context.Context, cfg Config, logger *slog.Logger) (*app, error) {
	if err := content.Validate(); err != nil {
		return nil, fmt.Errorf("invalid built-in content: %w", err)
	}
	latency := metrics.NewLatencyTracker(0.01)
	outcomes := metrics.NewOutcomes()

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	store, err := cachestore.Open(backend,
		cachestore.WithLogger(logger),
		cachestore.WithLatency(latency),
		cachestore.WithOutcomes(outcomes),
	)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	probe, err := newProbe(cfg)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	checker := connectivity.NewChecker(probe,
		connectivity.WithLogger(logger),
		connectivity.WithLatency(latency),
		connectivity.WithOutcomes(outcomes),
	)
	fetcher := fallback.New(store, checker,
		fallback.WithMaxAge(cfg.CacheMaxAge),
		fallback.WithLogger(logger),
		fallback.WithLatency(latency),
		fallback.WithOutcomes(outcomes),
	)

	client, err := api.NewClient(cfg.APIURL,
		api.WithTimeout(cfg.APITimeout),
		api.WithLogger(logger),
		api.WithLatency(latency),
	)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	// The session shares the backend; the store owns and closes it.
	sessions := session.NewStore(backend, logger)

	return &app{
		cfg:      cfg,
		logger:   logger,
		latency:  latency,
		outcomes: outcomes,
		store:    store,
		sessions: sessions,
		svc:      learning.New(client, fetcher, sessions, learning.WithLogger(logger)),
		tutor: tutor.New(store, tutor.Config{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			BaseURL:    cfg.GeminiURL,
			DailyLimit: cfg.TutorDailyLimit,
			HTTPClient: &http.Client{Timeout: 3 * cfg.APITimeout},
			Logger:     logger,
		}),
	}, nil
}

// Close releases the store and flushes metrics. statsOut receives latency
// statistics when PrintStats is set.
func (a *app) Close(statsOut io.Writer) error {
	var errs []error
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close cache: %w", err))
	}
	if a.cfg.MetricsFile != "" {
		if err := a.outcomes.WriteTextfile(a.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	if a.cfg.PrintStats && statsOut != nil {
		fmt.Fprintln(statsOut, "Latency statistics:")
		for _, stats := range a.latency.GetAllStats() {
			fmt.Fprintln(statsOut, stats.String())
		}
	}
	return errors.Join(errs...)
}
