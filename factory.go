package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	"github.com/go-redis/redis/v8"

	"github.com/talkify/talkify/backends"
	"github.com/talkify/talkify/pkg/connectivity"
	"github.com/talkify/talkify/pkg/locking"
)

// openBackend builds the configured backend, optionally behind a hot tier
// and the debug decorator. The caller owns the result and must Close it.
func openBackend(ctx context.Context, cfg Config, logger *slog.Logger) (backends.Backend, error) {
	var (
		backend backends.Backend
		err     error
	)
	switch cfg.CacheBackend {
	case "disk":
		backend, err = backends.NewDisk(cfg.CacheDir, locking.NewMemLock(), logger)
	case "sqlite":
		backend, err = backends.OpenSQLite(cfg.CacheDBPath)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		backend = backends.NewRedis(client, cfg.RedisPrefix)
	case "s3":
		backend, err = backends.NewS3FromConfig(ctx, backends.S3Options{
			Bucket:   cfg.S3Bucket,
			Prefix:   cfg.S3Prefix,
			Endpoint: cfg.S3Endpoint,
		})
	case "memory":
		backend = backends.NewMemory(cfg.CacheMemoryEntries)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s backend: %w", cfg.CacheBackend, err)
	}

	if cfg.CacheHotBytes > 0 {
		tiered, err := backends.NewTiered(backend, cfg.CacheHotBytes)
		if err != nil {
			_ = backend.Close()
			return nil, fmt.Errorf("failed to create hot tier: %w", err)
		}
		backend = tiered
	}
	if cfg.Debug {
		backend = backends.NewDebug(backend, logger)
	}
	return backend, nil
}

func newProbe(cfg Config) (connectivity.Probe, error) {
	switch cfg.Probe {
	case "online":
		return connectivity.Static(true), nil
	case "offline":
		return connectivity.Static(false), nil
	case "interfaces":
		return connectivity.InterfaceProbe{}, nil
	case "dial":
		addr := cfg.ProbeAddr
		if addr == "" {
			var err error
			if addr, err = hostPort(cfg.APIURL); err != nil {
				return nil, err
			}
		}
		return connectivity.DialProbe{Addr: addr, Timeout: cfg.ProbeTimeout}, nil
	case "http":
		target := cfg.ProbeAddr
		if target == "" {
			target = cfg.APIURL
		}
		return connectivity.HTTPProbe{URL: target, Timeout: cfg.ProbeTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown probe %q", cfg.Probe)
	}
}

// hostPort derives a dial address from a URL, filling in the scheme's port.
func hostPort(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("URL %q has no host", raw)
	}
	port := u.Port()
	if port == "" {
		port = "80"
		if u.Scheme == "https" {
			port = "443"
		}
	}
	return net.JoinHostPort(u.Hostname(), port), nil
}
