package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from TALKIFY_* environment variables first; flags override.
type Config struct {
	APIURL     string        `env:"TALKIFY_API_URL"     envDefault:"http://localhost:5000/api"`
	APITimeout time.Duration `env:"TALKIFY_API_TIMEOUT" envDefault:"10s"`

	CacheBackend       string        `env:"TALKIFY_CACHE_BACKEND"        envDefault:"disk"`
	CacheDir           string        `env:"TALKIFY_CACHE_DIR"`
	CacheDBPath        string        `env:"TALKIFY_CACHE_DB_PATH"`
	CacheMaxAge        time.Duration `env:"TALKIFY_CACHE_MAX_AGE"        envDefault:"24h"`
	CacheHotBytes      int64         `env:"TALKIFY_CACHE_HOT_BYTES"`
	CacheMemoryEntries int           `env:"TALKIFY_CACHE_MEMORY_ENTRIES" envDefault:"1024"`

	RedisAddr   string `env:"TALKIFY_REDIS_ADDR"   envDefault:"localhost:6379"`
	RedisPrefix string `env:"TALKIFY_REDIS_PREFIX" envDefault:"talkify:"`

	S3Bucket   string `env:"TALKIFY_S3_BUCKET"`
	S3Prefix   string `env:"TALKIFY_S3_PREFIX"   envDefault:"talkify"`
	S3Endpoint string `env:"TALKIFY_S3_ENDPOINT"`

	Probe        string        `env:"TALKIFY_PROBE"         envDefault:"interfaces"`
	ProbeAddr    string        `env:"TALKIFY_PROBE_ADDR"`
	ProbeTimeout time.Duration `env:"TALKIFY_PROBE_TIMEOUT" envDefault:"3s"`

	GeminiAPIKey    string `env:"TALKIFY_GEMINI_API_KEY"`
	GeminiModel     string `env:"TALKIFY_GEMINI_MODEL"      envDefault:"gemini-2.0-flash"`
	GeminiURL       string `env:"TALKIFY_GEMINI_URL"        envDefault:"https://generativelanguage.googleapis.com"`
	TutorDailyLimit int    `env:"TALKIFY_TUTOR_DAILY_LIMIT" envDefault:"20"`

	Debug       bool   `env:"TALKIFY_DEBUG"`
	LogLevel    string `env:"TALKIFY_LOG_LEVEL"    envDefault:"warn"`
	MetricsFile string `env:"TALKIFY_METRICS_FILE"`
	PrintStats  bool   `env:"TALKIFY_PRINT_STATS"`
}

// ParseConfig parses the environment, then flags, and validates the result.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "backend API base URL")
	fs.DurationVar(&cfg.APITimeout, "api-timeout", cfg.APITimeout, "timeout per API request")
	fs.StringVar(&cfg.CacheBackend, "cache", cfg.CacheBackend, "cache backend: disk, sqlite, redis, s3 or memory")
	fs.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "cache directory for the disk backend")
	fs.StringVar(&cfg.CacheDBPath, "cache-db", cfg.CacheDBPath, "database file for the sqlite backend")
	fs.DurationVar(&cfg.CacheMaxAge, "max-age", cfg.CacheMaxAge, "how long cached data may be served")
	fs.Int64Var(&cfg.CacheHotBytes, "hot-bytes", cfg.CacheHotBytes, "size of the in-memory hot tier (0 disables it)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.S3Bucket, "s3-bucket", cfg.S3Bucket, "bucket for the s3 backend")
	fs.StringVar(&cfg.S3Endpoint, "s3-endpoint", cfg.S3Endpoint, "custom s3 endpoint")
	fs.StringVar(&cfg.Probe, "probe", cfg.Probe, "connectivity probe: interfaces, dial, http, online or offline")
	fs.StringVar(&cfg.ProbeAddr, "probe-addr", cfg.ProbeAddr, "address (dial) or URL (http) the probe checks")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log every cache backend call")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	fs.StringVar(&cfg.MetricsFile, "metrics-file", cfg.MetricsFile, "write prometheus counters to this file at exit")
	fs.BoolVar(&cfg.PrintStats, "print-stats", cfg.PrintStats, "print latency statistics at exit")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() error {
	if c.CacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return fmt.Errorf("failed to locate user cache directory: %w", err)
		}
		c.CacheDir = filepath.Join(base, "talkify")
	}
	if c.CacheDBPath == "" {
		c.CacheDBPath = filepath.Join(c.CacheDir, "cache.db")
	}
	c.CacheBackend = strings.ToLower(strings.TrimSpace(c.CacheBackend))
	c.Probe = strings.ToLower(strings.TrimSpace(c.Probe))
	return nil
}

func (c Config) Validate() error {
	var errs []error
	switch c.CacheBackend {
	case "disk", "sqlite", "redis", "memory":
	case "s3":
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("TALKIFY_S3_BUCKET is required for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.CacheBackend))
	}
	switch c.Probe {
	case "interfaces", "dial", "http", "online", "offline":
	default:
		errs = append(errs, fmt.Errorf("unknown probe %q", c.Probe))
	}
	if c.CacheHotBytes < 0 {
		errs = append(errs, errors.New("hot tier size must not be negative"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
