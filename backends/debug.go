package backends

import (
	"context"
	"log/slog"
)

// Debug wraps any Backend and adds debug logging.
// This allows any backend implementation to have debug logging without
// coupling the debug logic to the backend implementation.
type Debug struct {
	backend Backend
	logger  *slog.Logger
}

// NewDebug creates a new debug wrapper around an existing backend.
func NewDebug(backend Backend, logger *slog.Logger) *Debug {
	if logger == nil {
		logger = slog.Default()
	}
	return &Debug{
		backend: backend,
		logger:  logger.With("component", "backend"),
	}
}

func (d *Debug) Put(ctx context.Context, key string, value []byte) error {
	d.logger.DebugContext(ctx, "put", "key", key, "size", len(value))

	if err := d.backend.Put(ctx, key, value); err != nil {
		d.logger.DebugContext(ctx, "put failed", "key", key, "error", err)
		return err
	}
	return nil
}

func (d *Debug) Get(ctx context.Context, key string) ([]byte, bool, error) {
	d.logger.DebugContext(ctx, "get", "key", key)

	value, ok, err := d.backend.Get(ctx, key)
	switch {
	case err != nil:
		d.logger.DebugContext(ctx, "get failed", "key", key, "error", err)
	case !ok:
		d.logger.DebugContext(ctx, "get miss", "key", key)
	default:
		d.logger.DebugContext(ctx, "get hit", "key", key, "size", len(value))
	}
	return value, ok, err
}

func (d *Debug) Delete(ctx context.Context, keys ...string) error {
	d.logger.DebugContext(ctx, "delete", "keys", keys)

	if err := d.backend.Delete(ctx, keys...); err != nil {
		d.logger.DebugContext(ctx, "delete failed", "keys", keys, "error", err)
		return err
	}
	return nil
}

// Clear removes all entries from the cache with debug logging.
func (d *Debug) Clear(ctx context.Context) error {
	d.logger.DebugContext(ctx, "clearing cache")

	if err := d.backend.Clear(ctx); err != nil {
		d.logger.DebugContext(ctx, "clear failed", "error", err)
		return err
	}

	d.logger.DebugContext(ctx, "cache cleared successfully")
	return nil
}

// Close performs cleanup operations with debug logging.
func (d *Debug) Close() error {
	d.logger.Debug("closing backend")

	err := d.backend.Close()
	if err != nil {
		d.logger.Debug("close failed", "error", err)
	}
	return err
}

var _ Backend = (*Debug)(nil)
