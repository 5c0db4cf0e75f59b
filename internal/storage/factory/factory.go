// Package factory provides functions for creating storage backends based on configuration.
package factory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/steveyegge/tempo/internal/storage"
	"github.com/steveyegge/tempo/internal/storage/dolt"
	"github.com/steveyegge/tempo/internal/storage/memory"
	"github.com/steveyegge/tempo/internal/storage/sqlite"
	"github.com/steveyegge/tempo/internal/telemetry"
)

// Backend names.
const (
	BackendSQLite = "sqlite"
	BackendDolt   = "dolt"
	BackendMemory = "memory"
)

// BackendFactory is a function that creates a storage backend
type BackendFactory func(ctx context.Context, opts Options) (storage.Storage, error)

// backendRegistry holds registered backend factories
var backendRegistry = make(map[string]BackendFactory)

// RegisterBackend registers a storage backend factory
func RegisterBackend(name string, factory BackendFactory) {
	backendRegistry[name] = factory
}

// Options configures how the storage backend is opened
type Options struct {
	// Path is the SQLite database file.
	Path string
	// BusyTimeout bounds SQLite lock waits (0 = sqlite.DefaultBusyTimeout).
	BusyTimeout time.Duration

	// Dolt server mode connection settings.
	Dolt dolt.Config
}

func init() {
	RegisterBackend(BackendMemory, func(_ context.Context, _ Options) (storage.Storage, error) {
		return memory.New(), nil
	})
	RegisterBackend(BackendSQLite, func(ctx context.Context, opts Options) (storage.Storage, error) {
		if strings.TrimSpace(opts.Path) == "" {
			return nil, fmt.Errorf("sqlite backend requires a database path")
		}
		timeout := opts.BusyTimeout
		if timeout <= 0 {
			timeout = sqlite.DefaultBusyTimeout
		}
		return sqlite.OpenWithTimeout(ctx, opts.Path, timeout)
	})
	RegisterBackend(BackendDolt, func(ctx context.Context, opts Options) (storage.Storage, error) {
		return dolt.Open(ctx, opts.Dolt)
	})
}

// New opens the named backend and decorates it with telemetry when enabled.
// An empty backend means SQLite.
func New(ctx context.Context, backend string, opts Options) (storage.Storage, error) {
	if backend == "" {
		backend = BackendSQLite
	}
	factory, ok := backendRegistry[backend]
	if !ok {
		return nil, fmt.Errorf("unknown storage backend: %s (supported: %s)", backend, strings.Join(Backends(), ", "))
	}
	store, err := factory(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", backend, err)
	}
	return telemetry.WrapStorage(store), nil
}

// Backends lists the registered backend names.
func Backends() []string {
	names := make([]string, 0, len(backendRegistry))
	for name := range backendRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
