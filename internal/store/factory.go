package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// Config selects and configures a backend.
type Config struct {
	// Backend names a registered backend; empty means "sqlite".
	Backend string
	// Path is the database file (sqlite) or directory (badger).
	// An empty badger path runs in memory.
	Path string
	// Graph configures the graphdb backend.
	Graph GraphConfig
	// Logger receives backend lifecycle messages. Nil discards them.
	Logger *logrus.Logger
}

// GraphConfig holds the Bolt connection settings of the graphdb backend.
type GraphConfig struct {
	URI      string
	Username string
	Password string
	Database string
}

// Factory opens a backend from its configuration.
type Factory func(ctx context.Context, cfg Config) (Backend, error)

var (
	factories   = map[string]Factory{}
	factoriesMu sync.RWMutex
)

// RegisterBackend registers a factory under name.
// Backend packages call this from init(). This function is goroutine-safe.
func RegisterBackend(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveBackend returns the effective backend name, defaulting to "sqlite".
func resolveBackend(cfg Config) string {
	if cfg.Backend == "" {
		return "sqlite"
	}
	return cfg.Backend
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	name := resolveBackend(cfg)

	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported storage backend %q (registered: %v): %w", name, Backends(), ErrInvalidInput)
	}

	if cfg.Logger == nil {
		cfg.Logger = DiscardLogger()
	}
	return factory(ctx, cfg)
}
