package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/scribegate/logger"
)

// Factory creates a Storage backend from config.
type Factory func(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory registers a storage backend factory for the given provider name.
// Backend packages call this in an init function.
func RegisterFactory(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = f
}

// Providers returns the registered provider names.
func Providers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New creates the backend selected by cfg.Provider. The backend package
// must be imported (e.g. _ "github.com/kbukum/scribegate/storage/s3").
func New(ctx context.Context, cfg Config, log *logger.Logger) (Storage, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	factoriesMu.RLock()
	f, ok := factories[cfg.Provider]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unsupported provider %q (registered: %v)", cfg.Provider, Providers())
	}

	log.Info("Initializing storage", map[string]interface{}{"provider": cfg.Provider})
	return f(ctx, cfg, log)
}
