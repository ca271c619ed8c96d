package database

import (
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/photo-library/internal/config"
)

// Opener opens a Store for a backend, running its migrations.
type Opener func(cfg *config.DatabaseConfig) (Store, error)

var (
	backends   = make(map[string]Opener)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a backend constructor under name.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the backend selected by cfg.Driver().
func Open(cfg *config.DatabaseConfig) (Store, error) {
	name := cfg.Driver()
	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("database backend %q is not registered", name)
	}
	return open(cfg)
}
