package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registerer to use. If nil, uses prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:  true,
		Registry: prometheus.DefaultRegisterer,
	}
}

var (
	registriesMu sync.Mutex
	registries   = make(map[prometheus.Registerer]*Registry)
)

// Resolve returns the Registry components should record into, or nil when
// metrics are disabled. Calls with the same registerer share one Registry,
// so several components can report into one Prometheus registry.
func (c Config) Resolve() *Registry {
	if !c.Enabled {
		return nil
	}
	if c.Registry == nil || c.Registry == prometheus.DefaultRegisterer {
		return DefaultRegistry
	}

	registriesMu.Lock()
	defer registriesMu.Unlock()

	if r, ok := registries[c.Registry]; ok {
		return r
	}
	r := NewRegistry(c.Registry)
	registries[c.Registry] = r
	return r
}
