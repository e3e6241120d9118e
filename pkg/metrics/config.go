package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics are recorded.
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

// New builds a Registry from cfg. A disabled config yields nil, which the
// Registry methods treat as a no-op recorder.
func New(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return NewRegistry(reg)
}
