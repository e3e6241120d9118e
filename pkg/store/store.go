// Package store persists run reports.
//
// Three backends implement Store: an in-memory map for single runs and
// tests, SQLite for a local run history and Redis for sharing recent runs
// between serve instances. Open picks one from Config.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vnykmshr/wareflow/pkg/report"
)

// ErrNotFound is returned when a run does not exist or has expired.
var ErrNotFound = errors.New("run not found")

// Store saves and retrieves run reports.
type Store interface {
	// Save records r, replacing any run with the same ID.
	Save(ctx context.Context, r *report.Run) error

	// Latest returns the most recently started run.
	Latest(ctx context.Context) (*report.Run, error)

	// Get returns the run with the given ID.
	Get(ctx context.Context, id string) (*report.Run, error)

	// List returns up to limit summaries, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]report.Summary, error)

	// Close releases the backend's resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Backends lists the supported backends.
var Backends = []string{BackendMemory, BackendSQLite, BackendRedis}

// RedisConfig configures the Redis backend.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db" yaml:"db"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Keep     int           `mapstructure:"keep" yaml:"keep"`
}

// Config selects and configures a backend.
type Config struct {
	Backend string      `mapstructure:"backend" yaml:"backend"`
	Path    string      `mapstructure:"path" yaml:"path"`
	Redis   RedisConfig `mapstructure:"redis" yaml:"redis"`
}

// DefaultConfig keeps runs in a local SQLite file.
func DefaultConfig() Config {
	return Config{
		Backend: BackendSQLite,
		Path:    "wareflow.db",
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "wareflow",
			TTL:    24 * time.Hour,
			Keep:   100,
		},
	}
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		return NewMemory(), nil

	case BackendSQLite:
		return OpenSQLite(cfg.Path)

	case BackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return NewRedis(client, cfg.Redis), nil
	}

	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func checkRun(r *report.Run) error {
	if r == nil {
		return errors.New("run cannot be nil")
	}
	if r.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	return nil
}

// MarshalYAML writes TTL in its human form.
func (c RedisConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
		TTL      string `yaml:"ttl"`
		Keep     int    `yaml:"keep"`
	}{c.Addr, c.Password, c.DB, c.Prefix, c.TTL.String(), c.Keep}, nil
}
