// Package config loads molbuild.yaml.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/molbuild/internal/builder"
	"github.com/roach88/molbuild/internal/filter"
	"github.com/roach88/molbuild/internal/pipeline"
	"github.com/roach88/molbuild/internal/store"
)

// DefaultFile is the config file looked up when none is given.
const DefaultFile = "molbuild.yaml"

// Config is the full runtime configuration.
type Config struct {
	Database Database `yaml:"database"`

	// Rules is a path to a .cue, .yaml or .json rule table. Empty selects
	// the embedded default table.
	Rules string `yaml:"rules,omitempty"`

	// Query restricts the tasks a pass considers: {field: value} for
	// equality, {field: [v1, v2]} for membership.
	Query map[string]any `yaml:"query,omitempty"`

	Workers       int           `yaml:"workers,omitempty"`
	GroupTimeout  time.Duration `yaml:"group_timeout,omitempty"`
	EnergyPath    string        `yaml:"energy_path,omitempty"`
	StructurePath string        `yaml:"structure_path,omitempty"`
	Retry         Retry         `yaml:"retry,omitempty"`

	// MetricsAddr enables a Prometheus /metrics listener when set.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Database selects the store backend.
type Database struct {
	Driver string `yaml:"driver,omitempty"` // sqlite3 or pgx
	DSN    string `yaml:"dsn,omitempty"`
}

// Retry configures store retries.
type Retry struct {
	MaxAttempts    int           `yaml:"max_attempts,omitempty"`
	InitialBackoff time.Duration `yaml:"initial_backoff,omitempty"`
	MaxBackoff     time.Duration `yaml:"max_backoff,omitempty"`
	RateLimit      float64       `yaml:"rate_limit,omitempty"`
	Burst          int           `yaml:"burst,omitempty"`
}

// Default returns the configuration used without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and validates a config file. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML with strict field checking, applies defaults and
// validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = store.DriverSQLite
	}
	if c.Database.DSN == "" && c.Database.Driver == store.DriverSQLite {
		c.Database.DSN = "molbuild.db"
	}
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.GroupTimeout == 0 {
		c.GroupTimeout = pipeline.DefaultGroupTimeout
	}
	if c.EnergyPath == "" {
		c.EnergyPath = builder.DefaultEnergyPath
	}
	if c.StructurePath == "" {
		c.StructurePath = builder.DefaultStructurePath
	}

	def := store.DefaultRetryPolicy()
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = def.MaxAttempts
	}
	if c.Retry.InitialBackoff == 0 {
		c.Retry.InitialBackoff = def.InitialBackoff
	}
	if c.Retry.MaxBackoff == 0 {
		c.Retry.MaxBackoff = def.MaxBackoff
	}
	if c.Retry.RateLimit == 0 {
		c.Retry.RateLimit = def.RateLimit
	}
	if c.Retry.Burst == 0 {
		c.Retry.Burst = def.Burst
	}
}

// Validate checks field values after defaults are applied.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("database.driver: unsupported driver %q (want %s or %s)",
			c.Database.Driver, store.DriverSQLite, store.DriverPostgres)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for driver %s", c.Database.Driver)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.GroupTimeout < 0 {
		return fmt.Errorf("group_timeout must be positive, got %s", c.GroupTimeout)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.InitialBackoff < 0 || c.Retry.MaxBackoff < 0 {
		return fmt.Errorf("retry backoffs must be positive")
	}
	if c.Retry.InitialBackoff > c.Retry.MaxBackoff {
		return fmt.Errorf("retry.initial_backoff (%s) exceeds retry.max_backoff (%s)",
			c.Retry.InitialBackoff, c.Retry.MaxBackoff)
	}
	if c.Retry.RateLimit < 0 {
		return fmt.Errorf("retry.rate_limit must not be negative, got %g", c.Retry.RateLimit)
	}
	if _, err := c.Filter(); err != nil {
		return err
	}
	return nil
}

// Filter converts Query to a task filter.
func (c *Config) Filter() (filter.Predicate, error) {
	if len(c.Query) == 0 {
		return nil, nil
	}
	return filter.FromMap(c.Query)
}

// RetryPolicy converts Retry to the store's policy type.
func (c *Config) RetryPolicy() store.RetryPolicy {
	return store.RetryPolicy{
		MaxAttempts:    c.Retry.MaxAttempts,
		InitialBackoff: c.Retry.InitialBackoff,
		MaxBackoff:     c.Retry.MaxBackoff,
		RateLimit:      c.Retry.RateLimit,
		Burst:          c.Retry.Burst,
	}
}
