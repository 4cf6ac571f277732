// Package config loads the mergegate configuration: a TOML file with
// environment-variable overrides. Missing file means defaults; fields
// absent from the file keep their defaults.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Env override variables. Environment wins over the file.
const (
	EnvSandboxed = "MG_SANDBOXED"
	EnvDBPath    = "MG_DB"
	EnvHTTPAddr  = "MG_HTTP_ADDR"
	EnvGHBinary  = "MG_GH_BIN"
)

// Config is the resolved runtime configuration.
type Config struct {
	// DBPath is the SQLite task database.
	DBPath string

	// HTTPAddr is the listen address for the transition/audit API.
	HTTPAddr string

	// StatePath receives the last sweep summary as JSON.
	StatePath string

	// GHBinary is the gh CLI binary name or path.
	GHBinary string

	// Sandboxed short-circuits integrity verification to soft-pass.
	// Explicit opt-in only: never inferred from paths or build tags,
	// so a production-like setup cannot skip checks by accident.
	Sandboxed bool

	// SweepInterval is the time between reconciliation passes.
	SweepInterval time.Duration

	// CacheTTL bounds mergeability verdict reuse.
	CacheTTL time.Duration

	// LogCapacity bounds the in-process merge attempt log.
	LogCapacity int
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		DBPath:        "mergegate.db",
		HTTPAddr:      ":8377",
		StatePath:     "state/last_sweep.json",
		GHBinary:      "gh",
		SweepInterval: 5 * time.Minute,
		CacheTTL:      30 * time.Second,
		LogCapacity:   1000,
	}
}

// fileConfig is the TOML shape. Durations are strings so operators
// write "90s" / "5m", and absent fields stay distinguishable from
// explicit zeros.
type fileConfig struct {
	DBPath        *string `toml:"db_path"`
	HTTPAddr      *string `toml:"http_addr"`
	StatePath     *string `toml:"state_path"`
	GHBinary      *string `toml:"gh_binary"`
	Sandboxed     *bool   `toml:"sandboxed"`
	SweepInterval *string `toml:"sweep_interval"`
	CacheTTL      *string `toml:"cache_ttl"`
	LogCapacity   *int    `toml:"log_capacity"`
}

// Load reads path (if it exists), overlays it on the defaults, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file: defaults plus env.
	case err != nil:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	default:
		var fc fileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if err := cfg.apply(&fc); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) apply(fc *fileConfig) error {
	if fc.DBPath != nil {
		c.DBPath = *fc.DBPath
	}
	if fc.HTTPAddr != nil {
		c.HTTPAddr = *fc.HTTPAddr
	}
	if fc.StatePath != nil {
		c.StatePath = *fc.StatePath
	}
	if fc.GHBinary != nil {
		c.GHBinary = *fc.GHBinary
	}
	if fc.Sandboxed != nil {
		c.Sandboxed = *fc.Sandboxed
	}
	if fc.SweepInterval != nil {
		dur, err := time.ParseDuration(*fc.SweepInterval)
		if err != nil {
			return fmt.Errorf("invalid sweep_interval %q: %w", *fc.SweepInterval, err)
		}
		if dur <= 0 {
			return fmt.Errorf("sweep_interval must be positive, got %v", dur)
		}
		c.SweepInterval = dur
	}
	if fc.CacheTTL != nil {
		dur, err := time.ParseDuration(*fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("invalid cache_ttl %q: %w", *fc.CacheTTL, err)
		}
		if dur <= 0 {
			return fmt.Errorf("cache_ttl must be positive, got %v", dur)
		}
		c.CacheTTL = dur
	}
	if fc.LogCapacity != nil {
		if *fc.LogCapacity <= 0 {
			return fmt.Errorf("log_capacity must be positive, got %d", *fc.LogCapacity)
		}
		c.LogCapacity = *fc.LogCapacity
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDBPath); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTPAddr = v
	}
	if v := os.Getenv(EnvGHBinary); v != "" {
		c.GHBinary = v
	}
	switch os.Getenv(EnvSandboxed) {
	case "1", "true", "yes":
		c.Sandboxed = true
	case "0", "false", "no":
		c.Sandboxed = false
	}
}
