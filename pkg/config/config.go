// Package config loads Clotho's run/chaos configuration from an optional YAML
// file plus environment variable overrides.
package config

import (
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/e35zhang/Clotho-Simulation-Engine/pkg/logger"
)

// KernelConfig controls a single simulation run.
type KernelConfig struct {
	// MaxEvents caps the number of events a single run may emit before it is
	// reported as a probable livelock. Defaults to 100000 per spec.
	MaxEvents int `json:"max_events" yaml:"max_events" env:"CLOTHO_MAX_EVENTS"`
	// Strict halts a run on the first invariant violation instead of merely
	// logging it.
	Strict bool `json:"strict" yaml:"strict" env:"CLOTHO_STRICT"`
}

// ChaosConfig controls a batch of parallel runs.
type ChaosConfig struct {
	// Workers bounds in-flight runs; 0 means "use runtime.NumCPU()".
	Workers int `json:"workers" yaml:"workers" env:"CLOTHO_WORKERS"`
	// SeedStart and Count describe the contiguous seed range [SeedStart,
	// SeedStart+Count) the batch drives.
	SeedStart int64 `json:"seed_start" yaml:"seed_start" env:"CLOTHO_SEED_START"`
	Count     int   `json:"count" yaml:"count" env:"CLOTHO_COUNT"`
}

// Config is the top-level configuration structure.
type Config struct {
	Logging logger.Config `json:"logging" yaml:"logging"`
	Kernel  KernelConfig  `json:"kernel" yaml:"kernel"`
	Chaos   ChaosConfig   `json:"chaos" yaml:"chaos"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Logging: logger.Config{Level: "info", Format: "text", Output: "stdout"},
		Kernel:  KernelConfig{MaxEvents: 100000, Strict: false},
		Chaos:   ChaosConfig{Workers: 0, SeedStart: 0, Count: 100},
	}
}

// Load loads configuration from an optional .env file, an optional YAML file
// named by CLOTHO_CONFIG_FILE, and environment variable overrides, in that
// order of increasing precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := New()

	if path := strings.TrimSpace(os.Getenv("CLOTHO_CONFIG_FILE")); path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envdecode.Decode(cfg); err != nil {
		// envdecode errors when no tagged field had a matching environment
		// variable set; treat that as "no overrides" so bare runs work.
		if !strings.Contains(err.Error(), "none of the target fields were set") {
			return nil, err
		}
	}

	cfg.normalize()
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) normalize() {
	if c.Kernel.MaxEvents <= 0 {
		c.Kernel.MaxEvents = 100000
	}
	if c.Chaos.Count <= 0 {
		c.Chaos.Count = 1
	}
}
