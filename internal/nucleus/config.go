package nucleus

import (
	"fmt"
	"os"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors nucleus.yml.
type Config struct {
	TickNS      int64 `yaml:"tick_ns"`      // 1 (aperiodic) by default
	MinPriority int   `yaml:"min_priority"` // 0 by default
	MaxPriority int   `yaml:"max_priority"` // 99 by default, higher is more urgent
	TraceBuffer int   `yaml:"trace_buffer"` // 256 by default
	JoinPollMS  int   `yaml:"join_poll_ms"` // 10 by default
	FIFOWait    bool  `yaml:"fifo_wait"`    // wait queues in arrival order instead of priority order
}

// If the config file is not found, we use default values
func defaultConfig() Config {
	return Config{
		TickNS:      1,
		MinPriority: 0,
		MaxPriority: 99,
		TraceBuffer: 256,
		JoinPollMS:  10,
	}
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

// Load reads YAML and overrides defaults; empty path or unreadable file = defaults only.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		return cfg
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}

	_ = yaml.Unmarshal(data, &cfg)
	return cfg.clamp()
}

// LoadStrict is Load, but a missing or malformed file is an error.
func LoadStrict(path string) (Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg.clamp(), nil
}

// sanity clamps
func (cfg Config) clamp() Config {
	if cfg.TickNS <= 0 {
		cfg.TickNS = 1
	}
	if cfg.MaxPriority <= cfg.MinPriority {
		cfg.MinPriority, cfg.MaxPriority = 0, 99
	}
	if cfg.TraceBuffer <= 0 {
		cfg.TraceBuffer = 256
	}
	if cfg.JoinPollMS <= 0 {
		cfg.JoinPollMS = 10
	}
	return cfg
}
