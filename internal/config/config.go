// Package config provides configuration loading for strobe.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level strobe configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Session SessionConfig `yaml:"session"`
	Threads ThreadsConfig `yaml:"threads"`
}

// LogConfig configures logger output.
type LogConfig struct {
	// Level sets the logging level (debug, info, warn, error).
	Level string `yaml:"level"`
	// Pretty enables human-readable console output.
	Pretty bool `yaml:"pretty"`
}

// SessionConfig configures the sampling session.
type SessionConfig struct {
	// Interval is the tick cadence between stack captures.
	Interval time.Duration `yaml:"interval"`
	// Duration bounds the session; zero runs until interrupted.
	Duration time.Duration `yaml:"duration"`
	// Output is the pprof profile path written at session end.
	Output string `yaml:"output"`
}

// UnmarshalYAML decodes interval and duration from strings like
// "10ms" or "1m". Absent fields keep the values already set, so file
// contents layer over the defaults.
func (s *SessionConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Interval string `yaml:"interval"`
		Duration string `yaml:"duration"`
		Output   string `yaml:"output"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	if raw.Interval != "" {
		interval, err := time.ParseDuration(raw.Interval)
		if err != nil {
			return fmt.Errorf("invalid session interval: %w", err)
		}
		s.Interval = interval
	}
	if raw.Duration != "" {
		duration, err := time.ParseDuration(raw.Duration)
		if err != nil {
			return fmt.Errorf("invalid session duration: %w", err)
		}
		s.Duration = duration
	}
	if raw.Output != "" {
		s.Output = raw.Output
	}
	return nil
}

// ThreadsConfig chooses the thread selection policy for a session.
// With no ids, names, or patterns configured, every thread is sampled.
type ThreadsConfig struct {
	// All forces capture-everything even when a narrower selection is
	// also configured.
	All bool `yaml:"all"`
	// IDs selects threads by numeric id.
	IDs []int64 `yaml:"ids"`
	// Names selects threads whose name equals one of these,
	// case-insensitively, resolved once at session start.
	Names []string `yaml:"names"`
	// Patterns selects threads whose name matches one of these
	// regular expressions.
	Patterns []string `yaml:"patterns"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Pretty: true,
		},
		Session: SessionConfig{
			Interval: 10 * time.Millisecond,
			Duration: 30 * time.Second,
			Output:   "strobe.pprof",
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the sampler cannot run
// with.
func (c *Config) Validate() error {
	if c.Session.Interval <= 0 {
		return fmt.Errorf("session interval must be positive, got %s", c.Session.Interval)
	}
	if c.Session.Duration < 0 {
		return fmt.Errorf("session duration must not be negative, got %s", c.Session.Duration)
	}
	if c.Session.Output == "" {
		return fmt.Errorf("session output path is required")
	}
	return nil
}

// Selection reports whether the thread configuration narrows the
// capture scope at all.
func (t ThreadsConfig) Selection() bool {
	return !t.All && (len(t.IDs) > 0 || len(t.Names) > 0 || len(t.Patterns) > 0)
}
