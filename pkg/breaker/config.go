package breaker

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the trip and recovery policy of a breaker.
type Config struct {
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32 `yaml:"max_requests"`
	// Interval is the cyclic period after which closed-state counts reset. Zero never resets.
	Interval time.Duration `yaml:"interval"`
	// Timeout is how long the breaker stays open before going half-open.
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
	FailureRatio        float64       `yaml:"failure_ratio"`
	MinRequests         uint32        `yaml:"min_requests"`
}

// DefaultConfig returns the policy used when nothing else is configured.
func DefaultConfig() Config {
	return Config{
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
		FailureRatio:        0.5,
		MinRequests:         10,
	}
}

// merge returns c with every zero field taken from base.
func (c Config) merge(base Config) Config {
	out := base
	if c.MaxRequests != 0 {
		out.MaxRequests = c.MaxRequests
	}
	if c.Interval != 0 {
		out.Interval = c.Interval
	}
	if c.Timeout != 0 {
		out.Timeout = c.Timeout
	}
	if c.ConsecutiveFailures != 0 {
		out.ConsecutiveFailures = c.ConsecutiveFailures
	}
	if c.FailureRatio != 0 {
		out.FailureRatio = c.FailureRatio
	}
	if c.MinRequests != 0 {
		out.MinRequests = c.MinRequests
	}
	return out
}

// File is the on-disk layout of breaker overrides.
//
//	defaults:
//	  timeout: 10s
//	breakers:
//	  emailService:
//	    consecutive_failures: 3
type File struct {
	Defaults Config            `yaml:"defaults"`
	Breakers map[string]Config `yaml:"breakers"`
}

// LoadFile reads a YAML overrides file. An empty path yields an empty File.
func LoadFile(path string) (*File, error) {
	if path == "" {
		return &File{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read breaker config: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse breaker config %s: %w", path, err)
	}
	return &f, nil
}

// Apply layers the file on top of base and returns the resulting registry options.
func (f *File) Apply(base Config) (Config, Option) {
	defaults := f.Defaults.merge(base)
	return defaults, WithOverrides(f.Breakers)
}
