// Package config loads asyncrunner command line configuration from TOML or
// YAML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Swind/go-async-runner/logging"
)

// Config is the file configuration of the asyncrunner command.
type Config struct {
	// Workers is the size of the worker queue's goroutine pool.
	Workers int `toml:"workers" yaml:"workers"`

	// IterationTimeout bounds each main loop iteration made by the run loop.
	IterationTimeout time.Duration `toml:"iteration_timeout" yaml:"iteration_timeout"`

	// WaitForQueuedWork keeps the run loop going until queued work items
	// without a task have run too.
	WaitForQueuedWork bool `toml:"wait_for_queued_work" yaml:"wait_for_queued_work"`

	// LogLevel is one of trace, debug, info, notice, warn, error or off.
	LogLevel string `toml:"log_level" yaml:"log_level"`

	// MetricsAddr, when set, serves Prometheus metrics at /metrics.
	MetricsAddr string `toml:"metrics_addr" yaml:"metrics_addr"`

	Demo Demo `toml:"demo" yaml:"demo"`
}

// Demo holds the timings of the demo scenario.
type Demo struct {
	// Delays are awaited by one primary task each before it prints.
	Delays []time.Duration `toml:"delays" yaml:"delays"`

	// Deferred are the delays of the primary work items scheduled from the
	// worker queue without a task.
	Deferred []time.Duration `toml:"deferred" yaml:"deferred"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Workers:          2,
		IterationTimeout: 100 * time.Millisecond,
		LogLevel:         "info",
		Demo: Demo{
			Delays:   []time.Duration{time.Second, 2 * time.Second},
			Deferred: []time.Duration{time.Second, 3 * time.Second},
		},
	}
}

// Load reads path over Default. The format is picked by extension: .toml,
// .yaml or .yml. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = decodeTOML(data, cfg)
	case ".yaml", ".yml":
		err = decodeYAML(data, cfg)
	default:
		return nil, fmt.Errorf("config: unsupported file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeTOML(data []byte, cfg *Config) error {
	meta, err := toml.Decode(string(data), cfg)
	if err != nil {
		return err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.IterationTimeout <= 0 {
		errs = append(errs, fmt.Errorf("iteration_timeout must be positive, got %v", c.IterationTimeout))
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	for i, d := range c.Demo.Delays {
		if d < 0 {
			errs = append(errs, fmt.Errorf("demo.delays[%d] must not be negative, got %v", i, d))
		}
	}
	for i, d := range c.Demo.Deferred {
		if d < 0 {
			errs = append(errs, fmt.Errorf("demo.deferred[%d] must not be negative, got %v", i, d))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: invalid: %w", err)
	}
	return nil
}
