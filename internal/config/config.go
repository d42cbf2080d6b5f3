// Package config loads the optional quin.yaml tool configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileName is looked up in the working directory when no explicit path
// is given.
const FileName = "quin.yaml"

// Config holds tool settings. Zero values mean "use the default".
type Config struct {
	// MemorySize is the VM data memory in bytes.
	MemorySize int `yaml:"memory_size,omitempty"`

	// MaxCallDepth bounds the VM call stack.
	MaxCallDepth int `yaml:"max_call_depth,omitempty"`

	// CheckInterval is the instruction count between cancellation checks.
	CheckInterval int `yaml:"check_interval,omitempty"`

	// Backend selects the code generator: "vm" (default) or "8086".
	Backend string `yaml:"backend,omitempty"`
}

func Default() *Config {
	return &Config{Backend: "vm"}
}

// Load reads the config file at path. A missing file is not an error;
// the defaults are returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.Backend == "" {
		cfg.Backend = "vm"
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MemorySize < 0 {
		return fmt.Errorf("memory_size must not be negative")
	}
	if c.MemorySize > 0 && c.MemorySize < 1024 {
		return fmt.Errorf("memory_size %d is too small (minimum 1024 bytes)", c.MemorySize)
	}
	if c.MaxCallDepth < 0 {
		return fmt.Errorf("max_call_depth must not be negative")
	}
	if c.CheckInterval < 0 {
		return fmt.Errorf("check_interval must not be negative")
	}
	if c.Backend != "vm" && c.Backend != "8086" {
		return fmt.Errorf("backend must be \"vm\" or \"8086\", found %q", c.Backend)
	}
	return nil
}
