package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// HostConfig is the optional tiny.yaml configuration a host may place
// next to its scripts. Zero values fall back to the built-in defaults.
type HostConfig struct {
	// StackSize overrides the thread value-stack capacity.
	StackSize int `yaml:"stack_size,omitempty"`

	// IndirSize overrides the thread indirection-stack capacity.
	IndirSize int `yaml:"indir_size,omitempty"`

	// Disassemble makes the CLI print bytecode before running.
	Disassemble bool `yaml:"disassemble,omitempty"`

	// Modules lists the foreign-function modules the host binds
	// before compiling (e.g. "core", "term", "ident", "db", "rpc").
	Modules []string `yaml:"modules,omitempty"`
}

// LoadHostConfig reads and validates path. A missing file is not an
// error; it returns the zero config.
func LoadHostConfig(path string) (HostConfig, error) {
	var hc HostConfig

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return hc, nil
		}
		return hc, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &hc); err != nil {
		return hc, fmt.Errorf("parsing %s: %w", path, err)
	}

	if hc.StackSize < 0 || hc.IndirSize < 0 {
		return hc, fmt.Errorf("%s: stack sizes must be positive", path)
	}

	return hc, nil
}

// StackSizeOrDefault returns the configured value-stack size.
func (hc HostConfig) StackSizeOrDefault() int {
	if hc.StackSize > 0 {
		return hc.StackSize
	}
	return DefaultStackSize
}

// IndirSizeOrDefault returns the configured indirection-stack size.
func (hc HostConfig) IndirSizeOrDefault() int {
	if hc.IndirSize > 0 {
		return hc.IndirSize
	}
	return DefaultIndirSize
}
