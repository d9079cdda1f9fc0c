// Package config loads and validates the optional .shellbridge YAML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for bridge configuration.
const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxOutput = 1 << 20 // 1 MB
	DefaultLogLevel  = "info"

	// MinTimeout and MaxTimeout bound the configured default timeout.
	// The clamp lives at this boundary only; the executor accepts any
	// positive value handed to it.
	MinTimeout = 1 * time.Second
	MaxTimeout = 300 * time.Second
)

// FileName is the config file looked up in the working directory.
const FileName = ".shellbridge"

// Config holds the parsed .shellbridge configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int    `yaml:"version"`
	RawWorkDir   string `yaml:"work_dir"`   // relay/status directory
	ShellPath    string `yaml:"shell_path"` // explicit shell executable
	RawTimeout   string `yaml:"timeout"`    // e.g. "30s", "2m"
	RawMaxOutput int    `yaml:"max_output"` // bytes
	RawLogLevel  string `yaml:"log_level"`  // debug, info, warn, error
}

// Timeout returns the configured default timeout, clamped to the sane
// range, or DefaultTimeout.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return clamp(d)
		}
	}
	return DefaultTimeout
}

func clamp(d time.Duration) time.Duration {
	if d < MinTimeout {
		return MinTimeout
	}
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// MaxOutputBytes returns the configured output cap or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// LogLevel returns the configured log level or the default.
func (c *Config) LogLevel() string {
	if c.RawLogLevel != "" {
		return c.RawLogLevel
	}
	return DefaultLogLevel
}

// WorkDir returns the relay work directory, resolved against base when
// the configured value is relative. The default is base/shellbridge.
func (c *Config) WorkDir(base string) string {
	dir := c.RawWorkDir
	if dir == "" {
		dir = "shellbridge"
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(base, dir)
	}
	return dir
}

// Load reads the .shellbridge file from dir. A missing file yields a
// default Config. SHELLBRIDGE_* environment variables override file
// values either way.
func Load(dir string) (*Config, error) {
	cfg := &Config{}

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus env.
	case err != nil:
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", FileName, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SHELLBRIDGE_WORK_DIR"); v != "" {
		c.RawWorkDir = v
	}
	if v := os.Getenv("SHELLBRIDGE_SHELL"); v != "" {
		c.ShellPath = v
	}
	if v := os.Getenv("SHELLBRIDGE_TIMEOUT"); v != "" {
		c.RawTimeout = v
	}
	if v := os.Getenv("SHELLBRIDGE_MAX_OUTPUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RawMaxOutput = n
		}
	}
	if v := os.Getenv("SHELLBRIDGE_LOG_LEVEL"); v != "" {
		c.RawLogLevel = v
	}
}
