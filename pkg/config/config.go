//go:build linux

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the engine configuration. Everything has a working default;
// a config file and PROCSIGHT_* environment variables are both optional.
type Config struct {
	// RefreshInterval is the cadence the presentation layer refreshes
	// the process table at.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// SampleInterval is the blocking pause inside the system-wide CPU
	// sampler.
	SampleInterval time.Duration `yaml:"sample_interval"`

	// ProcRoot is the proc mount point to read from.
	ProcRoot string `yaml:"proc_root"`

	// PasswdPath is the account database for owner-name resolution.
	PasswdPath string `yaml:"passwd_path"`

	// CriticalProcesses extends the built-in protected command set.
	CriticalProcesses []string `yaml:"critical_processes"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		RefreshInterval: 2 * time.Second,
		SampleInterval:  100 * time.Millisecond,
		ProcRoot:        "/proc",
		PasswdPath:      "/etc/passwd",
	}
}

// Load reads the optional yaml file at path, then applies environment
// overrides. A missing file is not an error; a present but malformed
// file is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	// Load .env if present, then let the environment win.
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PROCSIGHT_PROC_ROOT"); v != "" {
		c.ProcRoot = v
	}
	if v := os.Getenv("PROCSIGHT_PASSWD_PATH"); v != "" {
		c.PasswdPath = v
	}
	if v := os.Getenv("PROCSIGHT_REFRESH_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RefreshInterval = d
		}
	}
	if v := os.Getenv("PROCSIGHT_SAMPLE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.SampleInterval = d
		}
	}
}

// normalize clamps nonsense values back to defaults.
func (c *Config) normalize() {
	def := Default()
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = def.RefreshInterval
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = def.SampleInterval
	}
	if c.ProcRoot == "" {
		c.ProcRoot = def.ProcRoot
	}
	if c.PasswdPath == "" {
		c.PasswdPath = def.PasswdPath
	}
}
