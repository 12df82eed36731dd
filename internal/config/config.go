package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds persistent keyring settings loaded from ~/.keyring/config.yaml.
type Config struct {
	// Backend forces a backend by name instead of the platform priority order.
	Backend      string `yaml:"backend"`
	StorePath    string `yaml:"store_path"`
	FileFallback bool   `yaml:"file_fallback"`
	// LockTimeout bounds the wait for a file store lock, e.g. "5s".
	LockTimeout      time.Duration `yaml:"lock_timeout"`
	ScryptWorkFactor int           `yaml:"scrypt_work_factor"`
	LogLevel         string        `yaml:"log_level"`
}

// DefaultPath returns the default config file path: ~/.keyring/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".keyring", "config.yaml")
}

// Load reads a YAML config file from path. If the file does not exist,
// it returns an empty Config and no error. An empty or all-comment file
// also returns an empty Config with no error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.StorePath = expandHome(cfg.StorePath)
	return cfg, nil
}

// Validate checks value ranges. Backend names are checked when the keyring
// is opened.
func (c *Config) Validate() error {
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout must not be negative, got %s", c.LockTimeout)
	}
	if c.ScryptWorkFactor < 0 || c.ScryptWorkFactor > 30 {
		return fmt.Errorf("scrypt_work_factor must be between 0 and 30, got %d", c.ScryptWorkFactor)
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level, Info when unset.
func (c *Config) Level() slog.Level {
	l, _ := parseLevel(c.LogLevel)
	return l
}

func parseLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return l, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
