// Package config loads mailrender settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvBackend   = "MAILRENDER_BACKEND"
	EnvAddr      = "MAILRENDER_ADDR"
	EnvLogLevel  = "MAILRENDER_LOG_LEVEL"
	EnvCacheSize = "MAILRENDER_CACHE_SIZE"
)

// HTML sanitize modes.
const (
	SanitizeNone   = "none"
	SanitizeUGC    = "ugc"
	SanitizeStrict = "strict"
)

type Config struct {
	Backend    string           `yaml:"backend"`
	Cache      CacheConfig      `yaml:"cache"`
	HTML       HTMLConfig       `yaml:"html"`
	Handlebars HandlebarsConfig `yaml:"handlebars"`
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	Size    int  `yaml:"size"`
}

type HTMLConfig struct {
	Sanitize string `yaml:"sanitize"`
}

type HandlebarsConfig struct {
	Strict bool `yaml:"strict"`
}

type ServerConfig struct {
	Addr          string        `yaml:"addr"`
	RenderTimeout time.Duration `yaml:"render_timeout"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Backend: "handlebars",
		Cache: CacheConfig{
			Size: 256,
		},
		HTML: HTMLConfig{
			Sanitize: SanitizeNone,
		},
		Handlebars: HandlebarsConfig{
			Strict: true,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			RenderTimeout: 5 * time.Second,
			MaxBodyBytes:  1 << 20,
		},
		Log: LogConfig{
			Format: "console",
		},
	}
}

// Load reads path over the defaults and applies environment overrides. An
// empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := strings.TrimSpace(getenv(EnvBackend)); v != "" {
		c.Backend = v
	}
	if v := strings.TrimSpace(getenv(EnvAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(getenv(EnvLogLevel)); v != "" {
		c.Log.Level = v
	}
	if v := strings.TrimSpace(getenv(EnvCacheSize)); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", EnvCacheSize, err)
		}
		c.Cache.Enabled = size > 0
		c.Cache.Size = size
	}
	return nil
}

// Validate checks values Load cannot fix on its own.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Backend) == "" {
		errs = append(errs, errors.New("config: backend is required"))
	}
	switch c.HTML.Sanitize {
	case "", SanitizeNone, SanitizeUGC, SanitizeStrict:
	default:
		errs = append(errs, fmt.Errorf("config: unknown html.sanitize %q", c.HTML.Sanitize))
	}
	if c.Cache.Enabled && c.Cache.Size <= 0 {
		errs = append(errs, errors.New("config: cache.size must be positive when cache is enabled"))
	}
	if c.Server.RenderTimeout < 0 {
		errs = append(errs, errors.New("config: server.render_timeout must not be negative"))
	}
	return errors.Join(errs...)
}

// CacheSize is the effective cache size, zero when disabled.
func (c Config) CacheSize() int {
	if !c.Cache.Enabled {
		return 0
	}
	return c.Cache.Size
}
