// Package config loads server configuration from defaults, a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/taigrr/editorconfig-mcp/internal/types"
	"gopkg.in/yaml.v3"
)

const AppName = "editorconfig-mcp" // application name used for config directory

// Environment variables read by Load.
const (
	EnvPort         = "PORT"
	EnvRoot         = "EDITORCONFIG_MCP_ROOT"
	EnvLogLevel     = "EDITORCONFIG_MCP_LOG_LEVEL"
	EnvMaxFiles     = "EDITORCONFIG_MCP_MAX_FILES"
	EnvOTLPEndpoint = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Config holds the server configuration.
type Config struct {
	// Root is the project root all paths are resolved against.
	Root     string `yaml:"root"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
	// MaxFiles caps the number of candidates in one batch request.
	MaxFiles     int           `yaml:"max_files"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	RateLimit    int           `yaml:"rate_limit"`
	RateWindow   time.Duration `yaml:"rate_window"`
	// OTLPEndpoint enables trace export when set.
	OTLPEndpoint string                 `yaml:"otlp_endpoint"`
	PathFilter   types.PathFilterConfig `yaml:"path_filter"`
}

// Default returns a Config with the built-in defaults.
func Default() Config {
	return Config{
		Root:         ".",
		Port:         8432,
		LogLevel:     "info",
		MaxFiles:     1000,
		MaxBodyBytes: 1 << 20,
		RateLimit:    100,
		RateWindow:   time.Minute,
	}
}

// ConfigPath returns the standard config file path for the current platform.
func ConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadDotEnv loads a .env file from the working directory if one exists.
// Variables already set in the environment win.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

// Load builds a Config from defaults, then the YAML file at path (or the
// standard location when path is empty and a file exists there), then the
// environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(ConfigPath()); err == nil {
			path = ConfigPath()
		}
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvRoot); ok {
		c.Root = v
	}
	if v, ok := get(EnvLogLevel); ok {
		c.LogLevel = v
	}
	if v, ok := get(EnvOTLPEndpoint); ok {
		c.OTLPEndpoint = v
	}
	if v, ok := get(EnvPort); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = n
	}
	if v, ok := get(EnvMaxFiles); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvMaxFiles, v, err)
		}
		c.MaxFiles = n
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Root) == "":
		return errors.New("root must not be empty")
	case c.Port < 1 || c.Port > 65535:
		return fmt.Errorf("port %d out of range", c.Port)
	case c.MaxFiles <= 0:
		return fmt.Errorf("max_files must be positive, got %d", c.MaxFiles)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("max_body_bytes must be positive, got %d", c.MaxBodyBytes)
	case c.RateLimit <= 0:
		return fmt.Errorf("rate_limit must be positive, got %d", c.RateLimit)
	case c.RateWindow <= 0:
		return fmt.Errorf("rate_window must be positive, got %s", c.RateWindow)
	}
	return nil
}
