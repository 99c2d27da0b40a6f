// Package config loads the taxonomist configuration file.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	taxerrors "github.com/FocuswithJustin/taxonomist/core/errors"
	"github.com/FocuswithJustin/taxonomist/internal/logging"
)

// Environment variables that override the file.
const (
	EnvDatabase  = "TAXONOMIST_DB"
	EnvLogLevel  = "TAXONOMIST_LOG_LEVEL"
	EnvLogFormat = "TAXONOMIST_LOG_FORMAT"
)

// Render modes.
const (
	ModeCanonical = "canonical"
	ModePatch     = "patch"
)

// Config is the taxonomist configuration.
type Config struct {
	// Database is the path of the SQLite graph database.
	Database string       `yaml:"database"`
	Log      LogConfig    `yaml:"log"`
	Import   ImportConfig `yaml:"import"`
	Render   RenderConfig `yaml:"render"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ImportConfig configures imports.
type ImportConfig struct {
	// Concurrency is the number of files parsed at once.
	Concurrency int `yaml:"concurrency"`
}

// RenderConfig configures exports.
type RenderConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: "taxonomist.db",
		Log:      LogConfig{Level: "warn", Format: "text"},
		Import:   ImportConfig{Concurrency: 4},
		Render:   RenderConfig{Mode: ModePatch},
	}
}

// Load reads the file at path over the defaults and applies environment
// overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, taxerrors.NewNotFound("config file", path)
		}
		if err != nil {
			return nil, taxerrors.NewIO("read", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &taxerrors.ParseError{Format: "config", Path: path, Message: err.Error(), Err: err}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDatabase); v != "" {
		c.Database = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Log.Format = v
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c.Database == "" {
		return taxerrors.NewValidation("database", "must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return taxerrors.NewValidation("log.level", fmt.Sprintf("unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return taxerrors.NewValidation("log.format", fmt.Sprintf("unknown format %q", c.Log.Format))
	}
	if c.Import.Concurrency < 1 {
		return taxerrors.NewValidation("import.concurrency", "must be at least 1")
	}
	switch c.Render.Mode {
	case ModeCanonical, ModePatch:
	default:
		return taxerrors.NewValidation("render.mode", fmt.Sprintf("unknown mode %q", c.Render.Mode))
	}
	return nil
}

// InitLogging configures the global logger from the log section.
func (c *Config) InitLogging() {
	logging.InitLogger(logging.ParseLevel(c.Log.Level), logging.ParseFormat(c.Log.Format))
}

// Write saves the configuration as YAML.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
