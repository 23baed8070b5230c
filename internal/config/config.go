// Package config resolves tada's settings.
//
// Sources, later ones winning:
//  1. Defaults
//  2. User config file (~/.tada/config.toml)
//  3. Project config file (.tada.toml in the working directory), or the
//     file named by -config / TADA_CONFIG instead of both files
//  4. .env in the working directory
//  5. Environment variables
//  6. CLI flags
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"
)

const (
	DefaultAPIURL     = "http://localhost:8000"
	DefaultTimeout    = 10 * time.Second
	DefaultTheme      = "classic"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"
	DefaultLogFile    = "~/.tada/tada.log"
	DefaultAddr       = ":8000"
	DefaultStore      = "json"
	DefaultJSONDB     = "todos.json"
	DefaultSQLiteDB   = "todos.db"
	UserConfigFile    = "~/.tada/config.toml"
	ProjectConfigFile = ".tada.toml"
	DotEnvFile        = ".env"
)

var (
	Themes     = []string{"classic", "neon", "mono"}
	Stores     = []string{"json", "sqlite"}
	LogFormats = []string{"text", "json", "logfmt"}
	LogLevels  = []string{"debug", "info", "warn", "warning", "error", "fatal"}
)

// Config is the resolved configuration.
type Config struct {
	APIURL  string        `toml:"api_url"`
	Timeout time.Duration `toml:"timeout"`
	Theme   string        `toml:"theme"`
	Group   bool          `toml:"group"`
	Log     LogConfig     `toml:"log"`
	Server  ServerConfig  `toml:"server"`
}

// LogConfig controls the diagnostic logger.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
	File   string `toml:"file"` // used while the TUI owns the terminal
}

// ServerConfig configures the reference backend started by `tada serve`.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	Store        string   `toml:"store"`
	DB           string   `toml:"db"`
	AllowOrigins []string `toml:"allow_origins"`
}

// Default returns a config holding only default values.
func Default() *Config {
	return &Config{
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
		Theme:   DefaultTheme,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			File:   DefaultLogFile,
		},
		Server: ServerConfig{
			Addr:  DefaultAddr,
			Store: DefaultStore,
		},
	}
}

// Validate checks values that cannot be fixed up silently.
func (c *Config) Validate() error {
	var errs []error
	u, err := url.Parse(c.APIURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("api_url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("api_url %q: scheme must be http or https", c.APIURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("api_url %q: missing host", c.APIURL))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if !slices.Contains(Themes, c.Theme) {
		errs = append(errs, fmt.Errorf("theme %q: want one of %s", c.Theme, strings.Join(Themes, ", ")))
	}
	if !slices.Contains(LogLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log level %q: want one of %s", c.Log.Level, strings.Join(LogLevels, ", ")))
	}
	if !slices.Contains(LogFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log format %q: want one of %s", c.Log.Format, strings.Join(LogFormats, ", ")))
	}
	if !slices.Contains(Stores, c.Server.Store) {
		errs = append(errs, fmt.Errorf("store %q: want one of %s", c.Server.Store, strings.Join(Stores, ", ")))
	}
	return errors.Join(errs...)
}

// DBPath returns the configured store path, or the store's default.
func (s ServerConfig) DBPath() string {
	if s.DB != "" {
		return s.DB
	}
	if s.Store == "sqlite" {
		return DefaultSQLiteDB
	}
	return DefaultJSONDB
}
