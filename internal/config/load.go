package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Flags are the global command-line flags. Register them on a FlagSet with
// Bind, parse, then hand them to Load.
type Flags struct {
	fs *flag.FlagSet

	ConfigFile string
	APIURL     string
	Timeout    time.Duration
	Theme      string
	Group      bool
	LogLevel   string
	LogFormat  string
	LogFile    string
}

// Bind registers the global flags on fs.
func Bind(fs *flag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVar(&f.ConfigFile, "config", "", "path to a config file (replaces ~/.tada/config.toml and .tada.toml)")
	fs.StringVar(&f.APIURL, "api", "", "API base URL (default "+DefaultAPIURL+")")
	fs.DurationVar(&f.Timeout, "timeout", 0, "per-request timeout")
	fs.StringVar(&f.Theme, "theme", "", "output theme: classic, neon or mono")
	fs.BoolVar(&f.Group, "group", false, "group printed output by pending/done")
	fs.StringVar(&f.LogLevel, "log-level", "", "log level: debug, info, warn, error")
	fs.StringVar(&f.LogFormat, "log-format", "", "log format: text, json, logfmt")
	fs.StringVar(&f.LogFile, "log-file", "", "log file used while the TUI is running")
	return f
}

// Load resolves the configuration. flags may be nil.
func Load(flags *Flags) (*Config, error) {
	cfg := Default()

	explicit := os.Getenv("TADA_CONFIG")
	if flags != nil && flags.ConfigFile != "" {
		explicit = flags.ConfigFile
	}
	if explicit != "" {
		if err := loadConfigFile(cfg, expandPath(explicit)); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", explicit, err)
		}
	} else {
		for _, p := range []string{expandPath(UserConfigFile), ProjectConfigFile} {
			if err := loadConfigFile(cfg, p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("loading config file %s: %w", p, err)
			}
		}
	}

	dotenv, err := godotenv.Read(DotEnvFile)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", DotEnvFile, err)
	}
	if err := loadFromEnv(cfg, envLookup(dotenv)); err != nil {
		return nil, err
	}

	if flags != nil {
		flags.apply(cfg)
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.File = expandPath(cfg.Log.File)
	cfg.Server.DB = expandPath(cfg.Server.DB)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadConfigFile(cfg *Config, path string) error {
	_, err := toml.DecodeFile(path, cfg)
	return err
}

// envLookup prefers the process environment and falls back to .env values.
func envLookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			return v
		}
		return dotenv[key]
	}
}

func loadFromEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("REACT_APP_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := getenv("TADA_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := getenv("TADA_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("TADA_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := getenv("TADA_THEME"); v != "" {
		cfg.Theme = strings.ToLower(v)
	}
	if v := getenv("TADA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv("TADA_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := getenv("TADA_LOG_FILE"); v != "" {
		cfg.Log.File = v
	}
	if v := getenv("TADA_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := getenv("TADA_STORE"); v != "" {
		cfg.Server.Store = v
	}
	if v := getenv("TADA_DB"); v != "" {
		cfg.Server.DB = v
	}
	return nil
}

// apply copies the flags the user actually set.
func (f *Flags) apply(cfg *Config) {
	if f.fs == nil {
		return
	}
	f.fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "api":
			cfg.APIURL = f.APIURL
		case "timeout":
			cfg.Timeout = f.Timeout
		case "theme":
			cfg.Theme = strings.ToLower(f.Theme)
		case "group":
			cfg.Group = f.Group
		case "log-level":
			cfg.Log.Level = f.LogLevel
		case "log-format":
			cfg.Log.Format = f.LogFormat
		case "log-file":
			cfg.Log.File = f.LogFile
		}
	})
}

// expandPath expands ~/ and environment variables in p.
func expandPath(p string) string {
	if p == "" {
		return p
	}
	expanded := os.ExpandEnv(p)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return expanded
		}
		return filepath.Join(home, strings.TrimPrefix(expanded[1:], "/"))
	}
	return expanded
}
