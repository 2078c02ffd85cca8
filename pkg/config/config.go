package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/scenegraph/pkg/logging"
)

// FileName is the optional config file read from the working directory
const FileName = "scenegraph.toml"

// EnvPrefix prefixes environment overrides, e.g. SCENEGRAPH_PORT=9090
const EnvPrefix = "SCENEGRAPH_"

// Config holds all configuration for the application
type Config struct {
	Project   string `koanf:"project"`
	Adapter   string `koanf:"adapter"`
	Out       string `koanf:"out"`
	Module    string `koanf:"module"`
	Component string `koanf:"component"`
	Port      int    `koanf:"port"`
	Watch     bool   `koanf:"watch"`
	Verbosity string `koanf:"verbosity"`
	Verbose   int    `koanf:"verbose"`
	JSONLogs  bool   `koanf:"json-logs"`
}

// Defaults are the lowest-priority values
var Defaults = map[string]interface{}{
	"project":   "scene.json",
	"adapter":   "",
	"out":       "generated",
	"module":    "",
	"component": "",
	"port":      8080,
	"watch":     false,
	"verbosity": "",
	"verbose":   0,
	"json-logs": false,
}

// Load loads configuration from defaults, config file, environment variables, and flags.
// Priority: Flags > Env > Config File > Defaults
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(makeMapProvider(Defaults), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// The config file is optional; a missing file is not an error
	if err := k.Load(file.Provider(FileName), toml.Parser()); err != nil {
		logging.Debug("no config file loaded", "file", FileName, "error", err)
	}

	// SCENEGRAPH_JSON_LOGS maps to json-logs
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(
			strings.TrimPrefix(s, EnvPrefix)), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if _, err := cfg.LogLevel(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LogLevel resolves the effective level. An explicit verbosity name wins
// over repeated -v flags.
func (c *Config) LogLevel() (slog.Level, error) {
	if c.Verbosity != "" {
		return logging.ParseLevel(c.Verbosity)
	}
	switch {
	case c.Verbose >= 2:
		return logging.LevelTrace, nil
	case c.Verbose == 1:
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, nil
	}
}

// ApplyLogging configures the logging package from c
func (c *Config) ApplyLogging() {
	level, err := c.LogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	logging.SetLevel(level)
	logging.SetJSONOutput(c.JSONLogs)
}

// Helper to use map as a provider
type mapProvider struct {
	m map[string]interface{}
}

func makeMapProvider(m map[string]interface{}) *mapProvider {
	return &mapProvider{m: m}
}

func (p *mapProvider) Read() (map[string]interface{}, error) {
	return p.m, nil
}

func (p *mapProvider) ReadBytes() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}
