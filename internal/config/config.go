// Package config resolves dashboard settings from an optional YAML file,
// a local .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks a configuration that failed validation.
var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultRelayURL       = "http://127.0.0.1:8000"
	DefaultPollInterval   = 2000
	DefaultCycleTimeout   = 5000
	DefaultCommandTimeout = 5000
	DefaultLogFile        = "./logs/edgefhir-dash.log"
	DefaultProxyListen    = ":3000"
)

type Config struct {
	Relay    RelayConfig   `yaml:"relay"`
	Poll     PollConfig    `yaml:"poll"`
	Commands CommandConfig `yaml:"commands"`
	Log      LogConfig     `yaml:"log"`
	Proxy    ProxyConfig   `yaml:"proxy"`

	// DotEnvLoaded records whether a .env file was read. Load runs before
	// logging is set up, so reporting it is left to the caller.
	DotEnvLoaded bool `yaml:"-"`
}

// RelayConfig locates the relay control service.
// BaseURL is the relay itself; APIURL is where the dashboard sends its
// reads and commands, which differs only when going through the /api proxy.
type RelayConfig struct {
	BaseURL string `yaml:"base_url"`
	APIURL  string `yaml:"api_url"`
}

type PollConfig struct {
	IntervalMs     int `yaml:"interval_ms"`
	CycleTimeoutMs int `yaml:"cycle_timeout_ms"`
}

type CommandConfig struct {
	TimeoutMs int `yaml:"timeout_ms"`
}

type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
	Console    bool   `yaml:"console"`
}

type ProxyConfig struct {
	Listen string `yaml:"listen"`
}

func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}

// CycleTimeout is zero when cycles are unbounded.
func (p PollConfig) CycleTimeout() time.Duration {
	return time.Duration(p.CycleTimeoutMs) * time.Millisecond
}

func (c CommandConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Relay: RelayConfig{BaseURL: DefaultRelayURL},
		Poll: PollConfig{
			IntervalMs:     DefaultPollInterval,
			CycleTimeoutMs: DefaultCycleTimeout,
		},
		Commands: CommandConfig{TimeoutMs: DefaultCommandTimeout},
		Log: LogConfig{
			File:       DefaultLogFile,
			MaxSizeMB:  5,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
		Proxy: ProxyConfig{Listen: DefaultProxyListen},
	}
}

// Load builds the effective configuration. An empty path skips the file.
func Load(path string) (*Config, string, error) {
	cfg := Default()
	resolved := ""
	if strings.TrimSpace(path) != "" {
		fileCfg, resolvedPath, err := LoadFile(path)
		if err != nil {
			return nil, resolvedPath, err
		}
		cfg = fileCfg
		resolved = resolvedPath
	}

	cfg.DotEnvLoaded = godotenv.Load() == nil
	if err := ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, resolved, err
	}
	if err := Validate(cfg); err != nil {
		return nil, resolved, err
	}
	Normalize(cfg)
	return cfg, resolved, nil
}

// LoadFile reads a local YAML file on top of the defaults.
func LoadFile(path string) (*Config, string, error) {
	rawPath := strings.TrimSpace(path)
	if rawPath == "" {
		return nil, "", fmt.Errorf("config file path is required")
	}
	if strings.Contains(rawPath, "://") {
		return nil, "", fmt.Errorf("only local filesystem paths are supported")
	}

	resolvedPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, "", fmt.Errorf("resolve config path %q: %w", rawPath, err)
	}

	blob, err := os.ReadFile(resolvedPath)
	if err != nil {
		return nil, resolvedPath, fmt.Errorf("read config file %q: %w", resolvedPath, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(blob, cfg); err != nil {
		return nil, resolvedPath, fmt.Errorf("parse config YAML %q: %w", resolvedPath, err)
	}
	return cfg, resolvedPath, nil
}
