package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalid)
	}

	if err := validateURL("relay.base_url", cfg.Relay.BaseURL); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Relay.APIURL) != "" {
		if err := validateURL("relay.api_url", cfg.Relay.APIURL); err != nil {
			return err
		}
	}

	if cfg.Poll.IntervalMs < 100 {
		return fmt.Errorf("%w: poll.interval_ms must be >= 100, got %d", ErrInvalid, cfg.Poll.IntervalMs)
	}
	if cfg.Poll.CycleTimeoutMs < 0 {
		return fmt.Errorf("%w: poll.cycle_timeout_ms must be >= 0, got %d", ErrInvalid, cfg.Poll.CycleTimeoutMs)
	}
	if cfg.Commands.TimeoutMs <= 0 {
		return fmt.Errorf("%w: commands.timeout_ms must be > 0, got %d", ErrInvalid, cfg.Commands.TimeoutMs)
	}
	if cfg.Log.MaxSizeMB < 0 || cfg.Log.MaxBackups < 0 || cfg.Log.MaxAgeDays < 0 {
		return fmt.Errorf("%w: log rotation limits must be >= 0", ErrInvalid)
	}
	return nil
}

func validateURL(field, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalid, field)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %v", ErrInvalid, field, raw, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: %s %q must use http or https", ErrInvalid, field, raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%w: %s %q has no host", ErrInvalid, field, raw)
	}
	return nil
}
