package config

import "strings"

// Normalize applies post-validation normalization.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Relay.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Relay.BaseURL), "/")
	cfg.Relay.APIURL = strings.TrimRight(strings.TrimSpace(cfg.Relay.APIURL), "/")
	if cfg.Relay.APIURL == "" {
		cfg.Relay.APIURL = cfg.Relay.BaseURL
	}

	if strings.TrimSpace(cfg.Log.File) == "" {
		cfg.Log.File = DefaultLogFile
	}
	if strings.TrimSpace(cfg.Proxy.Listen) == "" {
		cfg.Proxy.Listen = DefaultProxyListen
	}
}
