package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on cfg.
// NEXT_PUBLIC_EDGE_URL is honoured for parity with the web dashboard;
// EDGE_URL wins when both are set.
func ApplyEnv(cfg *Config, lookup LookupFunc) error {
	if cfg == nil || lookup == nil {
		return nil
	}

	if v, ok := lookupNonEmpty(lookup, "NEXT_PUBLIC_EDGE_URL"); ok {
		cfg.Relay.BaseURL = v
	}
	if v, ok := lookupNonEmpty(lookup, "EDGE_URL"); ok {
		cfg.Relay.BaseURL = v
	}
	if v, ok := lookupNonEmpty(lookup, "RELAY_API_URL"); ok {
		cfg.Relay.APIURL = v
	}
	if v, ok := lookupNonEmpty(lookup, "DASH_POLL_INTERVAL"); ok {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: DASH_POLL_INTERVAL %q is not an integer", ErrInvalid, v)
		}
		cfg.Poll.IntervalMs = ms
	}
	if v, ok := lookupNonEmpty(lookup, "DASH_LOG_FILE"); ok {
		cfg.Log.File = v
	}
	if v, ok := lookupNonEmpty(lookup, "DASH_LOG_CONSOLE"); ok {
		cfg.Log.Console = strings.EqualFold(v, "true")
	}
	if v, ok := lookupNonEmpty(lookup, "DASH_PROXY_LISTEN"); ok {
		cfg.Proxy.Listen = v
	}
	return nil
}

func lookupNonEmpty(lookup LookupFunc, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
