// Package view turns loosely typed relay payloads into display-ready values.
// Every function here is total: malformed input yields a fallback, never a
// panic or an error.
package view

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Placeholder stands in for any absent value.
const Placeholder = "—"

// AsNumber accepts only numeric values; numeric-looking strings are not
// numbers. NaN and infinities are rejected.
func AsNumber(value any) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint64:
		f = float64(v)
	case uint32:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// AsString returns value when it is a string.
func AsString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// AsList returns value as a list when it is one.
func AsList(value any) ([]any, bool) {
	list, ok := value.([]any)
	return list, ok
}

// AsObject returns value as a JSON object when it is one.
func AsObject(value any) (map[string]any, bool) {
	obj, ok := value.(map[string]any)
	return obj, ok
}

func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// FormatValue renders a scalar as-is and summarises containers.
// nil renders as the placeholder.
func FormatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return Placeholder
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case map[string]any:
		return pluralize(len(v), "{%d key}", "{%d keys}")
	case []any:
		return pluralize(len(v), "[%d item]", "[%d items]")
	}
	if f, ok := AsNumber(value); ok {
		return FormatNumber(f)
	}
	return fmt.Sprintf("%v", value)
}

// Percent renders a 0..1 fraction as a whole percentage, rounding halves up.
// Values too large to scale render as 0%, like NaN.
func Percent(fraction float64) string {
	rounded := math.Floor(fraction*100 + 0.5)
	if math.IsNaN(rounded) || math.IsInf(rounded, 0) {
		rounded = 0
	}
	return strconv.FormatFloat(rounded, 'f', 0, 64) + "%"
}

// DateOnly keeps the part of an ISO-8601 timestamp before the first T.
func DateOnly(timestamp string) string {
	if idx := strings.IndexByte(timestamp, 'T'); idx >= 0 {
		return timestamp[:idx]
	}
	return timestamp
}

func pluralize(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf(one, n)
	}
	return fmt.Sprintf(many, n)
}
