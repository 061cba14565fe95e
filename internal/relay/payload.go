package relay

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultMode is reported until the relay says otherwise.
const DefaultMode = "normal"

// Status is the decoded body of GET /status. Every wire field is optional;
// missing or mistyped fields decode to their zero value. Decision and
// bundle stay loosely typed and are interpreted only by the view layer.
type Status struct {
	Phase          string
	ConnectivityOn bool
	OutboxCount    int
	LastDecision   map[string]any
	LastFhirBundle map[string]any
	LastUpdated    *time.Time
}

func DecodeStatus(obj map[string]any) Status {
	status := Status{
		Phase:       asString(obj["phase"]),
		OutboxCount: asCount(obj["outbox_count"]),
		LastUpdated: asTime(obj["last_updated"]),
	}
	if on, ok := obj["connectivity_on"].(bool); ok {
		status.ConnectivityOn = on
	}
	if decision, ok := obj["last_decision"].(map[string]any); ok {
		status.LastDecision = decision
	}
	if bundle, ok := obj["last_fhir_bundle"].(map[string]any); ok {
		status.LastFhirBundle = bundle
	}
	return status
}

// DecodeSeries extracts the vitals series. A missing or non-list series is
// an empty history; non-object samples are kept as nil so positions survive.
func DecodeSeries(obj map[string]any) []map[string]any {
	raw, ok := obj["series"].([]any)
	if !ok {
		return []map[string]any{}
	}
	series := make([]map[string]any, 0, len(raw))
	for _, item := range raw {
		sample, _ := item.(map[string]any)
		series = append(series, sample)
	}
	return series
}

func DecodeMode(obj map[string]any) string {
	if mode, ok := obj["mode"].(string); ok {
		return mode
	}
	return DefaultMode
}

func asString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asCount(value any) int {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case int:
		f = float64(v)
	default:
		return 0
	}
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// asTime accepts epoch seconds (the relay's native form) or RFC 3339.
func asTime(value any) *time.Time {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return nil
		}
		sec, frac := math.Modf(v)
		ts := time.Unix(int64(sec), int64(frac*1e9)).UTC()
		return &ts
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(v))
		if err != nil {
			return nil
		}
		return &parsed
	default:
		return nil
	}
}
