package view

// Vitals is the most recent sample, formatted for display.
type Vitals struct {
	Present bool
	HR      string
	SpO2    string
	Temp    string
	RR      string
	Motion  string
}

// NoData is returned for an empty history.
var NoData = Vitals{
	HR:     Placeholder,
	SpO2:   Placeholder,
	Temp:   Placeholder,
	RR:     Placeholder,
	Motion: Placeholder,
}

type Metric struct {
	Label string
	Value string
	Unit  string
}

// Field names used by the relay's vitals samples.
const (
	FieldHR     = "hr"
	FieldSpO2   = "spo2"
	FieldTemp   = "temp_c"
	FieldRR     = "rr"
	FieldMotion = "motion"
)

func LatestVitals(history []map[string]any) Vitals {
	if len(history) == 0 {
		return NoData
	}
	latest := history[len(history)-1]
	return Vitals{
		Present: true,
		HR:      FormatValue(latest[FieldHR]),
		SpO2:    FormatValue(latest[FieldSpO2]),
		Temp:    FormatValue(latest[FieldTemp]),
		RR:      FormatValue(latest[FieldRR]),
		Motion:  FormatValue(latest[FieldMotion]),
	}
}

func (v Vitals) Metrics() []Metric {
	return []Metric{
		{Label: "HR", Value: v.HR, Unit: "bpm"},
		{Label: "SpO2", Value: v.SpO2, Unit: "%"},
		{Label: "Temp", Value: v.Temp, Unit: "°C"},
		{Label: "RR", Value: v.RR, Unit: "/min"},
		{Label: "Motion", Value: v.Motion},
	}
}

// Series pulls one numeric field out of the history, oldest first.
// Samples where the field is missing or not a number are skipped.
func Series(history []map[string]any, field string) []float64 {
	out := make([]float64, 0, len(history))
	for _, sample := range history {
		if f, ok := AsNumber(sample[field]); ok {
			out = append(out, f)
		}
	}
	return out
}
