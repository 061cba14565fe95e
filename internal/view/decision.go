package view

// Decision is the summary view of a triage decision.
type Decision struct {
	Present       bool
	Triage        string
	NextAction    string
	Confidence    float64
	ConfidencePct string
	Reasons       []string
}

// DecisionSummary summarises a decision record. A nil or empty record yields
// placeholders, 0% and no reasons.
func DecisionSummary(record map[string]any) Decision {
	out := Decision{
		Present:    record != nil,
		Triage:     FormatValue(record["triage"]),
		NextAction: FormatValue(record["next_action"]),
		Reasons:    []string{},
	}
	if confidence, ok := AsNumber(record["confidence"]); ok {
		out.Confidence = confidence
	}
	out.ConfidencePct = Percent(out.Confidence)

	if reasons, ok := AsList(record["reasons"]); ok {
		for _, reason := range reasons {
			out.Reasons = append(out.Reasons, FormatValue(reason))
		}
	}
	return out
}
