package view

import "sort"

// UnknownResource labels entries without a usable resourceType.
const UnknownResource = "Unknown"

type Bundle struct {
	Present    bool
	Type       string
	Timestamp  string
	Date       string
	Entries    []any
	EntryCount int
	// Resources counts entries per resource type.
	Resources map[string]int
}

type ResourceCount struct {
	Type  string
	Count int
}

// BundleSummary summarises a FHIR bundle without interpreting it beyond
// entry resource types.
func BundleSummary(record map[string]any) Bundle {
	out := Bundle{
		Present:   record != nil,
		Type:      FormatValue(record["type"]),
		Timestamp: FormatValue(record["timestamp"]),
		Entries:   []any{},
		Resources: map[string]int{},
	}
	out.Date = DateOnly(out.Timestamp)

	if entries, ok := AsList(record["entry"]); ok {
		out.Entries = entries
	}
	out.EntryCount = len(out.Entries)

	for _, entry := range out.Entries {
		out.Resources[resourceType(entry)]++
	}
	return out
}

func resourceType(entry any) string {
	obj, ok := AsObject(entry)
	if !ok {
		return UnknownResource
	}
	resource, ok := AsObject(obj["resource"])
	if !ok {
		return UnknownResource
	}
	rt, ok := AsString(resource["resourceType"])
	if !ok {
		return UnknownResource
	}
	return rt
}

// Types orders the histogram by count, then name.
func (b Bundle) Types() []ResourceCount {
	out := make([]ResourceCount, 0, len(b.Resources))
	for rt, count := range b.Resources {
		out = append(out, ResourceCount{Type: rt, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	return out
}
