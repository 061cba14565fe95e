package view

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// DefaultExpandDepth opens the first two nesting levels.
const DefaultExpandDepth = 2

// RenderTree prints value as indented JSON. Containers at nesting level
// expandDepth or deeper collapse to a one-line preview. Object keys are
// sorted so the output is stable between polls.
func RenderTree(value any, expandDepth int) string {
	var b strings.Builder
	writeNode(&b, value, 0, expandDepth)
	return b.String()
}

func writeNode(b *strings.Builder, value any, level, expandDepth int) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			b.WriteString("{}")
			return
		}
		if level >= expandDepth {
			b.WriteString(FormatValue(v))
			return
		}
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		b.WriteString("{\n")
		for idx, key := range keys {
			writeIndent(b, level+1)
			b.WriteString(quoteJSON(key))
			b.WriteString(": ")
			writeNode(b, v[key], level+1, expandDepth)
			if idx < len(keys)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, level)
		b.WriteByte('}')
	case []any:
		if len(v) == 0 {
			b.WriteString("[]")
			return
		}
		if level >= expandDepth {
			b.WriteString(FormatValue(v))
			return
		}
		b.WriteString("[\n")
		for idx, item := range v {
			writeIndent(b, level+1)
			writeNode(b, item, level+1, expandDepth)
			if idx < len(v)-1 {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, level)
		b.WriteByte(']')
	default:
		b.WriteString(scalarJSON(v))
	}
}

func writeIndent(b *strings.Builder, level int) {
	b.WriteString(strings.Repeat("  ", level))
}

func quoteJSON(s string) string {
	blob, err := json.Marshal(s)
	if err != nil {
		return fmt.Sprintf("%q", s)
	}
	return string(blob)
}

func scalarJSON(value any) string {
	blob, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(blob)
}
