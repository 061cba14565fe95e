package app

import (
	"strings"
	"testing"
)

func TestHighlightJSONKeysStylesObjectFields(t *testing.T) {
	t.Parallel()

	in := "{\n  \"alpha\": 0.1,\n  \"nested\": {\"beta\": true}\n}"
	out := highlightJSONKeys(in)

	if !strings.Contains(out, jsonKeyStyle.Render(`"alpha"`)) {
		t.Fatalf("expected alpha key to be styled, got: %q", out)
	}
	if !strings.Contains(out, jsonKeyStyle.Render(`"beta"`)) {
		t.Fatalf("expected beta key to be styled, got: %q", out)
	}
	if !strings.Contains(out, "0.1") || !strings.Contains(out, "true") {
		t.Fatalf("expected values to remain present, got: %q", out)
	}
}

func TestHighlightJSONKeysHandlesEscapedQuotes(t *testing.T) {
	t.Parallel()

	in := "{\"a\\\"b\": 1, \"value\": \"x:y\"}"
	out := highlightJSONKeys(in)

	if !strings.Contains(out, jsonKeyStyle.Render(`"a\"b"`)) {
		t.Fatalf("expected escaped-quote key to be styled, got: %q", out)
	}
	if !strings.Contains(out, jsonKeyStyle.Render(`"value"`)) {
		t.Fatalf("expected value key to be styled, got: %q", out)
	}
}

func TestHighlightJSONKeysClassifiesContainerValues(t *testing.T) {
	t.Parallel()

	in := "{\n  \"entry\": [\n    {1 key}\n  ],\n  \"meta\": {2 keys},\n  \"type\": \"collection\"\n}"
	matches := jsonKeyPattern.FindAllStringIndex(in, -1)
	if len(matches) != 3 {
		t.Fatalf("expected 3 key matches, got %d", len(matches))
	}
	if !jsonKeyHasContainerValue(in, matches[0][1]) {
		t.Fatalf("expected list-valued key to be classified as container")
	}
	if !jsonKeyHasContainerValue(in, matches[1][1]) {
		t.Fatalf("expected collapsed object preview to be classified as container")
	}
	if jsonKeyHasContainerValue(in, matches[2][1]) {
		t.Fatalf("expected string-valued key to not be a container")
	}

	out := highlightJSONKeys(in)
	if !strings.Contains(out, jsonObjectKeyStyle.Render(`"meta"`)) {
		t.Fatalf("expected container key to use object-key style, got: %q", out)
	}
}

func TestRenderTrendRightAlignsWhenHistoryShort(t *testing.T) {
	t.Parallel()

	got := renderTrend([]float64{50, 100}, 6)
	if !strings.HasPrefix(got, "....") {
		t.Fatalf("expected leading padding dots, got %q", got)
	}
	tailFromMinWidth := renderTrend([]float64{50, 100}, 4)
	gotRunes := []rune(got)
	tailRunes := []rune(tailFromMinWidth)
	if string(gotRunes[4:]) != string(tailRunes[len(tailRunes)-2:]) {
		t.Fatalf("expected right-aligned tail %q, got %q", string(tailRunes[len(tailRunes)-2:]), string(gotRunes[4:]))
	}
}

func TestRenderTrendUsesLatestWindow(t *testing.T) {
	t.Parallel()

	full := renderTrend([]float64{0, 10, 20, 30, 40, 50}, 4)
	latestOnly := renderTrend([]float64{20, 30, 40, 50}, 4)
	if full != latestOnly {
		t.Fatalf("expected trend to use latest window: full=%q latest=%q", full, latestOnly)
	}
}

func TestRenderTrendScalesToRange(t *testing.T) {
	t.Parallel()

	got := []rune(renderTrend([]float64{90, 95, 100}, 4))
	if got[1] != '▁' || got[3] != '█' {
		t.Fatalf("expected lowest and highest glyphs at the extremes, got %q", string(got))
	}
	flat := []rune(renderTrend([]float64{72, 72}, 4))
	if flat[2] != flat[3] {
		t.Fatalf("expected a flat series to render one level, got %q", string(flat))
	}
}

func TestWrapActivityEntryIndentsContinuation(t *testing.T) {
	t.Parallel()

	lines := wrapActivityEntry("10:00:00 | Flush Outbox | failed: relay rejected the request", 20)
	if len(lines) < 2 {
		t.Fatalf("expected wrapped lines, got %v", lines)
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Fatalf("expected continuation indent, got %q", line)
		}
	}
}

func TestRenderUsageMeterClamps(t *testing.T) {
	t.Parallel()

	if got := renderUsageMeter(150, 4); got != "[####]" {
		t.Fatalf("unexpected meter %q", got)
	}
	if got := renderUsageMeter(-3, 4); got != "[----]" {
		t.Fatalf("unexpected meter %q", got)
	}
}
