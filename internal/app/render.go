package app

import (
	"fmt"
	"math"
	"strings"
	"time"

	"edgefhir-dash/internal/view"

	"github.com/charmbracelet/lipgloss"
)

const (
	trendGlyphsRaw = "▁▂▃▄▅▆▇█"
	trendPadRune   = '.'
)

func (m Model) View() string {
	if !m.ready {
		return "Booting edgefhir-dash..."
	}

	innerWidth := maxInt(40, m.width-2)
	innerHeight := maxInt(12, m.height-2)

	header := headerStyle.Render("EdgeFHIR Relay Dashboard")
	meta := "up " + uptime(m.startedAt, time.Now())
	if m.relayURL != "" {
		meta = "relay " + m.relayURL + " | " + meta
	}
	header += subHeaderStyle.Render(meta)

	statusPrefix := "*"
	if m.busy() {
		statusPrefix = m.spinner.View()
	}
	statusBody := strings.TrimSpace(m.statusText)
	if statusBody == "" {
		statusBody = "Ready"
	}
	statusLine := statusStyle.Render(statusPrefix + " " + statusBody)
	if strings.TrimSpace(m.snap.LastError) != "" {
		statusLine = errorStyle.Render("Relay error: " + m.snap.LastError)
	}

	cardsRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderCards()...)

	middleRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPanel("Vitals", m.vitalsContent(), m.vitalsW, m.vitalsH, false),
		renderPanel(m.paneTitle("Decision"), m.decision.View(), m.decisionW, m.decisionH, m.focusPane == paneDecision),
	)
	bottomRow := lipgloss.JoinHorizontal(lipgloss.Top,
		renderPanel(m.paneTitle("FHIR Bundle"), m.bundle.View(), m.bundleW, m.bundleH, m.focusPane == paneBundle),
		renderPanel("Activity", m.activity.View(), m.activityW, m.activityH, m.focusPane == paneActivity),
	)

	parts := []string{header, statusLine, cardsRow, middleRow, bottomRow}
	if m.showHelp {
		parts = append(parts, helpStyle.Render(helpText()))
	}

	body := strings.Join(parts, "\n")
	body = fitTextHeight(body, innerHeight)
	return lipgloss.NewStyle().
		Background(chromeBG).
		Foreground(lipgloss.Color("#E8F0F2")).
		Width(innerWidth).
		Height(innerHeight).
		Padding(0, 1).
		Render(body)
}

func helpText() string {
	return "1/2 connectivity on/off | f flush | n/d/e/t simulate normal/desat/fever/tachy | r refresh | v summary/raw | +/- depth | tab/shift+tab panes | ? help | q quit"
}

func (m Model) paneTitle(base string) string {
	if m.rawView {
		return fmt.Sprintf("%s (raw, depth %d)", base, m.expandDepth)
	}
	return base
}

func renderPanel(title, body string, width, height int, focused bool) string {
	borderColor := panelBorder
	if focused {
		borderColor = accentSecondary
	}
	style := panelStyle.Copy().
		BorderForeground(borderColor).
		Width(width).
		Height(height)

	titleLine := panelTitleStyle.Render(title)
	return style.Render(titleLine + "\n" + body)
}

func (m Model) renderCards() []string {
	connectivity := offlineStyle.Render("OFFLINE")
	if m.snap.ConnectivityOn {
		connectivity = onlineStyle.Render("ONLINE")
	}
	phase := m.snap.Phase
	if strings.TrimSpace(phase) == "" {
		phase = view.Placeholder
	}
	lastUpdated := view.Placeholder
	if m.snap.LastUpdated != nil {
		lastUpdated = m.snap.LastUpdated.Local().Format("15:04:05")
	}

	innerW := maxInt(6, m.cardW-2)
	cards := []struct {
		title string
		value string
	}{
		{"Phase", cardValueStyle.Render(truncateText(phase, innerW))},
		{"Connectivity", connectivity},
		{"Outbox", cardValueStyle.Render(fmt.Sprintf("%d", m.snap.OutboxCount))},
		{"Mode", cardValueStyle.Render(truncateText(m.snap.Mode, innerW))},
		{"Last Updated", cardValueStyle.Render(lastUpdated)},
	}
	out := make([]string, 0, len(cards))
	for _, card := range cards {
		out = append(out, renderPanel(card.title, card.value, m.cardW, cardPanelHeight, false))
	}
	return out
}

func (m Model) vitalsContent() string {
	vitals := view.LatestVitals(m.snap.History)
	if !vitals.Present {
		return mutedTextStyle("No vitals yet.")
	}
	innerW := maxInt(18, m.vitalsW-2)
	trendW := clampInt(innerW-22, 4, 48)
	series := map[string][]float64{
		"HR":   view.Series(m.snap.History, view.FieldHR),
		"SpO2": view.Series(m.snap.History, view.FieldSpO2),
		"Temp": view.Series(m.snap.History, view.FieldTemp),
		"RR":   view.Series(m.snap.History, view.FieldRR),
	}

	lines := make([]string, 0, 8)
	for _, metric := range vitals.Metrics() {
		value := metric.Value
		if metric.Unit != "" && value != view.Placeholder {
			value += " " + metric.Unit
		}
		line := fmt.Sprintf("%-6s %-10s", metric.Label, truncateText(value, 10))
		if samples, ok := series[metric.Label]; ok {
			line += " " + trendStyle.Render(renderTrend(samples, trendW))
		}
		lines = append(lines, line)
	}
	lines = append(lines, mutedTextStyle(fmt.Sprintf("%d samples", len(m.snap.History))))
	return strings.Join(lines, "\n")
}

func (m Model) decisionContent() string {
	if m.snap.LastDecision == nil {
		return "No decision yet."
	}
	if m.rawView {
		return highlightJSONKeys(view.RenderTree(m.snap.LastDecision, m.expandDepth))
	}

	d := view.DecisionSummary(m.snap.LastDecision)
	meterW := clampInt(m.decision.Width-20, 6, 24)
	lines := []string{
		fmt.Sprintf("Triage       %s", d.Triage),
		fmt.Sprintf("Next action  %s", d.NextAction),
		fmt.Sprintf("Confidence   %-5s %s", d.ConfidencePct, renderUsageMeter(d.Confidence*100, meterW)),
		"Reasons",
	}
	if len(d.Reasons) == 0 {
		lines = append(lines, "  "+mutedTextStyle("(none)"))
	}
	for _, reason := range d.Reasons {
		lines = append(lines, "  - "+reason)
	}
	return strings.Join(lines, "\n")
}

func (m Model) bundleContent() string {
	if m.snap.LastFhirBundle == nil {
		return "No FHIR bundle yet."
	}
	if m.rawView {
		return highlightJSONKeys(view.RenderTree(m.snap.LastFhirBundle, m.expandDepth))
	}

	b := view.BundleSummary(m.snap.LastFhirBundle)
	lines := []string{
		fmt.Sprintf("Type       %s", b.Type),
		fmt.Sprintf("Date       %s", b.Date),
		fmt.Sprintf("Entries    %d", b.EntryCount),
		"Resources",
	}
	types := b.Types()
	if len(types) == 0 {
		lines = append(lines, "  "+mutedTextStyle("(none)"))
	}
	nameW := 0
	for _, rc := range types {
		nameW = maxInt(nameW, len(rc.Type))
	}
	for _, rc := range types {
		lines = append(lines, fmt.Sprintf("  %-*s  %d", nameW, rc.Type, rc.Count))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) resizePanels() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	usableW := maxInt(40, m.width-6)
	innerH := maxInt(12, m.height-2)
	verticalOverhead := 2
	if m.showHelp {
		verticalOverhead = 3
	}
	cardsActual := cardPanelHeight + 2
	rowsBudget := maxInt(8, innerH-verticalOverhead-cardsActual)

	middleActual := int(math.Round(float64(rowsBudget) * 0.5))
	middleActual = clampInt(middleActual, 4, maxInt(4, rowsBudget-4))
	bottomActual := maxInt(4, rowsBudget-middleActual)

	m.cardW = maxInt(8, usableW/5-2)

	vitalsActual := clampInt(int(math.Round(float64(usableW)*0.4)), 24, usableW-20)
	decisionActual := usableW - vitalsActual
	m.vitalsW = vitalsActual - 2
	m.vitalsH = middleActual - 2
	m.decision.Width = maxInt(10, decisionActual-4)
	m.decision.Height = maxInt(1, middleActual-3)
	m.decisionW = m.decision.Width + 2
	m.decisionH = m.decision.Height + 1

	bundleActual := clampInt(int(math.Round(float64(usableW)*0.55)), 24, usableW-16)
	activityActual := usableW - bundleActual
	m.bundle.Width = maxInt(10, bundleActual-4)
	m.bundle.Height = maxInt(1, bottomActual-3)
	m.bundleW = m.bundle.Width + 2
	m.bundleH = m.bundle.Height + 1

	m.activity.Width = maxInt(10, activityActual-4)
	m.activity.Height = maxInt(1, bottomActual-3)
	m.activityW = m.activity.Width + 2
	m.activityH = m.activity.Height + 1

	if len(m.activityEntries) > 0 {
		m.rebuildActivityContent(m.activityAutoFollow)
	}
}

func mutedTextStyle(text string) string {
	return helpStyle.Render(text)
}

func renderUsageMeter(percent float64, width int) string {
	width = maxInt(4, width)
	p := clampFloat(percent, 0, 100)
	filled := int(math.Round((p / 100.0) * float64(width)))
	filled = clampInt(filled, 0, width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// renderTrend draws the newest width samples as a sparkline scaled to their
// own range. Short histories are right-aligned behind padding dots.
func renderTrend(samples []float64, width int) string {
	width = maxInt(4, width)
	glyphs := []rune(trendGlyphsRaw)
	window := samples
	if len(window) > width {
		window = window[len(window)-width:]
	}

	low, high := math.Inf(1), math.Inf(-1)
	for _, v := range window {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}

	out := make([]rune, 0, width)
	for idx := 0; idx < width-len(window); idx++ {
		out = append(out, trendPadRune)
	}
	for _, v := range window {
		level := (len(glyphs) - 1) / 2
		if high > low {
			level = int(math.Round((v - low) / (high - low) * float64(len(glyphs)-1)))
		}
		out = append(out, glyphs[clampInt(level, 0, len(glyphs)-1)])
	}
	return string(out)
}

func highlightJSONKeys(text string) string {
	if strings.IndexByte(text, '"') == -1 {
		return text
	}
	matches := jsonKeyPattern.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var builder strings.Builder
	builder.Grow(len(text) + len(matches)*8)
	cursor := 0

	for _, bounds := range matches {
		start := bounds[0]
		end := bounds[1]
		if start < cursor {
			continue
		}
		builder.WriteString(text[cursor:start])
		match := text[start:end]
		colonIdx := strings.LastIndex(match, ":")
		if colonIdx <= 0 {
			builder.WriteString(match)
			cursor = end
			continue
		}
		keyPortion := match[:colonIdx]
		suffix := match[colonIdx:]
		keyStyle := jsonKeyStyle
		if jsonKeyHasContainerValue(text, end) {
			keyStyle = jsonObjectKeyStyle
		}
		builder.WriteString(keyStyle.Render(keyPortion))
		builder.WriteString(suffix)
		cursor = end
	}
	builder.WriteString(text[cursor:])
	return builder.String()
}

// jsonKeyHasContainerValue also matches collapsed previews, which start
// with the same bracket as the container they stand for.
func jsonKeyHasContainerValue(text string, valueSearchStart int) bool {
	valueStart := nextNonWhitespaceIndex(text, valueSearchStart)
	return valueStart < len(text) && (text[valueStart] == '{' || text[valueStart] == '[')
}

func nextNonWhitespaceIndex(text string, start int) int {
	idx := start
	for idx < len(text) {
		switch text[idx] {
		case ' ', '\t', '\n', '\r':
			idx++
		default:
			return idx
		}
	}
	return idx
}

func fitTextHeight(text string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m *Model) appendActivityLine(line string) {
	entry := normalizeActivityEntry(line)
	if entry == "" {
		return
	}
	shouldFollow := m.focusPane != paneActivity || m.activityAutoFollow || m.activity.AtBottom()

	m.activityEntries = append(m.activityEntries, entry)
	if len(m.activityEntries) > maxActivityEntries {
		m.activityEntries = m.activityEntries[len(m.activityEntries)-maxActivityEntries:]
	}
	m.rebuildActivityContent(shouldFollow)
}

func (m *Model) rebuildActivityContent(shouldFollow bool) {
	if len(m.activityEntries) == 0 {
		m.activityLines = nil
		m.activity.SetContent("No activity yet.")
		return
	}
	width := maxInt(8, m.activity.Width)
	rendered := make([]string, 0, len(m.activityEntries))
	for _, entry := range m.activityEntries {
		rendered = append(rendered, wrapActivityEntry(entry, width)...)
	}
	if len(rendered) > maxActivityLines {
		rendered = rendered[len(rendered)-maxActivityLines:]
	}
	m.activityLines = rendered
	m.activity.SetContent(strings.Join(rendered, "\n"))
	if shouldFollow {
		m.activity.GotoBottom()
		m.activityAutoFollow = true
	}
}

func normalizeActivityEntry(raw string) string {
	return strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))
}

func wrapActivityEntry(entry string, width int) []string {
	entry = normalizeActivityEntry(entry)
	if entry == "" {
		return nil
	}
	width = maxInt(8, width)
	if len([]rune(entry)) <= width {
		return []string{entry}
	}

	lines := make([]string, 0, 4)
	remaining := entry
	continuationPrefix := "  "
	first := true

	for {
		limit := width
		if !first {
			limit = maxInt(4, width-len([]rune(continuationPrefix)))
		}
		head, tail := splitWrappedSegment(remaining, limit)
		if !first {
			head = continuationPrefix + head
		}
		lines = append(lines, head)
		if tail == "" {
			break
		}
		remaining = tail
		first = false
	}
	return lines
}

func splitWrappedSegment(raw string, width int) (string, string) {
	width = maxInt(1, width)
	runes := []rune(strings.TrimSpace(raw))
	if len(runes) <= width {
		return strings.TrimSpace(string(runes)), ""
	}

	cut := width
	for idx := width; idx > 0; idx-- {
		ch := runes[idx-1]
		if ch == ' ' || ch == '|' || ch == ',' || ch == ';' {
			cut = idx
			break
		}
	}

	head := strings.TrimSpace(string(runes[:cut]))
	tail := strings.TrimSpace(string(runes[cut:]))
	if head == "" {
		head = strings.TrimSpace(string(runes[:width]))
		tail = strings.TrimSpace(string(runes[width:]))
	}
	return head, tail
}

func truncateText(raw string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	runes := []rune(raw)
	if len(runes) <= maxLen {
		return raw
	}
	return string(runes[:maxLen-3]) + "..."
}

func uptime(since, now time.Time) string {
	if since.IsZero() || now.Before(since) {
		return "0s"
	}
	return now.Sub(since).Round(time.Second).String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func clampFloat(v, low, high float64) float64 {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}

func clampInt(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
