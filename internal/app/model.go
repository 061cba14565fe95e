package app

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"edgefhir-dash/internal/dispatch"
	"edgefhir-dash/internal/poll"
	"edgefhir-dash/internal/snapshot"
	"edgefhir-dash/internal/view"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	chromeBG        = lipgloss.Color("#05090C")
	panelBorder     = lipgloss.Color("#2D6A80")
	accentPrimary   = lipgloss.Color("#50E3C2")
	accentSecondary = lipgloss.Color("#F6AE2D")
	mutedText       = lipgloss.Color("#8CA1AE")
	warningText     = lipgloss.Color("#FF6B6B")
	trendColor      = lipgloss.Color("#20B6D9")
)

var (
	headerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(accentPrimary)

	subHeaderStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	statusStyle = lipgloss.NewStyle().
			Foreground(accentSecondary).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelTitleStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	jsonKeyStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	jsonObjectKeyStyle = lipgloss.NewStyle().
				Foreground(accentSecondary).
				Bold(true)

	cardValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E8F0F2"))

	onlineStyle = lipgloss.NewStyle().
			Foreground(accentPrimary).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	trendStyle = lipgloss.NewStyle().
			Foreground(trendColor)
)

var jsonKeyPattern = regexp.MustCompile(`"([^"\\]|\\.)*"\s*:`)

type pollTickMsg struct {
	at time.Time
}

// refreshMsg asks for a cycle outside the regular tick.
type refreshMsg struct {
	reason string
}

type cycleDoneMsg struct {
	result poll.CycleResult
	snap   snapshot.Snapshot
}

type commandDoneMsg struct {
	command dispatch.Command
	result  dispatch.Result
}

// Poller runs one synchronizer cycle against the shared store.
type Poller interface {
	PollOnce(ctx context.Context) poll.CycleResult
	Store() *snapshot.Store
}

// Commander sends one control command.
type Commander interface {
	Dispatch(ctx context.Context, path string) dispatch.Result
}

type focusPane int

const (
	paneDecision focusPane = iota
	paneBundle
	paneActivity
)

const (
	defaultPollInterval = 2 * time.Second
	minExpandDepth      = 1
	maxExpandDepth      = 8
	maxActivityEntries  = 500
	maxActivityLines    = 2000
	cardPanelHeight     = 2
)

type ModelOptions struct {
	RelayURL     string
	PollInterval time.Duration
	ExpandDepth  int
}

type Model struct {
	commander Commander
	ctx       context.Context
	cancel    context.CancelFunc
	source    Poller
	relayURL  string
	interval  time.Duration
	startedAt time.Time

	ready  bool
	width  int
	height int

	decision viewport.Model
	bundle   viewport.Model
	activity viewport.Model
	spinner  spinner.Model

	focusPane   focusPane
	showHelp    bool
	rawView     bool
	expandDepth int

	statusText string
	snap       snapshot.Snapshot

	// polling is true while a cycle is in flight; ticks arriving meanwhile
	// are dropped. queuedRefresh counts cycles owed to completed commands.
	polling          bool
	queuedRefresh    int
	commandsInFlight int
	lastCycle        poll.CycleResult

	activityEntries    []string
	activityLines      []string
	activityAutoFollow bool

	cardW     int
	vitalsW   int
	vitalsH   int
	decisionW int
	decisionH int
	bundleW   int
	bundleH   int
	activityW int
	activityH int
}

func NewModel(source Poller, commander Commander) Model {
	return NewModelWithOptions(source, commander, ModelOptions{})
}

func NewModelWithOptions(source Poller, commander Commander, opts ModelOptions) Model {
	ctx, cancel := context.WithCancel(context.Background())

	decision := viewport.New(50, 10)
	decision.SetContent("No decision yet.")

	bundle := viewport.New(50, 10)
	bundle.SetContent("No FHIR bundle yet.")

	activity := viewport.New(40, 10)
	activity.SetContent("No activity yet.")

	spin := spinner.New()
	spin.Spinner = spinner.MiniDot
	spin.Style = lipgloss.NewStyle().Foreground(accentSecondary)

	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	depth := opts.ExpandDepth
	if depth <= 0 {
		depth = view.DefaultExpandDepth
	}

	store := snapshot.NewStore()
	if source != nil && source.Store() != nil {
		store = source.Store()
	}

	return Model{
		commander:          commander,
		ctx:                ctx,
		cancel:             cancel,
		source:             source,
		relayURL:           strings.TrimSpace(opts.RelayURL),
		interval:           interval,
		startedAt:          time.Now(),
		decision:           decision,
		bundle:             bundle,
		activity:           activity,
		spinner:            spin,
		focusPane:          paneDecision,
		showHelp:           true,
		expandDepth:        clampInt(depth, minExpandDepth, maxExpandDepth),
		statusText:         "Connecting to relay...",
		snap:               store.Snapshot(),
		activityAutoFollow: true,
		cardW:              18,
		vitalsW:            40,
		vitalsH:            10,
		decisionW:          54,
		decisionH:          11,
		bundleW:            54,
		bundleH:            11,
		activityW:          44,
		activityH:          11,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		func() tea.Msg { return refreshMsg{reason: "startup"} },
		pollTickCmd(m.interval),
	)
}

func pollTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(at time.Time) tea.Msg {
		return pollTickMsg{at: at}
	})
}

func pollCycleCmd(ctx context.Context, source Poller) tea.Cmd {
	return func() tea.Msg {
		result := source.PollOnce(ctx)
		return cycleDoneMsg{result: result, snap: source.Store().Snapshot()}
	}
}

func dispatchCmd(ctx context.Context, commander Commander, command dispatch.Command) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg{command: command, result: commander.Dispatch(ctx, command.Path)}
	}
}

func (m Model) busy() bool {
	return m.polling || m.commandsInFlight > 0
}

// startCycle launches a cycle. The caller must have checked m.polling.
func (m *Model) startCycle() tea.Cmd {
	wasBusy := m.busy()
	m.polling = true
	cmd := pollCycleCmd(m.ctx, m.source)
	if !wasBusy {
		return tea.Batch(cmd, m.spinner.Tick)
	}
	return cmd
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizePanels()
		m.refreshPanels()
		return m, nil

	case spinner.TickMsg:
		if !m.busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case pollTickMsg:
		next := pollTickCmd(m.interval)
		if m.polling {
			return m, next
		}
		cycle := m.startCycle()
		return m, tea.Batch(next, cycle)

	case refreshMsg:
		if m.polling {
			if m.queuedRefresh == 0 {
				m.queuedRefresh = 1
			}
			return m, nil
		}
		if msg.reason != "" && msg.reason != "startup" {
			m.statusText = "Refreshing (" + msg.reason + ")..."
		}
		cycle := m.startCycle()
		return m, cycle

	case cycleDoneMsg:
		m.polling = false
		if msg.result.Cancelled {
			return m, nil
		}
		m.applyCycle(msg)
		if m.queuedRefresh > 0 {
			m.queuedRefresh--
			cycle := m.startCycle()
			return m, cycle
		}
		return m, nil

	case commandDoneMsg:
		m.commandsInFlight = maxInt(0, m.commandsInFlight-1)
		m.recordCommand(msg)
		// Every completed command is followed by exactly one fresh cycle.
		if m.polling {
			m.queuedRefresh++
			return m, nil
		}
		cycle := m.startCycle()
		return m, cycle

	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "q":
			m.cancel()
			return m, tea.Quit
		case "tab":
			m.focusPane = nextFocusPane(m.focusPane)
			m.statusText = "Focus: " + focusPaneLabel(m.focusPane)
			return m, nil
		case "shift+tab", "backtab":
			m.focusPane = prevFocusPane(m.focusPane)
			m.statusText = "Focus: " + focusPaneLabel(m.focusPane)
			return m, nil
		case "?":
			m.showHelp = !m.showHelp
			m.resizePanels()
			m.refreshPanels()
			return m, nil
		case "v":
			m.rawView = !m.rawView
			if m.rawView {
				m.statusText = fmt.Sprintf("Raw JSON view (depth %d)", m.expandDepth)
			} else {
				m.statusText = "Summary view"
			}
			m.refreshPanels()
			return m, nil
		case "+", "=":
			m.setExpandDepth(m.expandDepth + 1)
			return m, nil
		case "-", "_":
			m.setExpandDepth(m.expandDepth - 1)
			return m, nil
		case "r":
			return m.Update(refreshMsg{reason: "manual"})
		case "ctrl+l":
			m.activityEntries = nil
			m.activityLines = nil
			m.activityAutoFollow = true
			m.rebuildActivityContent(true)
			m.statusText = "Activity cleared"
			return m, nil
		default:
			if command, ok := dispatch.ByKey(key); ok {
				if m.commander == nil {
					m.statusText = "Commands unavailable"
					return m, nil
				}
				wasBusy := m.busy()
				m.commandsInFlight++
				m.statusText = "Sending " + command.Label + "..."
				cmd := dispatchCmd(m.ctx, m.commander, command)
				if !wasBusy {
					return m, tea.Batch(cmd, m.spinner.Tick)
				}
				return m, cmd
			}
		}
		return m.updateFocusedPane(msg)

	case tea.MouseMsg:
		return m.updateFocusedPane(msg)
	}

	return m, nil
}

func (m Model) updateFocusedPane(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focusPane {
	case paneDecision:
		m.decision, cmd = m.decision.Update(msg)
	case paneBundle:
		m.bundle, cmd = m.bundle.Update(msg)
	case paneActivity:
		m.activity, cmd = m.activity.Update(msg)
		m.activityAutoFollow = m.activity.AtBottom()
	}
	return m, cmd
}

func (m *Model) setExpandDepth(depth int) {
	m.expandDepth = clampInt(depth, minExpandDepth, maxExpandDepth)
	m.statusText = fmt.Sprintf("Expand depth %d", m.expandDepth)
	if m.rawView {
		m.refreshPanels()
	}
}

func (m *Model) applyCycle(msg cycleDoneMsg) {
	prevErr := m.snap.LastError
	m.snap = msg.snap
	m.lastCycle = msg.result
	at := msg.result.Finished
	if at.IsZero() {
		at = time.Now()
	}

	switch {
	case m.snap.LastError != "" && m.snap.LastError != prevErr:
		m.appendActivityLine(fmt.Sprintf("%s | relay | unreachable: %s", at.Format("15:04:05"), m.snap.LastError))
	case m.snap.LastError == "" && prevErr != "":
		m.appendActivityLine(fmt.Sprintf("%s | relay | reachable again", at.Format("15:04:05")))
	}

	if m.snap.LastError != "" {
		m.statusText = "Relay unreachable; showing last known data"
	} else {
		m.statusText = fmt.Sprintf("Synced %s | cycle %d | %d/3 resources", at.Local().Format("15:04:05"), m.snap.Cycles, msg.result.Succeeded())
	}
	m.refreshPanels()
}

func (m *Model) recordCommand(msg commandDoneMsg) {
	label := msg.command.Label
	if label == "" {
		label = msg.result.Path
	}
	started := msg.result.Started
	if started.IsZero() {
		started = time.Now()
	}
	line := fmt.Sprintf("%s | %s | ok (%s)", started.Format("15:04:05"), label, msg.result.Duration.Round(time.Millisecond))
	if msg.result.Err != nil {
		line = fmt.Sprintf("%s | %s | failed: %v", started.Format("15:04:05"), label, msg.result.Err)
		m.statusText = label + " failed; refreshing"
	} else {
		m.statusText = label + " sent; refreshing"
	}
	m.appendActivityLine(line)
}

// refreshPanels rebuilds the scrollable panes from the current snapshot.
func (m *Model) refreshPanels() {
	m.decision.SetContent(m.decisionContent())
	m.bundle.SetContent(m.bundleContent())
}

func nextFocusPane(current focusPane) focusPane {
	switch current {
	case paneDecision:
		return paneBundle
	case paneBundle:
		return paneActivity
	default:
		return paneDecision
	}
}

func prevFocusPane(current focusPane) focusPane {
	switch current {
	case paneDecision:
		return paneActivity
	case paneBundle:
		return paneDecision
	default:
		return paneBundle
	}
}

func focusPaneLabel(pane focusPane) string {
	switch pane {
	case paneDecision:
		return "decision"
	case paneBundle:
		return "bundle"
	case paneActivity:
		return "activity"
	default:
		return "unknown"
	}
}
