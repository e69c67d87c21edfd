// Package tui provides a Bubble Tea dashboard for the live session monitor.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/grm/nightwatch/internal/monitor"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	counterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)
)

// tickMsg paces the monitor polls.
type tickMsg time.Time

// Model is the root Bubble Tea model for the monitor dashboard. It owns
// the monitor and drives Poll from tick messages, so all mutation stays on
// the Bubble Tea goroutine.
type Model struct {
	mon      *monitor.Monitor
	interval time.Duration

	vp     viewport.Model
	width  int
	height int
	ready  bool

	shown int // messages already in the viewport
}

// New creates the dashboard model.
func New(mon *monitor.Monitor, interval time.Duration) Model {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return Model{mon: mon, interval: interval}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.mon.Flush(context.Background())
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.vp, cmd = m.vp.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewport()
		return m, nil

	case tickMsg:
		// Poll errors surface in the message feed via the monitor's logger;
		// the dashboard keeps ticking regardless.
		_ = m.mon.Poll(context.Background(), time.Time(msg))
		m.refreshFeed()
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  nightwatch monitor")

	snap := m.mon.Snapshot()
	var status strings.Builder
	row := func(label, value string) {
		status.WriteString(labelStyle.Render(fmt.Sprintf("  %-10s", label)) + "  " + value + "\n")
	}

	watched := snap.WatchedFile
	if watched == "" {
		watched = dimStyle.Render("(waiting for an analyze file)")
	} else {
		watched = filepath.Base(watched)
	}
	row("File:", watched)

	if snap.SessionActive {
		row("Session:", activeStyle.Render("● active")+dimStyle.Render("  "+snap.SessionID))
	} else {
		row("Session:", idleStyle.Render("○ idle"))
	}
	row("Captures:", counterStyle.Render(fmt.Sprintf("%d complete, %d aborted", snap.Captures, snap.Aborted)))
	row("Autofocus:", counterStyle.Render(fmt.Sprintf("%d runs", snap.AutofocusRuns)))
	if len(snap.Jobs) > 0 {
		row("Targets:", strings.Join(snap.Jobs, ", "))
	}

	hint := "  ↑/↓ scroll  q quit"
	statusBar := statusBarStyle.Width(m.width).Render(hint)

	return lipgloss.JoinVertical(lipgloss.Left, title, status.String(), m.vp.View(), statusBar)
}

// ── Viewport management ───────────────

func (m *Model) initViewport() {
	// title(1) + status block(6) + statusBar(1) fixed rows
	vpHeight := m.height - 8
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.vp = viewport.New(m.width, vpHeight)
	m.shown = 0
	m.refreshFeed()
}

// refreshFeed appends newly sent messages to the viewport and follows the
// tail unless the user scrolled up.
func (m *Model) refreshFeed() {
	if !m.ready {
		return
	}
	snap := m.mon.Snapshot()
	if snap.TotalSent == m.shown {
		return
	}

	var sb strings.Builder
	for _, msg := range snap.Recent {
		sb.WriteString("  " + msg + "\n")
	}
	if len(snap.Recent) == 0 {
		sb.WriteString(dimStyle.Render("  (no activity yet)") + "\n")
	}

	follow := m.vp.AtBottom()
	m.vp.SetContent(sb.String())
	if follow {
		m.vp.GotoBottom()
	}
	m.shown = snap.TotalSent
}

// Run starts the dashboard and blocks until the user quits.
func Run(mon *monitor.Monitor, interval time.Duration) error {
	p := tea.NewProgram(New(mon, interval), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
