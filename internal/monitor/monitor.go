// Package monitor tracks a live Ekos session by tailing the newest analyze
// file, decoding appended lines, and pushing transition messages to a
// notification channel. The core is a synchronous Poll step driven by the
// run loop or the TUI tick.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/grm/nightwatch/internal/decode"
	"github.com/grm/nightwatch/internal/event"
	"github.com/grm/nightwatch/internal/notify"
	"github.com/grm/nightwatch/internal/report"
	"github.com/grm/nightwatch/internal/tail"
)

// Config wires a Monitor. Channel and Logger are required; Metrics is
// optional.
type Config struct {
	AnalyzeDir     string
	PollInterval   time.Duration
	SessionTimeout time.Duration
	DecodeOptions  decode.Options
	Observatory    string

	Channel notify.Channel
	Logger  *log.Logger
	Metrics *Metrics
}

// session is the monitor's accumulated state for the currently active
// imaging session.
type session struct {
	id          string
	path        string
	startedAt   time.Time
	lastEventAt time.Time

	captures         int
	aborted          int
	autofocusRuns    int
	autofocusAborted int
	alignSuccess     int
	alignFail        int

	jobs     []string
	jobsSeen map[string]bool
}

func (s *session) addJob(name string) {
	if s.jobsSeen[name] {
		return
	}
	s.jobsSeen[name] = true
	s.jobs = append(s.jobs, name)
}

// Monitor owns the tailer, the decoder and the active session state. All
// methods must be called from a single goroutine.
type Monitor struct {
	cfg    Config
	tailer *tail.Tailer
	dec    *decode.Decoder
	live   *report.Live

	active *session

	// recent holds the latest messages for the TUI; sent counts all of
	// them, including ones the ring has dropped.
	recent []string
	sent   int
}

// recentCap bounds the TUI message backlog.
const recentCap = 200

// New builds a Monitor attached to the newest analyze file in the
// configured directory, positioned at its end so only fresh activity is
// reported. An empty directory is fine; the monitor waits for a file.
func New(cfg Config) (*Monitor, error) {
	if cfg.Channel == nil {
		return nil, errors.New("monitor: notification channel is required")
	}
	if cfg.Logger == nil {
		return nil, errors.New("monitor: logger is required")
	}
	if cfg.SessionTimeout <= 0 {
		cfg.SessionTimeout = 30 * time.Minute
	}

	latest, err := tail.FindLatest(cfg.AnalyzeDir)
	if err != nil && !errors.Is(err, tail.ErrNoFile) {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	tailer, err := tail.New(latest)
	if err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	return &Monitor{
		cfg:    cfg,
		tailer: tailer,
		dec:    decode.New(cfg.DecodeOptions),
		live:   &report.Live{Observatory: cfg.Observatory},
	}, nil
}

// Poll runs one monitor step at the given instant: detect a newer file,
// read appended lines, decode and report, and time out idle sessions.
// Taking the clock as a parameter keeps the step deterministic under test.
func (m *Monitor) Poll(ctx context.Context, now time.Time) error {
	if err := m.checkNewerFile(ctx, now); err != nil {
		return err
	}

	lines, err := m.tailer.ReadNewLines()
	if err != nil {
		// Transient read errors retry on the next tick.
		m.cfg.Logger.Printf("monitor: %v", err)
		return nil
	}
	for _, line := range lines {
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.LinesDecoded.Inc()
		}
		for _, e := range m.dec.Decode(line) {
			m.handleEvent(ctx, e, now)
		}
	}

	if m.active != nil && now.Sub(m.active.lastEventAt) >= m.cfg.SessionTimeout {
		m.endSession(ctx, "inactivity timeout")
	}
	return nil
}

// checkNewerFile switches to a newly created analyze file, force-ending
// the active session first. The new file replays from the beginning with a
// fresh decode context.
func (m *Monitor) checkNewerFile(ctx context.Context, now time.Time) error {
	latest, err := tail.FindLatest(m.cfg.AnalyzeDir)
	if errors.Is(err, tail.ErrNoFile) {
		return nil
	}
	if err != nil {
		m.cfg.Logger.Printf("monitor: %v", err)
		return nil
	}
	if latest == m.tailer.Path() {
		return nil
	}

	if m.active != nil {
		m.endSession(ctx, "new session file")
	}
	if err := m.tailer.SwitchTo(latest, true); err != nil {
		return fmt.Errorf("monitor: switching to %s: %w", latest, err)
	}
	m.dec.Reset()
	m.cfg.Logger.Printf("monitor: now watching %s", latest)
	return nil
}

func (m *Monitor) handleEvent(ctx context.Context, e event.Event, now time.Time) {
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.EventsDecoded.Inc()
	}

	if m.active == nil {
		m.startSession(now)
	}
	m.active.lastEventAt = now

	switch ev := e.(type) {
	case *event.CaptureComplete:
		m.active.captures++
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.Captures.Inc()
		}
	case *event.CaptureAborted:
		m.active.aborted++
	case *event.AutofocusComplete:
		m.active.autofocusRuns++
	case *event.AutofocusAborted:
		m.active.autofocusAborted++
	case *event.AlignState:
		switch ev.State {
		case event.AlignSuccessful, event.AlignComplete:
			m.active.alignSuccess++
		case event.AlignFailed, event.AlignAborted:
			m.active.alignFail++
		}
	case *event.SchedulerJobStart:
		m.active.addJob(ev.JobName)
	case *event.Notification:
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.Notifications.WithLabelValues(string(ev.Type)).Inc()
		}
	}

	msg, ok := m.live.FormatEvent(e, m.dec.ClockTime, m.active.captures)
	if !ok {
		return
	}
	m.send(ctx, msg)
}

func (m *Monitor) startSession(now time.Time) {
	m.active = &session{
		id:        uuid.NewString(),
		path:      m.tailer.Path(),
		startedAt: now,
		jobsSeen:  make(map[string]bool),
	}
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.Sessions.Inc()
	}
	m.cfg.Logger.Printf("monitor: session %s active on %s", m.active.id, m.active.path)
}

func (m *Monitor) endSession(ctx context.Context, reason string) {
	s := m.active
	m.active = nil

	m.send(ctx, m.live.FormatSessionEnd(report.SessionSummary{
		ID:               s.id,
		Path:             s.path,
		Reason:           reason,
		Captures:         s.captures,
		Aborted:          s.aborted,
		AutofocusRuns:    s.autofocusRuns,
		AutofocusAborted: s.autofocusAborted,
		AlignSuccess:     s.alignSuccess,
		AlignFail:        s.alignFail,
		Jobs:             s.jobs,
	}))
	m.cfg.Logger.Printf("monitor: session %s ended (%s)", s.id, reason)
}

func (m *Monitor) send(ctx context.Context, msg string) {
	m.recent = append(m.recent, msg)
	m.sent++
	if len(m.recent) > recentCap {
		m.recent = m.recent[len(m.recent)-recentCap:]
	}
	if err := m.cfg.Channel.Send(ctx, msg); err != nil {
		m.cfg.Logger.Printf("monitor: send failed: %v", err)
	}
}

// Flush force-ends any active session; called on shutdown so the final
// summary is not lost.
func (m *Monitor) Flush(ctx context.Context) {
	if m.active != nil {
		m.endSession(ctx, "monitor stopped")
	}
}

// Snapshot is the TUI's read-only view of the monitor.
type Snapshot struct {
	WatchedFile   string
	SessionActive bool
	SessionID     string
	Captures      int
	Aborted       int
	AutofocusRuns int
	Jobs          []string
	Recent        []string
	TotalSent     int
}

// Snapshot reports the current monitor state.
func (m *Monitor) Snapshot() Snapshot {
	snap := Snapshot{
		WatchedFile: m.tailer.Path(),
		Recent:      append([]string(nil), m.recent...),
		TotalSent:   m.sent,
	}
	if m.active != nil {
		snap.SessionActive = true
		snap.SessionID = m.active.id
		snap.Captures = m.active.captures
		snap.Aborted = m.active.aborted
		snap.AutofocusRuns = m.active.autofocusRuns
		snap.Jobs = append(snap.Jobs, m.active.jobs...)
	}
	return snap
}
