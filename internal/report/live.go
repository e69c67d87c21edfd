package report

import (
	"fmt"
	"strings"

	"github.com/grm/nightwatch/internal/event"
)

// Live formats single events into monitor messages as they stream in.
type Live struct {
	// Observatory prefixes every message when set.
	Observatory string
}

func (l *Live) prefix() string {
	if l.Observatory == "" {
		return ""
	}
	return "[" + l.Observatory + "] "
}

// FormatEvent renders one decoded event as a chat message. ok is false for
// event kinds that are tracked but not worth a message (guide samples,
// temperature readings, raw state transitions).
//
// clock converts an event offset to a wall-clock string; captureCount is
// the session's running completed-capture tally including this event.
func (l *Live) FormatEvent(e event.Event, clock func(float64) string, captureCount int) (string, bool) {
	switch ev := e.(type) {
	case *event.SessionStart:
		return fmt.Sprintf("%s🌙 Session started at %s", l.prefix(), ev.StartTime), true

	case *event.CaptureComplete:
		msg := fmt.Sprintf("%s📸 [%s] Capture #%d complete: %s %.0fs",
			l.prefix(), clock(ev.Time), captureCount, ev.Filter, ev.Exposure)
		if ev.HFR != nil {
			msg += fmt.Sprintf(" HFR %.2f", *ev.HFR)
		}
		if ev.Stars != nil {
			msg += fmt.Sprintf(" ⭐%d", *ev.Stars)
		}
		if ev.ObjectName != "" {
			msg += " (" + ev.ObjectName + ")"
		}
		return msg, true

	case *event.CaptureAborted:
		return fmt.Sprintf("%s❌ [%s] Capture aborted (%s)", l.prefix(), clock(ev.Time), ev.Filter), true

	case *event.AutofocusComplete:
		msg := fmt.Sprintf("%s🔧 [%s] Autofocus complete (%s)", l.prefix(), clock(ev.Time), ev.Filter)
		if ev.BestHFR != nil {
			msg += fmt.Sprintf(" HFR %.2f", *ev.BestHFR)
		}
		if ev.FocusPosition != nil {
			msg += fmt.Sprintf(" @%d", *ev.FocusPosition)
		}
		return msg, true

	case *event.AutofocusAborted:
		return fmt.Sprintf("%s🔧❌ [%s] Autofocus failed (%s)", l.prefix(), clock(ev.Time), ev.Filter), true

	case *event.SchedulerJobStart:
		return fmt.Sprintf("%s▶️ [%s] Scheduler job started: %s", l.prefix(), clock(ev.Time), ev.JobName), true

	case *event.SchedulerJobEnd:
		msg := fmt.Sprintf("%s⏹ [%s] Scheduler job ended: %s", l.prefix(), clock(ev.Time), ev.JobName)
		if ev.Reason != "" {
			msg += " (" + ev.Reason + ")"
		}
		return msg, true

	case *event.Notification:
		return l.formatNotification(ev, clock)
	}
	return "", false
}

func (l *Live) formatNotification(n *event.Notification, clock func(float64) string) (string, bool) {
	at := clock(n.Time)
	switch n.Type {
	case event.NotifyGuideLost:
		return fmt.Sprintf("%s🚨 [%s] Guide star LOST for %.0fs", l.prefix(), at, n.Duration), true
	case event.NotifyGuideRecovered:
		return fmt.Sprintf("%s✅ [%s] Guiding recovered after %.0fs", l.prefix(), at, n.Duration), true
	case event.NotifyFrequentReacquire:
		return fmt.Sprintf("%s⚠️ [%s] Guide star reacquired %d times in %.0fs (check focus/clouds)",
			l.prefix(), at, n.Count, n.Window), true
	case event.NotifyMountParking:
		return fmt.Sprintf("%s🏠 [%s] Mount %s", l.prefix(), at, strings.ToLower(n.State)), true
	case event.NotifyAlignComplete:
		return fmt.Sprintf("%s🎯 [%s] Alignment complete in %.0fs", l.prefix(), at, n.Duration), true
	case event.NotifyAlignFailed:
		return fmt.Sprintf("%s🎯❌ [%s] Alignment %s after %.0fs", l.prefix(), at, strings.ToLower(n.State), n.Duration), true
	case event.NotifyMeridianFlip:
		return fmt.Sprintf("%s🔄 [%s] Meridian flip: %s", l.prefix(), at, flipLabel(n.State)), true
	}
	return "", false
}

func flipLabel(state string) string {
	switch state {
	case event.FlipRunning:
		return "running"
	case event.FlipCompleted:
		return "completed"
	case event.FlipError:
		return "ERROR"
	}
	return state
}

// FormatStartup renders the monitor's hello message.
func (l *Live) FormatStartup(file string) string {
	if file == "" {
		return l.prefix() + "👁 Monitoring started, waiting for an analyze file"
	}
	return fmt.Sprintf("%s👁 Monitoring started, watching %s", l.prefix(), file)
}

// FormatShutdown renders the monitor's goodbye message.
func (l *Live) FormatShutdown() string {
	return l.prefix() + "👋 Monitoring stopped"
}

// SessionSummary is the monitor's accumulated state for one streaming
// session, rendered when the session ends.
type SessionSummary struct {
	ID     string
	Path   string
	Reason string // why the session ended

	Captures         int
	Aborted          int
	AutofocusRuns    int
	AutofocusAborted int
	AlignSuccess     int
	AlignFail        int
	Jobs             []string
}

// FormatSessionEnd renders the compact end-of-session summary.
func (l *Live) FormatSessionEnd(sum SessionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s🌅 Session ended (%s)\n", l.prefix(), sum.Reason)
	fmt.Fprintf(&b, "Captures: %d complete", sum.Captures)
	if sum.Aborted > 0 {
		fmt.Fprintf(&b, ", %d aborted", sum.Aborted)
	}
	if sum.AutofocusRuns > 0 || sum.AutofocusAborted > 0 {
		fmt.Fprintf(&b, " | Autofocus: %d ok", sum.AutofocusRuns)
		if sum.AutofocusAborted > 0 {
			fmt.Fprintf(&b, ", %d failed", sum.AutofocusAborted)
		}
	}
	if sum.AlignSuccess > 0 || sum.AlignFail > 0 {
		fmt.Fprintf(&b, " | Align: %d/%d", sum.AlignSuccess, sum.AlignSuccess+sum.AlignFail)
	}
	if len(sum.Jobs) > 0 {
		fmt.Fprintf(&b, "\nTargets: %s", strings.Join(sum.Jobs, ", "))
	}
	fmt.Fprintf(&b, "\nid: %s", sum.ID)
	return b.String()
}
