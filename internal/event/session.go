package event

import "time"

// anchorLayout parses the AnalyzeStartTime datetime string. Go's parser
// accepts a fractional seconds field even when the layout omits it, so this
// covers both the plain and the sub-second variants the tool writes.
const anchorLayout = "2006-01-02 15:04:05"

// Session is one parsed analyze log file: the anchor metadata plus every
// decoded event in arrival order. Batch parsing produces an immutable
// Session; the streaming monitor never materializes one.
type Session struct {
	Path          string
	StartTime     string // raw AnalyzeStartTime string, empty if absent
	Timezone      string
	KStarsVersion string
	Events        []Event
}

// AnchorTime parses the session's wall-clock start. ok is false when the
// file had no parseable AnalyzeStartTime line, in which case only relative
// durations are meaningful.
func (s *Session) AnchorTime() (time.Time, bool) {
	if s.StartTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(anchorLayout, s.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// MaxOffset returns the largest event offset seen, used to infer the
// session's end.
func (s *Session) MaxOffset() float64 {
	var max float64
	for _, e := range s.Events {
		if e.Offset() > max {
			max = e.Offset()
		}
	}
	return max
}

// CompletedCaptures returns the session's CaptureComplete events in order.
func (s *Session) CompletedCaptures() []*CaptureComplete {
	var out []*CaptureComplete
	for _, e := range s.Events {
		if c, ok := e.(*CaptureComplete); ok {
			out = append(out, c)
		}
	}
	return out
}

// CaptureStarts returns the session's CaptureStarting events in order.
func (s *Session) CaptureStarts() []*CaptureStarting {
	var out []*CaptureStarting
	for _, e := range s.Events {
		if c, ok := e.(*CaptureStarting); ok {
			out = append(out, c)
		}
	}
	return out
}

// AbortedCaptures returns the session's CaptureAborted events in order.
func (s *Session) AbortedCaptures() []*CaptureAborted {
	var out []*CaptureAborted
	for _, e := range s.Events {
		if c, ok := e.(*CaptureAborted); ok {
			out = append(out, c)
		}
	}
	return out
}

// GuideSamples returns the session's guiding measurements in order.
func (s *Session) GuideSamples() []*GuideSample {
	var out []*GuideSample
	for _, e := range s.Events {
		if g, ok := e.(*GuideSample); ok {
			out = append(out, g)
		}
	}
	return out
}

// TemperatureReadings returns the session's temperature series in order.
func (s *Session) TemperatureReadings() []*Temperature {
	var out []*Temperature
	for _, e := range s.Events {
		if t, ok := e.(*Temperature); ok {
			out = append(out, t)
		}
	}
	return out
}

// AutofocusRuns returns completed autofocus runs in order.
func (s *Session) AutofocusRuns() []*AutofocusComplete {
	var out []*AutofocusComplete
	for _, e := range s.Events {
		if a, ok := e.(*AutofocusComplete); ok {
			out = append(out, a)
		}
	}
	return out
}

// AlignStates returns alignment state transitions in order.
func (s *Session) AlignStates() []*AlignState {
	var out []*AlignState
	for _, e := range s.Events {
		if a, ok := e.(*AlignState); ok {
			out = append(out, a)
		}
	}
	return out
}

// SchedulerJobStarts returns scheduler job starts in order.
func (s *Session) SchedulerJobStarts() []*SchedulerJobStart {
	var out []*SchedulerJobStart
	for _, e := range s.Events {
		if j, ok := e.(*SchedulerJobStart); ok {
			out = append(out, j)
		}
	}
	return out
}

// Notifications returns the derived transition notifications in order.
func (s *Session) Notifications() []*Notification {
	var out []*Notification
	for _, e := range s.Events {
		if n, ok := e.(*Notification); ok {
			out = append(out, n)
		}
	}
	return out
}

// HasActivity reports whether the session recorded any captures or
// autofocus runs; files without either are skipped during aggregation.
func (s *Session) HasActivity() bool {
	for _, e := range s.Events {
		switch e.Kind() {
		case KindCaptureStarting, KindCaptureComplete, KindAutofocusStarting, KindAutofocusComplete:
			return true
		}
	}
	return false
}
