package decode

import (
	"math"
	"time"
)

// pendingCapture holds the state armed by a CaptureStarting line until the
// matching complete/aborted line consumes it.
type pendingCapture struct {
	armed    bool
	time     float64
	exposure float64
	filter   string
}

// pendingAutofocus holds the state armed by an AutofocusStarting line.
type pendingAutofocus struct {
	armed       bool
	time        float64
	filter      string
	temperature float64
	step        int
}

// guideTracker is the guider alerting state machine. All timing is in event
// offsets, never wall clock, so replays are deterministic.
type guideTracker struct {
	lastState     string
	lastStateTime float64

	guidingActive bool
	lostTime      float64
	lostArmed     bool
	lostAlerted   bool

	reacquireTimes []float64
	// reacquireAlertedAt starts at -Inf so the very first window can alert;
	// afterwards it arms a cooldown one window long.
	reacquireAlertedAt float64
}

// Context is the mutable state threaded through line decoding. It is owned
// by exactly one Decoder and reset whenever the underlying file changes.
type Context struct {
	// SessionStartTime and SessionTimezone come from the AnalyzeStartTime
	// line; anchor is its parsed form when parseable.
	SessionStartTime string
	SessionTimezone  string
	KStarsVersion    string
	anchor           time.Time
	anchorValid      bool

	capture   pendingCapture
	autofocus pendingAutofocus
	guide     guideTracker

	alignInProgress bool
	alignStartTime  float64

	mountParking bool

	currentJob string
}

// Reset clears all decode state. Called when the tailer switches files.
func (c *Context) Reset() {
	*c = Context{}
	c.guide.reacquireAlertedAt = math.Inf(-1)
}

// CurrentJob returns the scheduler job active at the current decode point.
func (c *Context) CurrentJob() string { return c.currentJob }
