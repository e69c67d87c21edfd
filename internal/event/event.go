// Package event defines the typed records produced by decoding Ekos
// .analyze log lines, and the Session container that holds them.
package event

// Kind identifies the concrete type of an Event.
type Kind string

const (
	KindSessionStart      Kind = "session_start"
	KindCaptureStarting   Kind = "capture_starting"
	KindCaptureComplete   Kind = "capture_complete"
	KindCaptureAborted    Kind = "capture_aborted"
	KindAutofocusStarting Kind = "autofocus_starting"
	KindAutofocusComplete Kind = "autofocus_complete"
	KindAutofocusAborted  Kind = "autofocus_aborted"
	KindGuideSample       Kind = "guide_sample"
	KindGuideState        Kind = "guide_state"
	KindMountState        Kind = "mount_state"
	KindMountCoords       Kind = "mount_coords"
	KindAlignState        Kind = "align_state"
	KindSchedulerJobStart Kind = "scheduler_job_start"
	KindSchedulerJobEnd   Kind = "scheduler_job_end"
	KindMeridianFlip      Kind = "meridian_flip"
	KindTemperature       Kind = "temperature"
	KindNotification      Kind = "notification"
)

// Event is one decoded record from an analyze log. Every event except
// SessionStart carries a relative time offset in seconds from the file's
// session anchor; SessionStart itself returns offset 0.
type Event interface {
	Kind() Kind
	Offset() float64
}

// SessionStart anchors the file to wall-clock time. StartTime is the raw
// datetime string from the AnalyzeStartTime line; all other events in the
// file are offsets from it.
type SessionStart struct {
	StartTime string
	Timezone  string
}

func (e *SessionStart) Kind() Kind      { return KindSessionStart }
func (e *SessionStart) Offset() float64 { return 0 }

// CaptureStarting marks the beginning of an exposure.
type CaptureStarting struct {
	Time     float64
	Exposure float64
	Filter   string
}

func (e *CaptureStarting) Kind() Kind      { return KindCaptureStarting }
func (e *CaptureStarting) Offset() float64 { return e.Time }

// CaptureComplete is a finished exposure. HFR and Stars are nil when the
// acquisition tool reported its "no measurement" sentinels. HFR may later be
// backfilled from an overlapping autofocus solution during aggregation, and
// only when nil.
type CaptureComplete struct {
	Time         float64
	Exposure     float64
	Filter       string
	HFR          *float64
	Filename     string
	Stars        *int
	Median       *int
	Eccentricity *float64

	// Duration is complete-time minus the paired CaptureStarting time, or
	// the exposure length when no start was seen.
	Duration float64

	// ObjectName is filled by the decoder from the current scheduler job,
	// falling back to filename heuristics. Live messages show it; the
	// aggregator re-derives attribution across whole sessions.
	ObjectName string
}

func (e *CaptureComplete) Kind() Kind      { return KindCaptureComplete }
func (e *CaptureComplete) Offset() float64 { return e.Time }

// CaptureAborted is an exposure that did not finish.
type CaptureAborted struct {
	Time     float64
	Exposure float64
	Filter   string
}

func (e *CaptureAborted) Kind() Kind      { return KindCaptureAborted }
func (e *CaptureAborted) Offset() float64 { return e.Time }

// AutofocusStarting marks the beginning of an autofocus run.
type AutofocusStarting struct {
	Time        float64
	Filter      string
	Temperature float64
	Step        int
}

func (e *AutofocusStarting) Kind() Kind      { return KindAutofocusStarting }
func (e *AutofocusStarting) Offset() float64 { return e.Time }

// FocusSample is one (position, hfr) measurement from an autofocus sweep.
type FocusSample struct {
	Position float64
	HFR      float64
	Weight   float64
	Outlier  bool
}

// AutofocusComplete is a finished autofocus run, including any per-sweep
// HFR samples embedded in the solution payload.
type AutofocusComplete struct {
	Time        float64
	Temperature float64
	Step        int
	Filter      string
	Duration    float64

	SolutionText string
	Samples      []FocusSample

	// BestHFR is the minimum valid sample HFR, preferring the sample whose
	// position matches the fitted solution position. Nil when no valid
	// sample was found.
	BestHFR       *float64
	FocusPosition *int
}

func (e *AutofocusComplete) Kind() Kind      { return KindAutofocusComplete }
func (e *AutofocusComplete) Offset() float64 { return e.Time }

// AutofocusAborted is an autofocus run that failed or was cancelled.
type AutofocusAborted struct {
	Time     float64
	Filter   string
	Duration float64
}

func (e *AutofocusAborted) Kind() Kind      { return KindAutofocusAborted }
func (e *AutofocusAborted) Offset() float64 { return e.Time }

// GuideSample is one guiding measurement. Units are arcseconds for dx, dy,
// distance and rms; pulses are milliseconds.
type GuideSample struct {
	Time     float64
	DX       float64
	DY       float64
	PulseRA  float64
	PulseDec float64
	Distance float64
	RMS      float64
	SNR      float64
}

func (e *GuideSample) Kind() Kind      { return KindGuideSample }
func (e *GuideSample) Offset() float64 { return e.Time }

// Guide state strings as they appear in analyze files.
const (
	GuideIdle          = "Idle"
	GuideCalibrating   = "Calibrating"
	GuideGuiding       = "Guiding"
	GuideDithering     = "Dithering"
	GuideReacquiring   = "Reacquiring"
	GuideAborted       = "Aborted"
	GuideLooping       = "Looping"
	GuideSelectingStar = "Selecting star"
)

// GuideState is a guider state transition.
type GuideState struct {
	Time  float64
	State string
}

func (e *GuideState) Kind() Kind      { return KindGuideState }
func (e *GuideState) Offset() float64 { return e.Time }

// MountState is a mount state transition (Tracking, Slewing, Parking, ...).
type MountState struct {
	Time  float64
	State string
}

func (e *MountState) Kind() Kind      { return KindMountState }
func (e *MountState) Offset() float64 { return e.Time }

// MountCoords is a pointing report.
type MountCoords struct {
	Time float64
	RA   float64
	Dec  float64
	Az   float64
	Alt  float64
}

func (e *MountCoords) Kind() Kind      { return KindMountCoords }
func (e *MountCoords) Offset() float64 { return e.Time }

// Align state strings as they appear in analyze files.
const (
	AlignInProgress = "In Progress"
	AlignComplete   = "Complete"
	AlignSuccessful = "Successful"
	AlignFailed     = "Failed"
	AlignAborted    = "Aborted"
)

// AlignState is a plate-solve alignment state transition.
type AlignState struct {
	Time  float64
	State string
}

func (e *AlignState) Kind() Kind      { return KindAlignState }
func (e *AlignState) Offset() float64 { return e.Time }

// SchedulerJobStart marks the scheduler switching to a new target.
type SchedulerJobStart struct {
	Time    float64
	JobName string
}

func (e *SchedulerJobStart) Kind() Kind      { return KindSchedulerJobStart }
func (e *SchedulerJobStart) Offset() float64 { return e.Time }

// SchedulerJobEnd marks a scheduler job finishing, with the tool's reason.
type SchedulerJobEnd struct {
	Time    float64
	JobName string
	Reason  string
}

func (e *SchedulerJobEnd) Kind() Kind      { return KindSchedulerJobEnd }
func (e *SchedulerJobEnd) Offset() float64 { return e.Time }

// Meridian flip states that are worth surfacing; everything else is dropped
// at decode time.
const (
	FlipRunning   = "MOUNT_FLIP_RUNNING"
	FlipCompleted = "MOUNT_FLIP_COMPLETED"
	FlipError     = "MOUNT_FLIP_ERROR"
)

// MeridianFlip is a meridian flip state report.
type MeridianFlip struct {
	Time  float64
	State string
}

func (e *MeridianFlip) Kind() Kind      { return KindMeridianFlip }
func (e *MeridianFlip) Offset() float64 { return e.Time }

// Temperature is an ambient/focuser temperature reading in °C.
type Temperature struct {
	Time  float64
	Value float64
}

func (e *Temperature) Kind() Kind      { return KindTemperature }
func (e *Temperature) Offset() float64 { return e.Time }
