// Package aggregate reduces one or more parsed sessions to a unified
// night report: captures grouped by target and filter, sub-session
// segmentation, guiding and temperature roll-ups.
package aggregate

import (
	"github.com/grm/nightwatch/internal/event"
)

// TargetFilter keys the capture summary.
type TargetFilter struct {
	Target string
	Filter string
}

// Capture is one completed exposure annotated with its owning target and an
// absolute timeline position. HFR starts as the decoded value and may be
// backfilled from an overlapping autofocus solution, but only when nil.
type Capture struct {
	Session *event.Session
	Event   *event.CaptureComplete

	Target string

	// AbsTime is unix seconds when the session has a wall-clock anchor,
	// otherwise the raw in-file offset. Anchored distinguishes the two.
	AbsTime  float64
	Anchored bool

	HFR           *float64
	HFRBackfilled bool
}

// Stats is a min/max/mean roll-up over a measurement series.
type Stats struct {
	Min   float64
	Max   float64
	Avg   float64
	Count int
}

// SubSession is a contiguous same-filter imaging run with no idle gap over
// the segmentation threshold.
type SubSession struct {
	Filter   string
	Start    float64 // AbsTime of first capture
	End      float64 // AbsTime of last capture
	Captures []*Capture

	HFR   Stats
	Stars Stats

	GuideSamples     int
	AvgGuideDistance float64
	GuideQuality     string
}

// FilterAnalysis holds per-filter capture statistics. Global averages are
// measurement-weighted across sub-sessions, never mean-of-means.
type FilterAnalysis struct {
	Filter      string
	SubSessions []*SubSession

	CaptureCount int
	TotalExposure float64

	HFR   Stats
	Stars Stats

	GuideSamples     int
	AvgGuideDistance float64
	GuideQuality     string
}

// GuideStats summarizes guiding across the whole report, after the
// spurious-measurement filter.
type GuideStats struct {
	Samples     int
	AvgDistance float64
	MinDistance float64
	MaxDistance float64
	AvgRMS      float64
	AvgSNR      float64
	Quality     string
}

// AutofocusStats summarizes completed and aborted autofocus runs.
type AutofocusStats struct {
	Completed   int
	Aborted     int
	AvgDuration float64
	ByFilter    map[string]int
}

// AlignmentStats counts terminal plate-solve outcomes. SuccessRate is 0
// when no terminal state was seen.
type AlignmentStats struct {
	Successful  int
	Failed      int
	SuccessRate float64
}

// Duration is the night's wall-clock span. Exact is false when no session
// carried a parseable anchor and the span was estimated from capture
// offsets alone.
type Duration struct {
	Hours float64
	Exact bool
}

// Report is the aggregated view over all input sessions.
type Report struct {
	// Empty is set when there were no sessions or no completed captures;
	// callers treat it as "nothing to report", not an error.
	Empty bool

	Sessions        int
	TotalCaptures   int
	AbortedCaptures int
	TotalExposure   float64 // seconds of completed integration

	Targets        []string // sorted
	CaptureSummary map[TargetFilter][]*Capture
	Filters        map[string]*FilterAnalysis

	// Captures is every completed capture across sessions, sorted by
	// absolute time. The metrics layer consumes this ordering.
	Captures []*Capture

	Temperature *Stats
	Autofocus   *AutofocusStats
	Alignment   *AlignmentStats
	Guide       *GuideStats

	Duration Duration

	Issues []*event.Notification
}

// Guide quality category labels, best to worst.
const (
	QualityExcellent = "Excellent"
	QualityGood      = "Good"
	QualityAverage   = "Average"
	QualityPoor      = "Poor"
)

// ClassifyGuide buckets an average guide distance. With a configured pixel
// scale the distance converts to pixels and compares against the pixel
// thresholds; otherwise fixed arcsecond thresholds apply.
func ClassifyGuide(arcsec float64, opts Options) string {
	if opts.PixelScale > 0 {
		px := arcsec / opts.PixelScale
		switch {
		case px < opts.ExcellentPx:
			return QualityExcellent
		case px < opts.GoodPx:
			return QualityGood
		case px < opts.AveragePx:
			return QualityAverage
		}
		return QualityPoor
	}
	switch {
	case arcsec < 1.0:
		return QualityExcellent
	case arcsec < 2.0:
		return QualityGood
	case arcsec < 3.0:
		return QualityAverage
	}
	return QualityPoor
}
