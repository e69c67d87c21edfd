package aggregate

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grm/nightwatch/internal/decode"
	"github.com/grm/nightwatch/internal/event"
)

// Options tunes the aggregation thresholds. Zero fields take defaults.
type Options struct {
	// SubSessionGap is the idle gap in seconds that starts a new
	// sub-session within a filter's capture list.
	SubSessionGap float64

	// GuideMatchWindow bounds how far back a CaptureStarting can sit from a
	// completed capture and still pull the guide window earlier, in seconds.
	GuideMatchWindow float64

	// GuidePad widens the guide window on both ends, in seconds.
	GuidePad float64

	// SpuriousArcsec drops guide measurements above this distance before
	// averaging.
	SpuriousArcsec float64

	// AutofocusBackfillWindow bounds how old an autofocus solution can be
	// and still backfill a capture's missing HFR, in seconds.
	AutofocusBackfillWindow float64

	// PixelScale is arcsec per pixel; 0 means unconfigured, which selects
	// the fixed arcsecond quality thresholds instead.
	PixelScale  float64
	ExcellentPx float64
	GoodPx      float64
	AveragePx   float64
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		SubSessionGap:           1800,
		GuideMatchWindow:        1200,
		GuidePad:                30,
		SpuriousArcsec:          10,
		AutofocusBackfillWindow: 1800,
		ExcellentPx:             0.5,
		GoodPx:                  1.0,
		AveragePx:               1.5,
	}
}

func (o *Options) fillDefaults() {
	def := DefaultOptions()
	if o.SubSessionGap == 0 {
		o.SubSessionGap = def.SubSessionGap
	}
	if o.GuideMatchWindow == 0 {
		o.GuideMatchWindow = def.GuideMatchWindow
	}
	if o.GuidePad == 0 {
		o.GuidePad = def.GuidePad
	}
	if o.SpuriousArcsec == 0 {
		o.SpuriousArcsec = def.SpuriousArcsec
	}
	if o.AutofocusBackfillWindow == 0 {
		o.AutofocusBackfillWindow = def.AutofocusBackfillWindow
	}
	if o.ExcellentPx == 0 {
		o.ExcellentPx = def.ExcellentPx
	}
	if o.GoodPx == 0 {
		o.GoodPx = def.GoodPx
	}
	if o.AveragePx == 0 {
		o.AveragePx = def.AveragePx
	}
}

// autofocusTempSentinel marks a "no reading" focuser temperature.
const autofocusTempSentinel = -999999

// guideSample is a session guide measurement on the report's absolute
// timeline, after the spurious filter.
type guideSample struct {
	abs      float64
	distance float64
	rms      float64
	snr      float64
}

// Aggregate reduces sessions to a Report. Output is deterministic
// regardless of input session order: captures are sorted by absolute time
// before any grouping.
func Aggregate(sessions []*event.Session, opts Options) *Report {
	opts.fillDefaults()

	r := &Report{
		Sessions:       len(sessions),
		CaptureSummary: make(map[TargetFilter][]*Capture),
		Filters:        make(map[string]*FilterAnalysis),
	}

	var captures []*Capture
	var guides []guideSample
	for _, sess := range sessions {
		anchor, anchored := sess.AnchorTime()
		base := 0.0
		if anchored {
			base = float64(anchor.Unix())
		}

		for _, c := range sess.CompletedCaptures() {
			var hfr *float64
			if c.HFR != nil {
				v := *c.HFR
				hfr = &v
			}
			captures = append(captures, &Capture{
				Session:  sess,
				Event:    c,
				Target:   targetFor(sess, c),
				AbsTime:  base + c.Time,
				Anchored: anchored,
				HFR:      hfr,
			})
		}
		r.AbortedCaptures += len(sess.AbortedCaptures())

		for _, g := range sess.GuideSamples() {
			d := g.Distance
			if d <= 0 {
				d = math.Hypot(g.DX, g.DY)
			}
			if d > opts.SpuriousArcsec {
				continue
			}
			guides = append(guides, guideSample{abs: base + g.Time, distance: d, rms: g.RMS, snr: g.SNR})
		}

		r.Issues = append(r.Issues, sess.Notifications()...)
	}

	if len(captures) == 0 {
		r.Empty = true
		r.Duration = duration(sessions, captures)
		return r
	}

	sort.SliceStable(captures, func(i, j int) bool { return captures[i].AbsTime < captures[j].AbsTime })
	sort.SliceStable(guides, func(i, j int) bool { return guides[i].abs < guides[j].abs })

	backfillHFR(captures, opts)

	r.Captures = captures
	r.TotalCaptures = len(captures)
	targets := make(map[string]bool)
	for _, c := range captures {
		targets[c.Target] = true
		r.TotalExposure += c.Event.Exposure
		key := TargetFilter{Target: c.Target, Filter: c.Event.Filter}
		r.CaptureSummary[key] = append(r.CaptureSummary[key], c)
	}
	for t := range targets {
		r.Targets = append(r.Targets, t)
	}
	sort.Strings(r.Targets)

	byFilter := make(map[string][]*Capture)
	for _, c := range captures {
		byFilter[c.Event.Filter] = append(byFilter[c.Event.Filter], c)
	}
	for filter, list := range byFilter {
		r.Filters[filter] = analyzeFilter(filter, list, guides, opts)
	}

	r.Temperature = temperatureStats(sessions)
	r.Autofocus = autofocusStats(sessions)
	r.Alignment = alignmentStats(sessions)
	r.Guide = overallGuide(guides, opts)
	r.Duration = duration(sessions, captures)
	return r
}

// targetFor attributes a capture to a target object. Scheduler jobs win:
// the latest job started at or before the capture, else the session's first
// job. Without any jobs the filename heuristic applies, then a name derived
// from the session identity.
func targetFor(sess *event.Session, c *event.CaptureComplete) string {
	jobs := sess.SchedulerJobStarts()
	if len(jobs) > 0 {
		var best *event.SchedulerJobStart
		for _, j := range jobs {
			if j.Time <= c.Time && (best == nil || j.Time >= best.Time) {
				best = j
			}
		}
		if best == nil {
			best = jobs[0]
		}
		return best.JobName
	}
	if name := decode.ObjectFromFilename(c.Filename); name != "" {
		return name
	}
	return sessionFallbackName(sess)
}

func sessionFallbackName(sess *event.Session) string {
	if anchor, ok := sess.AnchorTime(); ok {
		return "Session_" + anchor.Format("2006-01-02")
	}
	if sess.Path != "" {
		name := strings.TrimSuffix(filepath.Base(sess.Path), ".analyze")
		return "Session_" + strings.TrimPrefix(name, "ekos-")
	}
	return "Session_unknown"
}

// backfillHFR fills missing capture HFRs from the most recent same-filter
// autofocus solution in the same session, within the backfill window.
// Captures that already carry a measured HFR are never touched.
func backfillHFR(captures []*Capture, opts Options) {
	for _, c := range captures {
		if c.HFR != nil {
			continue
		}
		var best *event.AutofocusComplete
		for _, af := range c.Session.AutofocusRuns() {
			if af.Filter != c.Event.Filter || af.BestHFR == nil {
				continue
			}
			if af.Time > c.Event.Time || c.Event.Time-af.Time > opts.AutofocusBackfillWindow {
				continue
			}
			if best == nil || af.Time > best.Time {
				best = af
			}
		}
		if best != nil {
			v := *best.BestHFR
			c.HFR = &v
			c.HFRBackfilled = true
		}
	}
}

// analyzeFilter segments one filter's captures into sub-sessions and rolls
// them up into measurement-weighted global stats.
func analyzeFilter(filter string, captures []*Capture, guides []guideSample, opts Options) *FilterAnalysis {
	fa := &FilterAnalysis{Filter: filter, CaptureCount: len(captures)}
	for _, c := range captures {
		fa.TotalExposure += c.Event.Exposure
	}

	var current *SubSession
	for _, c := range captures {
		if current == nil || c.AbsTime-current.End > opts.SubSessionGap {
			current = &SubSession{Filter: filter, Start: c.AbsTime, End: c.AbsTime}
			fa.SubSessions = append(fa.SubSessions, current)
		}
		current.Captures = append(current.Captures, c)
		current.End = c.AbsTime
	}

	for _, sub := range fa.SubSessions {
		finishSubSession(sub, guides, opts)
	}

	fa.HFR = weighted(fa.SubSessions, func(s *SubSession) Stats { return s.HFR })
	fa.Stars = weighted(fa.SubSessions, func(s *SubSession) Stats { return s.Stars })

	var guideSum float64
	for _, sub := range fa.SubSessions {
		guideSum += sub.AvgGuideDistance * float64(sub.GuideSamples)
		fa.GuideSamples += sub.GuideSamples
	}
	if fa.GuideSamples > 0 {
		fa.AvgGuideDistance = guideSum / float64(fa.GuideSamples)
		fa.GuideQuality = ClassifyGuide(fa.AvgGuideDistance, opts)
	}
	return fa
}

// finishSubSession computes a sub-session's HFR/star stats and selects its
// guide samples. The guide window is the capture span expanded backward to
// cover same-filter CaptureStarting events near a member capture, then
// padded on both ends for settling.
func finishSubSession(sub *SubSession, guides []guideSample, opts Options) {
	var hfr, stars []float64
	for _, c := range sub.Captures {
		if c.HFR != nil {
			hfr = append(hfr, *c.HFR)
		}
		if c.Event.Stars != nil {
			stars = append(stars, float64(*c.Event.Stars))
		}
	}
	sub.HFR = statsOf(hfr)
	sub.Stars = statsOf(stars)

	winStart, winEnd := sub.Start, sub.End
	for _, c := range sub.Captures {
		base := c.AbsTime - c.Event.Time
		for _, cs := range c.Session.CaptureStarts() {
			if cs.Filter != sub.Filter {
				continue
			}
			if cs.Time > c.Event.Time || c.Event.Time-cs.Time > opts.GuideMatchWindow {
				continue
			}
			if abs := base + cs.Time; abs < winStart {
				winStart = abs
			}
		}
	}
	winStart -= opts.GuidePad
	winEnd += opts.GuidePad

	var sum float64
	for _, g := range guides {
		if g.abs < winStart || g.abs > winEnd {
			continue
		}
		sum += g.distance
		sub.GuideSamples++
	}
	if sub.GuideSamples > 0 {
		sub.AvgGuideDistance = sum / float64(sub.GuideSamples)
		sub.GuideQuality = ClassifyGuide(sub.AvgGuideDistance, opts)
	}
}

// weighted combines sub-session stats into a measurement-weighted global
// average, guarding the zero-count case.
func weighted(subs []*SubSession, pick func(*SubSession) Stats) Stats {
	var out Stats
	var sum float64
	first := true
	for _, sub := range subs {
		s := pick(sub)
		if s.Count == 0 {
			continue
		}
		sum += s.Avg * float64(s.Count)
		out.Count += s.Count
		if first || s.Min < out.Min {
			out.Min = s.Min
		}
		if first || s.Max > out.Max {
			out.Max = s.Max
		}
		first = false
	}
	if out.Count > 0 {
		out.Avg = sum / float64(out.Count)
	}
	return out
}

func statsOf(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	s := Stats{Min: values[0], Max: values[0], Count: len(values)}
	var sum float64
	for _, v := range values {
		sum += v
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
	}
	s.Avg = sum / float64(len(values))
	return s
}

// temperatureStats folds the ambient series and valid focuser readings from
// autofocus runs into one roll-up.
func temperatureStats(sessions []*event.Session) *Stats {
	var values []float64
	for _, sess := range sessions {
		for _, t := range sess.TemperatureReadings() {
			values = append(values, t.Value)
		}
		for _, af := range sess.AutofocusRuns() {
			if af.Temperature > autofocusTempSentinel {
				values = append(values, af.Temperature)
			}
		}
	}
	if len(values) == 0 {
		return nil
	}
	s := statsOf(values)
	return &s
}

func autofocusStats(sessions []*event.Session) *AutofocusStats {
	st := &AutofocusStats{ByFilter: make(map[string]int)}
	var durSum float64
	var durCount int
	for _, sess := range sessions {
		for _, e := range sess.Events {
			switch af := e.(type) {
			case *event.AutofocusComplete:
				st.Completed++
				st.ByFilter[af.Filter]++
				if af.Duration > 0 {
					durSum += af.Duration
					durCount++
				}
			case *event.AutofocusAborted:
				st.Aborted++
			}
		}
	}
	if st.Completed == 0 && st.Aborted == 0 {
		return nil
	}
	if durCount > 0 {
		st.AvgDuration = durSum / float64(durCount)
	}
	return st
}

// alignmentStats counts terminal plate-solve states only; InProgress and
// unknown states do not enter the success rate.
func alignmentStats(sessions []*event.Session) *AlignmentStats {
	st := &AlignmentStats{}
	for _, sess := range sessions {
		for _, a := range sess.AlignStates() {
			switch a.State {
			case event.AlignSuccessful, event.AlignComplete:
				st.Successful++
			case event.AlignFailed, event.AlignAborted:
				st.Failed++
			}
		}
	}
	total := st.Successful + st.Failed
	if total == 0 {
		return nil
	}
	st.SuccessRate = float64(st.Successful) / float64(total)
	return st
}

func overallGuide(guides []guideSample, opts Options) *GuideStats {
	if len(guides) == 0 {
		return nil
	}
	g := &GuideStats{Samples: len(guides), MinDistance: guides[0].distance, MaxDistance: guides[0].distance}
	var dSum, rmsSum, snrSum float64
	for _, s := range guides {
		dSum += s.distance
		rmsSum += s.rms
		snrSum += s.snr
		if s.distance < g.MinDistance {
			g.MinDistance = s.distance
		}
		if s.distance > g.MaxDistance {
			g.MaxDistance = s.distance
		}
	}
	n := float64(len(guides))
	g.AvgDistance = dSum / n
	g.AvgRMS = rmsSum / n
	g.AvgSNR = snrSum / n
	g.Quality = ClassifyGuide(g.AvgDistance, opts)
	return g
}

// duration computes the night's span. Anchored sessions give an exact
// wall-clock span; without any anchor the capture offsets themselves bound
// an estimate.
func duration(sessions []*event.Session, captures []*Capture) Duration {
	var earliest, latest float64
	anchored := false
	for _, sess := range sessions {
		anchor, ok := sess.AnchorTime()
		if !ok {
			continue
		}
		start := float64(anchor.Unix())
		end := start + sess.MaxOffset()
		if !anchored || start < earliest {
			earliest = start
		}
		if !anchored || end > latest {
			latest = end
		}
		anchored = true
	}
	if anchored {
		return Duration{Hours: (latest - earliest) / 3600, Exact: true}
	}

	if len(captures) == 0 {
		return Duration{}
	}
	min, max := captures[0].AbsTime, captures[0].AbsTime
	for _, c := range captures {
		if c.AbsTime < min {
			min = c.AbsTime
		}
		if c.AbsTime > max {
			max = c.AbsTime
		}
	}
	return Duration{Hours: (max - min) / 3600, Exact: false}
}

// String renders the duration for report text, marking estimates.
func (d Duration) String() string {
	if d.Exact {
		return fmt.Sprintf("%.1fh", d.Hours)
	}
	return fmt.Sprintf("~%.1fh (estimated)", d.Hours)
}
