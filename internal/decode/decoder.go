// Package decode turns raw analyze-log lines into typed events. Decoding is
// line-at-a-time and fault isolated: a malformed line yields zero events and
// never stops the stream.
package decode

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/grm/nightwatch/internal/event"
)

// Options holds the guider-alerting thresholds. Timing is evaluated against
// event offsets, not wall clock.
type Options struct {
	// GuideLostThreshold is how long guiding must stay down before a lost
	// notification fires, in seconds.
	GuideLostThreshold float64
	// ReacquireAlertCount reacquire events within ReacquireAlertWindow
	// seconds trigger a frequent-reacquire notification.
	ReacquireAlertCount  int
	ReacquireAlertWindow float64
}

// DefaultOptions returns the thresholds the notifier was tuned with.
func DefaultOptions() Options {
	return Options{
		GuideLostThreshold:   30.0,
		ReacquireAlertCount:  5,
		ReacquireAlertWindow: 300.0,
	}
}

// Decoder is a stateful line decoder. It owns its Context; callers reset it
// when switching to a new file.
type Decoder struct {
	opts Options
	ctx  Context
}

// New returns a Decoder with the given thresholds. Zero thresholds fall
// back to the defaults.
func New(opts Options) *Decoder {
	def := DefaultOptions()
	if opts.GuideLostThreshold <= 0 {
		opts.GuideLostThreshold = def.GuideLostThreshold
	}
	if opts.ReacquireAlertCount <= 0 {
		opts.ReacquireAlertCount = def.ReacquireAlertCount
	}
	if opts.ReacquireAlertWindow <= 0 {
		opts.ReacquireAlertWindow = def.ReacquireAlertWindow
	}
	d := &Decoder{opts: opts}
	d.ctx.Reset()
	return d
}

// Reset clears all decode state, as when the tailer switches files.
func (d *Decoder) Reset() { d.ctx.Reset() }

// Context exposes the decode state for inspection (session anchor, current
// scheduler job, tool version).
func (d *Decoder) Context() *Context { return &d.ctx }

// ClockTime renders an event offset as wall-clock time when the session
// anchor is known, otherwise as a raw offset.
func (d *Decoder) ClockTime(offset float64) string {
	if d.ctx.anchorValid {
		return d.ctx.anchor.Add(time.Duration(offset * float64(time.Second))).Format("15:04:05")
	}
	return fmt.Sprintf("%.0fs", offset)
}

// Decode processes one raw line and returns zero, one or two events: the
// decoded record, possibly followed by a derived transition notification.
func (d *Decoder) Decode(line string) []event.Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if strings.HasPrefix(line, "#") {
		d.decodeComment(line)
		return nil
	}

	parts := strings.Split(line, ",")
	if len(parts) < 2 {
		return nil
	}
	tag := parts[0]

	// AnalyzeStartTime is the only line without a numeric offset.
	if tag == "AnalyzeStartTime" {
		if len(parts) < 3 {
			return nil
		}
		return d.decodeSessionStart(strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2]))
	}

	t, ok := parseFloat(parts[1])
	if !ok {
		// An unparseable primary offset drops the whole line.
		return nil
	}

	switch tag {
	case "CaptureStarting":
		if len(parts) >= 4 {
			return d.decodeCaptureStarting(t, parts)
		}
	case "CaptureComplete":
		if len(parts) >= 6 {
			return d.decodeCaptureComplete(t, parts)
		}
	case "CaptureAborted":
		if len(parts) >= 3 {
			return d.decodeCaptureAborted(t, parts)
		}
	case "AutofocusStarting":
		if len(parts) >= 4 {
			return d.decodeAutofocusStarting(t, parts)
		}
	case "AutofocusComplete":
		if len(parts) >= 4 {
			return d.decodeAutofocusComplete(t, parts)
		}
	case "AutofocusAborted":
		if len(parts) >= 3 {
			return d.decodeAutofocusAborted(t, parts)
		}
	case "GuideStats":
		if len(parts) >= 7 {
			return d.decodeGuideSample(t, parts)
		}
	case "GuideState":
		if len(parts) >= 3 {
			return d.decodeGuideState(t, strings.TrimSpace(parts[2]))
		}
	case "MountState":
		if len(parts) >= 3 {
			return d.decodeMountState(t, strings.TrimSpace(parts[2]))
		}
	case "MountCoords":
		if len(parts) >= 6 {
			return d.decodeMountCoords(t, parts)
		}
	case "AlignState":
		if len(parts) >= 3 {
			return d.decodeAlignState(t, strings.TrimSpace(parts[2]))
		}
	case "SchedulerJobStart":
		if len(parts) >= 3 {
			return d.decodeSchedulerStart(t, strings.TrimSpace(parts[2]))
		}
	case "SchedulerJobEnd":
		if len(parts) >= 3 {
			reason := ""
			if len(parts) > 3 {
				reason = strings.TrimSpace(parts[3])
			}
			return d.decodeSchedulerEnd(t, strings.TrimSpace(parts[2]), reason)
		}
	case "MeridianFlipState":
		if len(parts) >= 3 {
			return d.decodeMeridianFlip(t, strings.TrimSpace(parts[2]))
		}
	case "Temperature":
		if len(parts) >= 3 {
			if v, ok := parseFloat(parts[2]); ok {
				return []event.Event{&event.Temperature{Time: t, Value: v}}
			}
		}
	}
	return nil
}

func (d *Decoder) decodeComment(line string) {
	const versionPrefix = "#KStars version"
	if strings.HasPrefix(line, versionPrefix) {
		d.ctx.KStarsVersion = strings.TrimSpace(strings.TrimPrefix(line, versionPrefix))
	}
}

func (d *Decoder) decodeSessionStart(startTime, timezone string) []event.Event {
	d.ctx.SessionStartTime = startTime
	d.ctx.SessionTimezone = timezone
	if anchor, err := time.Parse("2006-01-02 15:04:05", startTime); err == nil {
		d.ctx.anchor = anchor
		d.ctx.anchorValid = true
	}
	return []event.Event{&event.SessionStart{StartTime: startTime, Timezone: timezone}}
}

func (d *Decoder) decodeCaptureStarting(t float64, parts []string) []event.Event {
	exposure, ok := parseFloat(parts[2])
	if !ok {
		return nil
	}
	filter := strings.TrimSpace(parts[3])

	d.ctx.capture = pendingCapture{armed: true, time: t, exposure: exposure, filter: filter}
	return []event.Event{&event.CaptureStarting{Time: t, Exposure: exposure, Filter: filter}}
}

func (d *Decoder) decodeCaptureComplete(t float64, parts []string) []event.Event {
	exposure, ok := parseFloat(parts[2])
	if !ok {
		return nil
	}
	c := &event.CaptureComplete{
		Time:     t,
		Exposure: exposure,
		Filter:   strings.TrimSpace(parts[3]),
	}

	// -1.000 is the tool's "no measurement" sentinel.
	if hfr, ok := parseFloat(parts[4]); ok && hfr > 0 {
		c.HFR = &hfr
	}
	if len(parts) > 5 {
		c.Filename = strings.TrimSpace(parts[5])
	}
	if len(parts) > 6 {
		if stars, ok := parseInt(parts[6]); ok && stars >= 0 {
			c.Stars = &stars
		}
	}
	if len(parts) > 7 {
		if median, ok := parseInt(parts[7]); ok {
			c.Median = &median
		}
	}
	if len(parts) > 8 {
		if ecc, ok := parseFloat(parts[8]); ok {
			c.Eccentricity = &ecc
		}
	}

	if d.ctx.capture.armed {
		c.Duration = t - d.ctx.capture.time
	} else {
		c.Duration = exposure
	}
	d.ctx.capture = pendingCapture{}

	c.ObjectName = d.ctx.currentJob
	if c.ObjectName == "" {
		c.ObjectName = ObjectFromFilename(c.Filename)
	}
	return []event.Event{c}
}

func (d *Decoder) decodeCaptureAborted(t float64, parts []string) []event.Event {
	exposure, _ := parseFloat(parts[2])
	a := &event.CaptureAborted{Time: t, Exposure: exposure, Filter: d.ctx.capture.filter}
	d.ctx.capture = pendingCapture{}
	return []event.Event{a}
}

func (d *Decoder) decodeAutofocusStarting(t float64, parts []string) []event.Event {
	filter := strings.TrimSpace(parts[2])
	temperature, ok := parseFloat(parts[3])
	if !ok {
		return nil
	}
	step := 0
	if len(parts) > 4 {
		step, _ = parseInt(parts[4])
	}

	d.ctx.autofocus = pendingAutofocus{armed: true, time: t, filter: filter, temperature: temperature, step: step}
	return []event.Event{&event.AutofocusStarting{Time: t, Filter: filter, Temperature: temperature, Step: step}}
}

func (d *Decoder) decodeAutofocusComplete(t float64, parts []string) []event.Event {
	a := &event.AutofocusComplete{Time: t}

	if temp, ok := parseFloat(parts[2]); ok {
		a.Temperature = temp
	} else {
		a.Temperature = d.ctx.autofocus.temperature
	}
	if step, ok := parseInt(parts[3]); ok {
		a.Step = step
	} else {
		a.Step = d.ctx.autofocus.step
	}
	a.Filter = d.ctx.autofocus.filter
	if len(parts) >= 6 {
		if f := strings.TrimSpace(parts[5]); f != "" {
			a.Filter = f
		}
	}

	if d.ctx.autofocus.armed {
		a.Duration = t - d.ctx.autofocus.time
	}
	d.ctx.autofocus = pendingAutofocus{}

	full := strings.Join(parts, ",")
	a.FocusPosition = parseSolutionPosition(full)
	if idx := strings.Index(full, "Solution:"); idx >= 0 {
		a.SolutionText = strings.TrimSpace(full[idx:])
	}

	a.Samples = parseFocusSamples(parts)
	a.BestHFR = bestHFR(a.Samples, a.FocusPosition)

	return []event.Event{a}
}

func (d *Decoder) decodeAutofocusAborted(t float64, parts []string) []event.Event {
	a := &event.AutofocusAborted{Time: t, Filter: d.ctx.autofocus.filter}
	if a.Filter == "" {
		a.Filter = strings.TrimSpace(parts[2])
	}
	if d.ctx.autofocus.armed {
		a.Duration = t - d.ctx.autofocus.time
	}
	d.ctx.autofocus = pendingAutofocus{}
	return []event.Event{a}
}

func (d *Decoder) decodeGuideSample(t float64, parts []string) []event.Event {
	g := &event.GuideSample{Time: t}
	// Individual malformed fields read as zero; only the offset is load
	// bearing for this record.
	g.DX, _ = parseFloat(parts[2])
	g.DY, _ = parseFloat(parts[3])
	g.PulseRA, _ = parseFloat(parts[4])
	g.PulseDec, _ = parseFloat(parts[5])
	g.Distance, _ = parseFloat(parts[6])
	if len(parts) > 7 {
		g.RMS, _ = parseFloat(parts[7])
	}
	if len(parts) > 8 {
		g.SNR, _ = parseFloat(parts[8])
	}
	return []event.Event{g}
}

func (d *Decoder) decodeGuideState(t float64, state string) []event.Event {
	events := []event.Event{&event.GuideState{Time: t, State: state}}
	gt := &d.ctx.guide
	gt.lastState = state
	gt.lastStateTime = t

	switch state {
	case event.GuideGuiding:
		if gt.lostArmed && gt.lostAlerted {
			events = append(events, &event.Notification{
				Time:     t,
				Type:     event.NotifyGuideRecovered,
				Duration: t - gt.lostTime,
			})
		}
		gt.guidingActive = true
		gt.lostArmed = false
		gt.lostAlerted = false

	case event.GuideReacquiring:
		gt.reacquireTimes = append(gt.reacquireTimes, t)
		cutoff := t - d.opts.ReacquireAlertWindow
		kept := gt.reacquireTimes[:0]
		for _, rt := range gt.reacquireTimes {
			if rt > cutoff {
				kept = append(kept, rt)
			}
		}
		gt.reacquireTimes = kept

		if len(gt.reacquireTimes) >= d.opts.ReacquireAlertCount &&
			t-gt.reacquireAlertedAt > d.opts.ReacquireAlertWindow {
			gt.reacquireAlertedAt = t
			events = append(events, &event.Notification{
				Time:   t,
				Type:   event.NotifyFrequentReacquire,
				Count:  len(gt.reacquireTimes),
				Window: d.opts.ReacquireAlertWindow,
			})
		}

	case event.GuideAborted, event.GuideIdle:
		if gt.guidingActive && !gt.lostArmed {
			gt.lostTime = t
			gt.lostArmed = true
			gt.guidingActive = false
		}
		if gt.lostArmed && !gt.lostAlerted && t-gt.lostTime >= d.opts.GuideLostThreshold {
			gt.lostAlerted = true
			events = append(events, &event.Notification{
				Time:     t,
				Type:     event.NotifyGuideLost,
				Duration: t - gt.lostTime,
			})
		}

		// Dithering, Calibrating, Looping and star selection are normal
		// parts of a capture sequence; no alerting.
	}

	return events
}

func (d *Decoder) decodeMountState(t float64, state string) []event.Event {
	events := []event.Event{&event.MountState{Time: t, State: state}}

	switch state {
	case "Parking":
		if !d.ctx.mountParking {
			d.ctx.mountParking = true
			events = append(events, &event.Notification{
				Time: t, Type: event.NotifyMountParking, State: "Parking",
			})
		}
	case "Parked", "Idle":
		if d.ctx.mountParking {
			d.ctx.mountParking = false
			if state == "Parked" {
				events = append(events, &event.Notification{
					Time: t, Type: event.NotifyMountParking, State: "Parked",
				})
			}
		}
	default:
		// Slewing, Tracking, etc. cancel any parking in progress.
		d.ctx.mountParking = false
	}

	return events
}

func (d *Decoder) decodeMountCoords(t float64, parts []string) []event.Event {
	m := &event.MountCoords{Time: t}
	m.RA, _ = parseFloat(parts[2])
	m.Dec, _ = parseFloat(parts[3])
	m.Az, _ = parseFloat(parts[4])
	m.Alt, _ = parseFloat(parts[5])
	return []event.Event{m}
}

func (d *Decoder) decodeAlignState(t float64, state string) []event.Event {
	events := []event.Event{&event.AlignState{Time: t, State: state}}

	switch state {
	case event.AlignInProgress:
		if !d.ctx.alignInProgress {
			d.ctx.alignInProgress = true
			d.ctx.alignStartTime = t
		}
	case event.AlignComplete, event.AlignSuccessful:
		if d.ctx.alignInProgress {
			d.ctx.alignInProgress = false
			events = append(events, &event.Notification{
				Time: t, Type: event.NotifyAlignComplete, Duration: t - d.ctx.alignStartTime,
			})
		}
	case event.AlignFailed, event.AlignAborted:
		if d.ctx.alignInProgress {
			d.ctx.alignInProgress = false
			events = append(events, &event.Notification{
				Time: t, Type: event.NotifyAlignFailed, Duration: t - d.ctx.alignStartTime, State: state,
			})
		}
	}

	return events
}

func (d *Decoder) decodeSchedulerStart(t float64, jobName string) []event.Event {
	d.ctx.currentJob = jobName
	return []event.Event{&event.SchedulerJobStart{Time: t, JobName: jobName}}
}

func (d *Decoder) decodeSchedulerEnd(t float64, jobName, reason string) []event.Event {
	d.ctx.currentJob = ""
	return []event.Event{&event.SchedulerJobEnd{Time: t, JobName: jobName, Reason: reason}}
}

func (d *Decoder) decodeMeridianFlip(t float64, state string) []event.Event {
	switch state {
	case event.FlipRunning, event.FlipCompleted, event.FlipError:
		return []event.Event{
			&event.MeridianFlip{Time: t, State: state},
			&event.Notification{Time: t, Type: event.NotifyMeridianFlip, State: state},
		}
	}
	// Intermediate flip states carry no information the session record needs.
	return nil
}

func parseFloat(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseInt(s string) (int, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return v, true
}
