// Package plotting extracts per-session time series and renders them as an
// HTML chart page.
package plotting

import (
	"sort"

	"github.com/grm/nightwatch/internal/event"
)

// Point is one (offset seconds, value) measurement.
type Point struct {
	X float64
	Y float64
}

// FocusMarker pins a completed autofocus run on the HFR chart.
type FocusMarker struct {
	Time    float64
	Filter  string
	BestHFR *float64
}

// Series is everything chartable from one session. All X values are
// offsets in seconds from the session anchor.
type Series struct {
	SessionPath string
	StartTime   string

	HFRByFilter   map[string][]Point
	GuideDistance []Point
	Temperature   []Point
	Autofocus     []FocusMarker
}

// Filters returns the HFR filter names in stable order.
func (s *Series) Filters() []string {
	names := make([]string, 0, len(s.HFRByFilter))
	for f := range s.HFRByFilter {
		names = append(names, f)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether there is nothing to chart.
func (s *Series) Empty() bool {
	return len(s.HFRByFilter) == 0 && len(s.GuideDistance) == 0 &&
		len(s.Temperature) == 0 && len(s.Autofocus) == 0
}

// Extract pulls the chartable series out of a session.
func Extract(sess *event.Session) *Series {
	s := &Series{
		SessionPath: sess.Path,
		StartTime:   sess.StartTime,
		HFRByFilter: make(map[string][]Point),
	}

	for _, c := range sess.CompletedCaptures() {
		if c.HFR == nil {
			continue
		}
		s.HFRByFilter[c.Filter] = append(s.HFRByFilter[c.Filter], Point{X: c.Time, Y: *c.HFR})
	}
	for _, g := range sess.GuideSamples() {
		s.GuideDistance = append(s.GuideDistance, Point{X: g.Time, Y: g.Distance})
	}
	for _, t := range sess.TemperatureReadings() {
		s.Temperature = append(s.Temperature, Point{X: t.Time, Y: t.Value})
	}
	for _, af := range sess.AutofocusRuns() {
		s.Autofocus = append(s.Autofocus, FocusMarker{Time: af.Time, Filter: af.Filter, BestHFR: af.BestHFR})
	}
	return s
}
