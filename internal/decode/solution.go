package decode

import (
	"strconv"
	"strings"

	"github.com/grm/nightwatch/internal/event"
)

// Focus sweep samples outside this HFR range are measurement noise.
const (
	minValidHFR = 0.5
	maxValidHFR = 20.0
)

// parseFocusSamples extracts the pipe-delimited (position, hfr, weight,
// outlier) quadruples embedded in an AutofocusComplete payload. A quadruple
// with any unparseable field is rejected whole; the rest of the table still
// parses.
func parseFocusSamples(parts []string) []event.FocusSample {
	var tokens []string
	for _, p := range parts {
		if strings.Contains(p, "|") {
			tokens = append(tokens, strings.Split(p, "|")...)
		}
	}
	if len(tokens) < 4 {
		return nil
	}

	var samples []event.FocusSample
	for i := 0; i+3 < len(tokens); i += 4 {
		pos, ok1 := parseFloat(tokens[i])
		hfr, ok2 := parseFloat(tokens[i+1])
		weight, ok3 := parseFloat(tokens[i+2])
		outlier, ok4 := parseFloat(tokens[i+3])
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		samples = append(samples, event.FocusSample{
			Position: pos,
			HFR:      hfr,
			Weight:   weight,
			Outlier:  outlier != 0,
		})
	}
	return samples
}

// bestHFR picks the sharpest valid sample. When the fitted solution
// position matches a sample exactly, that sample's HFR wins over the global
// minimum.
func bestHFR(samples []event.FocusSample, focusPosition *int) *float64 {
	var best *float64
	for i := range samples {
		s := &samples[i]
		if s.Outlier || s.HFR < minValidHFR || s.HFR > maxValidHFR {
			continue
		}
		if focusPosition != nil && s.Position == float64(*focusPosition) {
			hfr := s.HFR
			return &hfr
		}
		if best == nil || s.HFR < *best {
			hfr := s.HFR
			best = &hfr
		}
	}
	return best
}

// parseSolutionPosition extracts the focuser position from a
// "Solution: <int>" substring of the payload title.
func parseSolutionPosition(line string) *int {
	idx := strings.Index(line, "Solution:")
	if idx < 0 {
		return nil
	}
	rest := strings.TrimSpace(line[idx+len("Solution:"):])
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return nil
	}
	pos, err := strconv.Atoi(fields[0])
	if err != nil {
		return nil
	}
	return &pos
}
