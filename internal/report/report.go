// Package report renders aggregated session data into chat-sized text.
// It produces ordered, semantically complete chunks; packing them under a
// byte budget happens separately so callers control the delivery shape.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grm/nightwatch/internal/aggregate"
	"github.com/grm/nightwatch/internal/event"
	"github.com/grm/nightwatch/internal/metrics"
)

// Level selects how much detail the rendered report carries.
type Level string

const (
	LevelMinimal  Level = "minimal"
	LevelStandard Level = "standard"
	LevelDetailed Level = "detailed"
)

// ParseLevel validates a configured report level string.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case LevelMinimal, LevelStandard, LevelDetailed:
		return Level(s), nil
	}
	return "", fmt.Errorf("unknown report level %q", s)
}

// fwhmFactor converts HFR to an approximate FWHM.
const fwhmFactor = 2.35

// FWHMFromHFR converts a half-flux radius to full-width half-maximum.
func FWHMFromHFR(hfr float64) float64 { return hfr * fwhmFactor }

// Build renders the report as ordered chunks. Each chunk stands alone; the
// packer may merge adjacent ones but never splits below this granularity
// unless forced.
func Build(r *aggregate.Report, s *metrics.Summary, level Level) []string {
	if r == nil || r.Empty {
		return []string{"🌙 No imaging activity found."}
	}

	chunks := []string{overview(r, s)}
	if level != LevelMinimal {
		if c := conditions(r, s); c != "" {
			chunks = append(chunks, c)
		}
		if c := guiding(r); c != "" {
			chunks = append(chunks, c)
		}
		chunks = append(chunks, captureDetails(r, level)...)
		if c := autofocus(r, s, level); c != "" {
			chunks = append(chunks, c)
		}
	}
	if c := issues(r, s); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

func overview(r *aggregate.Report, s *metrics.Summary) string {
	var b strings.Builder
	b.WriteString("🔭 **Night Report**\n")
	fmt.Fprintf(&b, "Duration: %s | Sessions: %d\n", r.Duration, r.Sessions)
	if len(r.Targets) > 0 {
		fmt.Fprintf(&b, "Targets: %s\n", strings.Join(r.Targets, ", "))
	}
	fmt.Fprintf(&b, "Captures: %d complete", r.TotalCaptures)
	if r.AbortedCaptures > 0 {
		fmt.Fprintf(&b, ", %d aborted", r.AbortedCaptures)
	}
	fmt.Fprintf(&b, " | Integration: %.1fh\n", r.TotalExposure/3600)
	fmt.Fprintf(&b, "Seeing: %s | HFR trend: %s | Quality score: %.0f/100", s.Seeing, s.HFRTrend, s.QualityScore)
	return b.String()
}

func conditions(r *aggregate.Report, s *metrics.Summary) string {
	if r.Temperature == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("🌡 **Conditions**\n")
	fmt.Fprintf(&b, "Temperature: %.1f…%.1f°C (avg %.1f, %d readings)\n",
		r.Temperature.Min, r.Temperature.Max, r.Temperature.Avg, r.Temperature.Count)
	fmt.Fprintf(&b, "Thermal stability: %.0f%%", s.ThermalStability*100)
	if s.TempHFR != nil && s.TempHFR.Significant {
		fmt.Fprintf(&b, "\nTemperature↔HFR correlation: r=%.2f over %d pairs", s.TempHFR.R, s.TempHFR.Pairs)
	}
	return b.String()
}

func guiding(r *aggregate.Report) string {
	g := r.Guide
	if g == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("🎯 **Guiding**\n")
	fmt.Fprintf(&b, "Avg error: %.2f\" (%s) | RMS: %.2f\" | SNR: %.1f | %d samples",
		g.AvgDistance, g.Quality, g.AvgRMS, g.AvgSNR, g.Samples)
	return b.String()
}

// captureDetails renders one chunk per target, grouping its filters.
func captureDetails(r *aggregate.Report, level Level) []string {
	byTarget := make(map[string][]aggregate.TargetFilter)
	for key := range r.CaptureSummary {
		byTarget[key.Target] = append(byTarget[key.Target], key)
	}

	var chunks []string
	for _, target := range r.Targets {
		keys := byTarget[target]
		sort.Slice(keys, func(i, j int) bool { return keys[i].Filter < keys[j].Filter })

		var b strings.Builder
		fmt.Fprintf(&b, "🌌 **%s**\n", target)
		for _, key := range keys {
			captures := r.CaptureSummary[key]
			fa := r.Filters[key.Filter]

			var exposure float64
			for _, c := range captures {
				exposure += c.Event.Exposure
			}
			fmt.Fprintf(&b, "%s: %d × (%.1fh total)", key.Filter, len(captures), exposure/3600)
			if fa != nil && fa.HFR.Count > 0 {
				fmt.Fprintf(&b, " | HFR %.2f (FWHM %.2f)", fa.HFR.Avg, FWHMFromHFR(fa.HFR.Avg))
			}
			if fa != nil && fa.GuideQuality != "" {
				fmt.Fprintf(&b, " | Guide: %s", fa.GuideQuality)
			}
			b.WriteString("\n")

			if level == LevelDetailed && fa != nil {
				for i, sub := range fa.SubSessions {
					fmt.Fprintf(&b, "  run %d: %d captures", i+1, len(sub.Captures))
					if sub.HFR.Count > 0 {
						fmt.Fprintf(&b, ", HFR %.2f…%.2f", sub.HFR.Min, sub.HFR.Max)
					}
					if sub.GuideSamples > 0 {
						fmt.Fprintf(&b, ", guide %.2f\" (%s)", sub.AvgGuideDistance, sub.GuideQuality)
					}
					b.WriteString("\n")
				}
			}
		}
		chunks = append(chunks, strings.TrimRight(b.String(), "\n"))
	}
	return chunks
}

func autofocus(r *aggregate.Report, s *metrics.Summary, level Level) string {
	af := r.Autofocus
	if af == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("🔧 **Autofocus**\n")
	fmt.Fprintf(&b, "Runs: %d complete", af.Completed)
	if af.Aborted > 0 {
		fmt.Fprintf(&b, ", %d aborted", af.Aborted)
	}
	if af.AvgDuration > 0 {
		fmt.Fprintf(&b, " | avg %.0fs", af.AvgDuration)
	}

	if level == LevelDetailed && s.Advanced != nil {
		if c := s.Advanced.Autofocus; c != nil && c.PerHour > 0 {
			fmt.Fprintf(&b, "\nCadence: %.1f/h", c.PerHour)
		}
		if s.Advanced.BestWindow != nil && s.Advanced.WorstWindow != nil {
			fmt.Fprintf(&b, "\nBest window: %s HFR %.2f | worst: %s HFR %.2f",
				s.Advanced.BestWindow.Filter, s.Advanced.BestWindow.AvgHFR,
				s.Advanced.WorstWindow.Filter, s.Advanced.WorstWindow.AvgHFR)
		}
	}
	return b.String()
}

func issues(r *aggregate.Report, s *metrics.Summary) string {
	if len(r.Issues) == 0 && len(s.Alerts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("⚠️ **Issues**\n")

	counts := make(map[event.NotificationType]int)
	var order []event.NotificationType
	for _, n := range r.Issues {
		if counts[n.Type] == 0 {
			order = append(order, n.Type)
		}
		counts[n.Type]++
	}
	for _, typ := range order {
		fmt.Fprintf(&b, "%s × %d\n", issueLabel(typ), counts[typ])
	}

	for _, a := range s.Alerts {
		marker := "⚠️"
		if a.Severity == metrics.SeverityError {
			marker = "🔴"
		}
		fmt.Fprintf(&b, "%s %s\n", marker, a.Message)
	}
	return strings.TrimRight(b.String(), "\n")
}

func issueLabel(typ event.NotificationType) string {
	switch typ {
	case event.NotifyGuideLost:
		return "guide star lost"
	case event.NotifyGuideRecovered:
		return "guide star recovered"
	case event.NotifyFrequentReacquire:
		return "frequent guide reacquisition"
	case event.NotifyMountParking:
		return "mount parking"
	case event.NotifyAlignComplete:
		return "alignment complete"
	case event.NotifyAlignFailed:
		return "alignment failed"
	case event.NotifyMeridianFlip:
		return "meridian flip"
	}
	return string(typ)
}
