// Package metrics derives statistical summaries and threshold alerts from
// an aggregated report. Everything here is a stateless function of its
// input; nothing reaches back into sessions or files.
package metrics

import (
	"fmt"
	"math"

	"github.com/grm/nightwatch/internal/aggregate"
)

// HFR trend labels.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDegrading = "degrading"
	TrendUnknown   = "unknown"
)

// trendSlopeEpsilon separates a real drift from regression noise.
const trendSlopeEpsilon = 0.01

// Alert severities.
const (
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Thresholds configures alerting. Zero fields take defaults.
type Thresholds struct {
	// HFRDrift is the tolerated HFR trend slope, in HFR per capture.
	HFRDrift float64
	// TempSwing is the tolerated temperature range in °C.
	TempSwing float64
	// SuccessRate is the minimum acceptable capture success rate.
	SuccessRate float64
}

// DefaultThresholds returns the standard alert thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{HFRDrift: 0.5, TempSwing: 5.0, SuccessRate: 0.8}
}

func (t *Thresholds) fillDefaults() {
	def := DefaultThresholds()
	if t.HFRDrift == 0 {
		t.HFRDrift = def.HFRDrift
	}
	if t.TempSwing == 0 {
		t.TempSwing = def.TempSwing
	}
	if t.SuccessRate == 0 {
		t.SuccessRate = def.SuccessRate
	}
}

// Alert is one threshold crossing with a human-readable message.
type Alert struct {
	Severity string
	Message  string
}

// Correlation is a Pearson correlation between temperature and HFR.
// Significant is a coarse t-statistic check, not a full hypothesis test.
type Correlation struct {
	R           float64
	Pairs       int
	Significant bool
}

// Summary is the derived metrics view of one report.
type Summary struct {
	HFRTrend string
	HFRSlope float64

	Seeing string

	HFRStability    float64 // 0..1, 1 = perfectly steady
	StarConsistency float64 // 0..1

	ThermalStability float64 // 0..1
	TempHFR          *Correlation

	Efficiency    float64 // imaging time / wall time, 0..1
	DowntimeHours float64

	SuccessRate float64

	QualityScore float64 // 0..100

	Alerts []Alert

	// Advanced is nil unless explicitly requested by the caller.
	Advanced *Advanced
}

// Compute derives a Summary from an aggregated report. The advanced flag
// is an explicit capability switch supplied by the caller.
func Compute(r *aggregate.Report, th Thresholds, advanced bool) *Summary {
	th.fillDefaults()
	s := &Summary{HFRTrend: TrendUnknown, Seeing: "Unknown"}
	if r == nil || r.Empty {
		return s
	}

	hfrs := hfrSeries(r)
	s.HFRSlope = olsSlope(hfrs)
	s.HFRTrend = classifyTrend(s.HFRSlope, len(hfrs))
	s.Seeing = classifySeeing(hfrs)
	s.HFRStability = steadiness(hfrs)
	s.StarConsistency = steadiness(starSeries(r))

	if r.Temperature != nil {
		s.ThermalStability = thermalScore(r.Temperature.Max - r.Temperature.Min)
	} else {
		s.ThermalStability = 1.0
	}
	s.TempHFR = tempHFRCorrelation(r)

	if r.Duration.Hours > 0 {
		wall := r.Duration.Hours * 3600
		s.Efficiency = math.Min(1.0, r.TotalExposure/wall)
		s.DowntimeHours = math.Max(0, (wall-r.TotalExposure)/3600)
	}

	attempts := r.TotalCaptures + r.AbortedCaptures
	if attempts > 0 {
		s.SuccessRate = float64(r.TotalCaptures) / float64(attempts)
	} else {
		s.SuccessRate = 1.0
	}

	s.QualityScore = qualityScore(r, s)
	s.Alerts = alerts(r, s, th, len(hfrs))

	if advanced {
		s.Advanced = computeAdvanced(r)
	}
	return s
}

func hfrSeries(r *aggregate.Report) []float64 {
	var out []float64
	for _, c := range r.Captures {
		if c.HFR != nil {
			out = append(out, *c.HFR)
		}
	}
	return out
}

func starSeries(r *aggregate.Report) []float64 {
	var out []float64
	for _, c := range r.Captures {
		if c.Event.Stars != nil {
			out = append(out, float64(*c.Event.Stars))
		}
	}
	return out
}

// olsSlope fits values against their index by ordinary least squares.
// Index, not wall-clock, so unevenly spaced captures weigh equally.
func olsSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func classifyTrend(slope float64, points int) string {
	if points <= 3 {
		return TrendUnknown
	}
	switch {
	case slope > trendSlopeEpsilon:
		return TrendDegrading
	case slope < -trendSlopeEpsilon:
		return TrendImproving
	}
	return TrendStable
}

func classifySeeing(hfrs []float64) string {
	if len(hfrs) == 0 {
		return "Unknown"
	}
	mean := meanOf(hfrs)
	switch {
	case mean < 2.0:
		return "Excellent"
	case mean < 3.0:
		return "Good"
	case mean < 4.0:
		return "Average"
	}
	return "Poor"
}

// steadiness maps a series' coefficient of variation to a 0..1 score.
func steadiness(values []float64) float64 {
	if len(values) < 2 {
		return 1.0
	}
	mean := meanOf(values)
	if mean == 0 {
		return 0
	}
	var ss float64
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(ss / float64(len(values)))
	return math.Max(0, 1.0-sd/math.Abs(mean))
}

func thermalScore(tempRange float64) float64 {
	switch {
	case tempRange < 1.0:
		return 1.0
	case tempRange < 3.0:
		return 0.8
	case tempRange < 5.0:
		return 0.6
	}
	return math.Max(0.2, 1.0-tempRange/20.0)
}

// tempHFRCorrelation pairs each HFR-bearing capture with the nearest
// temperature reading in its session, within a pairing window.
func tempHFRCorrelation(r *aggregate.Report) *Correlation {
	const pairWindow = 600.0

	var xs, ys []float64
	for _, c := range r.Captures {
		if c.HFR == nil {
			continue
		}
		bestGap := pairWindow + 1
		var bestTemp float64
		for _, t := range c.Session.TemperatureReadings() {
			gap := math.Abs(t.Time - c.Event.Time)
			if gap < bestGap {
				bestGap = gap
				bestTemp = t.Value
			}
		}
		if bestGap <= pairWindow {
			xs = append(xs, bestTemp)
			ys = append(ys, *c.HFR)
		}
	}
	if len(xs) < 3 {
		return nil
	}

	r2 := pearson(xs, ys)
	if math.IsNaN(r2) {
		return nil
	}
	n := float64(len(xs))
	significant := false
	if math.Abs(r2) < 1 {
		t := math.Abs(r2) * math.Sqrt((n-2)/(1-r2*r2))
		significant = t >= 2.0
	} else {
		significant = true
	}
	return &Correlation{R: r2, Pairs: len(xs), Significant: significant}
}

func pearson(xs, ys []float64) float64 {
	mx, my := meanOf(xs), meanOf(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return math.NaN()
	}
	return sxy / math.Sqrt(sxx*syy)
}

// qualityScore folds the component scores into a 0..100 figure. Missing
// components take a neutral value so a sparse night still scores.
func qualityScore(r *aggregate.Report, s *Summary) float64 {
	seeing := map[string]float64{
		"Excellent": 1.0, "Good": 0.8, "Average": 0.6, "Poor": 0.3, "Unknown": 0.7,
	}[s.Seeing]

	guide := 0.7
	if r.Guide != nil {
		guide = map[string]float64{
			aggregate.QualityExcellent: 1.0,
			aggregate.QualityGood:      0.8,
			aggregate.QualityAverage:   0.6,
			aggregate.QualityPoor:      0.3,
		}[r.Guide.Quality]
	}

	score := 0.30*seeing + 0.25*guide + 0.20*s.ThermalStability + 0.15*s.Efficiency + 0.10*s.SuccessRate
	return math.Round(score * 100)
}

func alerts(r *aggregate.Report, s *Summary, th Thresholds, hfrPoints int) []Alert {
	var out []Alert

	if hfrPoints > 3 && s.HFRSlope > th.HFRDrift {
		sev := SeverityWarning
		if s.HFRSlope > 2*th.HFRDrift {
			sev = SeverityError
		}
		out = append(out, Alert{
			Severity: sev,
			Message:  fmt.Sprintf("HFR rising %.2f per capture (focus degrading)", s.HFRSlope),
		})
	}

	if r.Temperature != nil {
		swing := r.Temperature.Max - r.Temperature.Min
		if swing > th.TempSwing {
			sev := SeverityWarning
			if swing > 2*th.TempSwing {
				sev = SeverityError
			}
			out = append(out, Alert{
				Severity: sev,
				Message:  fmt.Sprintf("temperature swung %.1f°C (refocus recommended)", swing),
			})
		}
	}

	if attempts := r.TotalCaptures + r.AbortedCaptures; attempts > 0 && s.SuccessRate < th.SuccessRate {
		sev := SeverityWarning
		if s.SuccessRate < th.SuccessRate/2 {
			sev = SeverityError
		}
		out = append(out, Alert{
			Severity: sev,
			Message:  fmt.Sprintf("capture success rate %.0f%% (%d aborted)", s.SuccessRate*100, r.AbortedCaptures),
		})
	}

	return out
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
