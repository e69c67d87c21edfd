package aggregate

import (
	"math"
	"strings"
	"testing"

	"github.com/grm/nightwatch/internal/decode"
	"github.com/grm/nightwatch/internal/event"
	"github.com/grm/nightwatch/internal/parse"
)

func parseLog(t *testing.T, log string) *event.Session {
	t.Helper()
	sess, err := parse.ParseReader(strings.NewReader(log), decode.Options{})
	if err != nil {
		t.Fatal(err)
	}
	return sess
}

func approx(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestAggregateTwoCapturesOneSubSession(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
CaptureComplete,100,60,L,2.0,/a.fits
CaptureComplete,200,60,L,2.4,/b.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})

	if r.Empty {
		t.Fatal("report should not be empty")
	}
	if r.TotalCaptures != 2 {
		t.Errorf("total captures = %d, want 2", r.TotalCaptures)
	}
	fa := r.Filters["L"]
	if fa == nil {
		t.Fatal("no filter analysis for L")
	}
	if len(fa.SubSessions) != 1 {
		t.Fatalf("sub-sessions = %d, want 1", len(fa.SubSessions))
	}
	if !approx(fa.HFR.Avg, 2.2, 1e-9) {
		t.Errorf("avg HFR = %v, want 2.2", fa.HFR.Avg)
	}
	if !r.Duration.Exact {
		t.Error("anchored session should yield an exact duration")
	}
}

func TestAggregateEmptyInputs(t *testing.T) {
	r := Aggregate(nil, Options{})
	if !r.Empty {
		t.Error("no sessions should produce an empty report")
	}

	sess := parseLog(t, "AnalyzeStartTime,2025-01-01 20:00:00,UTC\nTemperature,10,4.0\n")
	r = Aggregate([]*event.Session{sess}, Options{})
	if !r.Empty {
		t.Error("no completed captures should produce an empty report")
	}
}

func TestDurationEstimateWithoutAnchor(t *testing.T) {
	sess := parseLog(t, `CaptureComplete,0,60,L,2.0,/a.fits
CaptureComplete,3600,60,L,2.1,/b.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Duration.Exact {
		t.Error("anchorless session must be flagged as an estimate")
	}
	if !approx(r.Duration.Hours, 1.0, 1e-9) {
		t.Errorf("duration = %v h, want 1.0", r.Duration.Hours)
	}
	if s := r.Duration.String(); !strings.Contains(s, "estimated") {
		t.Errorf("estimate rendering = %q", s)
	}
}

func TestSchedulerJobAttributionPerCapture(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
SchedulerJobStart,0,M31
SchedulerJobStart,500,M33
CaptureComplete,100,60,R,2.0,/a.fits
CaptureComplete,600,60,R,2.1,/b.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})

	if len(r.CaptureSummary[TargetFilter{"M31", "R"}]) != 1 {
		t.Errorf("capture at t=100 not attributed to M31: %v", r.Targets)
	}
	if len(r.CaptureSummary[TargetFilter{"M33", "R"}]) != 1 {
		t.Errorf("capture at t=600 not attributed to M33: %v", r.Targets)
	}
}

func TestAttributionFallsBackToFirstJob(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
SchedulerJobStart,500,M33
CaptureComplete,100,60,R,2.0,/a.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Targets[0] != "M33" {
		t.Errorf("capture before any job start should use the first job, got %v", r.Targets)
	}
}

func TestAttributionPathHeuristicWithoutJobs(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
CaptureComplete,100,60,L,2.0,/home/u/Pictures/IC_434/Light/a.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Targets[0] != "IC 434" {
		t.Errorf("targets = %v, want [IC 434]", r.Targets)
	}
}

func TestAttributionSessionFallbackName(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
CaptureComplete,100,60,L,2.0,
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Targets[0] != "Session_2025-01-01" {
		t.Errorf("targets = %v, want [Session_2025-01-01]", r.Targets)
	}
}

func TestSubSessionSegmentationGap(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
CaptureComplete,100,60,L,2.0,/a.fits
CaptureComplete,1900,60,L,2.1,/b.fits
CaptureComplete,3701,60,L,2.2,/c.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	fa := r.Filters["L"]
	// 100→1900 is exactly the 1800s threshold (same run); 1900→3701 exceeds it.
	if len(fa.SubSessions) != 2 {
		t.Fatalf("sub-sessions = %d, want 2", len(fa.SubSessions))
	}
	if len(fa.SubSessions[0].Captures) != 2 || len(fa.SubSessions[1].Captures) != 1 {
		t.Errorf("sub-session sizes = %d, %d", len(fa.SubSessions[0].Captures), len(fa.SubSessions[1].Captures))
	}
}

func TestWeightedGlobalAverage(t *testing.T) {
	// First run: 3 captures at HFR 2.0. Second run: 1 capture at HFR 4.0.
	// Weighted avg = (3*2.0 + 1*4.0)/4 = 2.5, not the mean-of-means 3.0.
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
CaptureComplete,100,60,L,2.0,/a.fits
CaptureComplete,200,60,L,2.0,/b.fits
CaptureComplete,300,60,L,2.0,/c.fits
CaptureComplete,9000,60,L,4.0,/d.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	fa := r.Filters["L"]
	if len(fa.SubSessions) != 2 {
		t.Fatalf("sub-sessions = %d, want 2", len(fa.SubSessions))
	}
	if !approx(fa.HFR.Avg, 2.5, 1e-9) {
		t.Errorf("weighted avg = %v, want 2.5", fa.HFR.Avg)
	}
	if fa.HFR.Min != 2.0 || fa.HFR.Max != 4.0 {
		t.Errorf("min/max = %v/%v", fa.HFR.Min, fa.HFR.Max)
	}
}

func TestHFRBackfillOnlyWhenMissing(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
AutofocusComplete,50,4.5,10,x,L,100|2.8|2.8|0|200|2.3|2.3|0
CaptureComplete,100,60,L,-1.000,/a.fits
CaptureComplete,200,60,L,3.1,/b.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})

	var missing, present *Capture
	for _, c := range r.Captures {
		if c.Event.Time == 100 {
			missing = c
		} else {
			present = c
		}
	}
	if missing.HFR == nil || *missing.HFR != 2.3 {
		t.Errorf("missing HFR should backfill to 2.3, got %v", missing.HFR)
	}
	if !missing.HFRBackfilled {
		t.Error("backfilled capture should be flagged")
	}
	if *present.HFR != 3.1 || present.HFRBackfilled {
		t.Errorf("measured HFR must never change, got %v", *present.HFR)
	}
}

func TestHFRBackfillRespectsWindow(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
AutofocusComplete,50,4.5,10,x,L,100|2.3|2.3|0
CaptureComplete,5000,60,L,-1.000,/a.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Captures[0].HFR != nil {
		t.Errorf("autofocus older than the window must not backfill, got %v", *r.Captures[0].HFR)
	}
}

func TestGuideWindowExpansionAndPadding(t *testing.T) {
	// The capture at t=1300 started at t=700 (within the 1200s match
	// window). Guide samples near the start and just outside the padded
	// window must be included and excluded respectively.
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
CaptureStarting,700,600,L
GuideStats,680,0.1,0.1,0,0,0.5,0.5,20
GuideStats,660,0.1,0.1,0,0,1.5,0.5,20
GuideStats,900,0.1,0.1,0,0,1.0,0.5,20
CaptureComplete,1300,600,L,2.0,/a.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	sub := r.Filters["L"].SubSessions[0]
	// Window: [700-30, 1300+30]. Samples at 680 and 900 are inside, 660 is out.
	if sub.GuideSamples != 2 {
		t.Fatalf("guide samples = %d, want 2", sub.GuideSamples)
	}
	if !approx(sub.AvgGuideDistance, 0.75, 1e-9) {
		t.Errorf("avg guide distance = %v, want 0.75", sub.AvgGuideDistance)
	}
	if sub.GuideQuality != QualityExcellent {
		t.Errorf("quality = %q, want Excellent", sub.GuideQuality)
	}
}

func TestSpuriousGuideMeasurementsDropped(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
GuideStats,90,0.1,0.1,0,0,0.5,0.5,20
GuideStats,95,0.1,0.1,0,0,15.0,0.5,20
CaptureComplete,100,60,L,2.0,/a.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Guide == nil || r.Guide.Samples != 1 {
		t.Fatalf("guide stats = %+v, want 1 sample after spurious filter", r.Guide)
	}
	if !approx(r.Guide.AvgDistance, 0.5, 1e-9) {
		t.Errorf("avg distance = %v, want 0.5", r.Guide.AvgDistance)
	}
}

func TestTemperatureExcludesFocuserSentinel(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
Temperature,10,5.0
AutofocusComplete,50,-1000000,10,x,L,100|2.3|2.3|0
AutofocusComplete,60,3.0,10,x,L,100|2.3|2.3|0
CaptureComplete,100,60,L,2.0,/a.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Temperature == nil || r.Temperature.Count != 2 {
		t.Fatalf("temperature = %+v, want 2 readings", r.Temperature)
	}
	if r.Temperature.Min != 3.0 || r.Temperature.Max != 5.0 {
		t.Errorf("min/max = %v/%v", r.Temperature.Min, r.Temperature.Max)
	}
}

func TestAlignmentSuccessRate(t *testing.T) {
	sess := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
AlignState,10,In Progress
AlignState,40,Successful
AlignState,100,In Progress
AlignState,150,Failed
AlignState,200,In Progress
AlignState,240,Successful
AlignState,300,In Progress
CaptureComplete,400,60,L,2.0,/a.fits
`)
	r := Aggregate([]*event.Session{sess}, Options{})
	if r.Alignment == nil {
		t.Fatal("alignment stats missing")
	}
	if r.Alignment.Successful != 2 || r.Alignment.Failed != 1 {
		t.Errorf("alignment = %+v", r.Alignment)
	}
	if !approx(r.Alignment.SuccessRate, 2.0/3.0, 1e-9) {
		t.Errorf("success rate = %v", r.Alignment.SuccessRate)
	}
}

func TestAggregationOrderIndependence(t *testing.T) {
	a := parseLog(t, `AnalyzeStartTime,2025-01-01 20:00:00,UTC
CaptureComplete,100,60,L,2.0,/a.fits
`)
	b := parseLog(t, `AnalyzeStartTime,2025-01-02 20:00:00,UTC
CaptureComplete,100,60,L,2.4,/b.fits
`)
	r1 := Aggregate([]*event.Session{a, b}, Options{})
	r2 := Aggregate([]*event.Session{b, a}, Options{})

	if r1.Captures[0].AbsTime != r2.Captures[0].AbsTime {
		t.Error("capture ordering must not depend on session order")
	}
	if r1.Filters["L"].HFR.Avg != r2.Filters["L"].HFR.Avg {
		t.Error("filter stats must not depend on session order")
	}
	if len(r1.Filters["L"].SubSessions) != len(r2.Filters["L"].SubSessions) {
		t.Error("segmentation must not depend on session order")
	}
}

func TestClassifyGuidePixelThresholds(t *testing.T) {
	opts := DefaultOptions()
	opts.PixelScale = 2.0 // arcsec per pixel

	cases := []struct {
		arcsec float64
		want   string
	}{
		{0.5, QualityExcellent}, // 0.25 px
		{1.5, QualityGood},      // 0.75 px
		{2.5, QualityAverage},   // 1.25 px
		{4.0, QualityPoor},      // 2.0 px
	}
	for _, tc := range cases {
		if got := ClassifyGuide(tc.arcsec, opts); got != tc.want {
			t.Errorf("ClassifyGuide(%v) = %q, want %q", tc.arcsec, got, tc.want)
		}
	}
}

func TestClassifyGuideArcsecFallback(t *testing.T) {
	opts := DefaultOptions()
	cases := []struct {
		arcsec float64
		want   string
	}{
		{0.8, QualityExcellent},
		{1.5, QualityGood},
		{2.5, QualityAverage},
		{3.5, QualityPoor},
	}
	for _, tc := range cases {
		if got := ClassifyGuide(tc.arcsec, opts); got != tc.want {
			t.Errorf("ClassifyGuide(%v) = %q, want %q", tc.arcsec, got, tc.want)
		}
	}
}
