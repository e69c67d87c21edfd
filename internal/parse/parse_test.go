package parse

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grm/nightwatch/internal/decode"
)

const sampleLog = `#KStars version 3.7.4
AnalyzeStartTime,2025-01-15 20:30:00.000,CET
SchedulerJobStart,10,M31
CaptureStarting,100,600,L
GuideState,120,Guiding
GuideStats,130,0.12,-0.08,100,50,0.35,0.40,25.5
CaptureComplete,705,600,L,2.10,/tmp/Pictures/M31/L/2025-01-15T20-41-45_M31_Light_600_secs_L.fits,450,1200,0.42
Temperature,800,4.5
AutofocusStarting,1000,L,4.5,10
AutofocusComplete,1060,4.5,10,x,L,10500|2.8|2.8|0|10550|2.1|2.1|0,L1P Solution: 10550
CaptureStarting,1100,600,L
CaptureComplete,1705,600,L,2.05,/tmp/Pictures/M31/L/b.fits,460,1210,0.41
`

func TestParseReader(t *testing.T) {
	sess, err := ParseReader(strings.NewReader(sampleLog), decode.Options{})
	if err != nil {
		t.Fatalf("ParseReader: %v", err)
	}

	if sess.StartTime != "2025-01-15 20:30:00.000" {
		t.Errorf("start time = %q", sess.StartTime)
	}
	if sess.Timezone != "CET" {
		t.Errorf("timezone = %q", sess.Timezone)
	}
	if sess.KStarsVersion != "3.7.4" {
		t.Errorf("kstars version = %q", sess.KStarsVersion)
	}

	if got := len(sess.CompletedCaptures()); got != 2 {
		t.Errorf("completed captures = %d, want 2", got)
	}
	if got := len(sess.GuideSamples()); got != 1 {
		t.Errorf("guide samples = %d, want 1", got)
	}
	if got := len(sess.AutofocusRuns()); got != 1 {
		t.Errorf("autofocus runs = %d, want 1", got)
	}
	if got := len(sess.SchedulerJobStarts()); got != 1 {
		t.Errorf("scheduler job starts = %d, want 1", got)
	}
	if got := len(sess.TemperatureReadings()); got != 1 {
		t.Errorf("temperature readings = %d, want 1", got)
	}
}

func TestParseReaderIsDeterministic(t *testing.T) {
	a, err := ParseReader(strings.NewReader(sampleLog), decode.Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := ParseReader(strings.NewReader(sampleLog), decode.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(a.Events) != len(b.Events) {
		t.Errorf("event counts differ across parses: %d vs %d", len(a.Events), len(b.Events))
	}
}

func TestParseReaderToleratesTruncatedTail(t *testing.T) {
	// A log cut mid-write ends with a partial line; the complete lines
	// before it must still decode.
	truncated := sampleLog + "CaptureComplete,2300,60"
	sess, err := ParseReader(strings.NewReader(truncated), decode.Options{})
	if err != nil {
		t.Fatalf("truncated tail must not fail the parse: %v", err)
	}
	if got := len(sess.CompletedCaptures()); got != 2 {
		t.Errorf("completed captures = %d, want 2", got)
	}
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ekos-2025-01-15T20-30-00.analyze")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}

	sess, err := ParseFile(path, decode.Options{})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if sess.Path != path {
		t.Errorf("session path = %q, want %q", sess.Path, path)
	}
	if !sess.HasActivity() {
		t.Error("session with captures should report activity")
	}
}

func TestParseFileMissing(t *testing.T) {
	_, err := ParseFile(filepath.Join(t.TempDir(), "nope.analyze"), decode.Options{})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestSessionAnchorTime(t *testing.T) {
	sess, err := ParseReader(strings.NewReader(sampleLog), decode.Options{})
	if err != nil {
		t.Fatal(err)
	}
	anchor, ok := sess.AnchorTime()
	if !ok {
		t.Fatal("anchor time should parse")
	}
	if anchor.Hour() != 20 || anchor.Minute() != 30 {
		t.Errorf("anchor = %v", anchor)
	}

	first := sess.CompletedCaptures()[0]
	abs := anchor.Add(time.Duration(first.Time * float64(time.Second)))
	if abs.Format("15:04:05") != "20:41:45" {
		t.Errorf("absolute capture time = %s, want 20:41:45", abs.Format("15:04:05"))
	}
}

func TestFileTimestamp(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{"ekos-2025-01-15T20-30-00.analyze", true},
		{"ekos-2025-01-15.analyze", false},
		{"notes.txt", false},
		{"2025-01-15T20-30-00.analyze", false},
	}
	for _, tc := range cases {
		_, ok := FileTimestamp(tc.name)
		if ok != tc.ok {
			t.Errorf("FileTimestamp(%q) ok = %v, want %v", tc.name, ok, tc.ok)
		}
	}

	ts, ok := FileTimestamp("/logs/ekos-2025-01-15T20-30-00.analyze")
	if !ok {
		t.Fatal("expected parseable timestamp")
	}
	if ts.Year() != 2025 || ts.Hour() != 20 || ts.Second() != 0 {
		t.Errorf("timestamp = %v", ts)
	}
}

func TestFindAnalyzeFiles(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2025, 1, 16, 8, 0, 0, 0, time.Local)

	names := []string{
		"ekos-2025-01-15T20-30-00.analyze", // last night, in window
		"ekos-2025-01-16T01-10-00.analyze", // this morning, in window
		"ekos-2025-01-10T21-00-00.analyze", // too old
		"ekos-garbage.analyze",             // unparseable timestamp
		"README.md",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files, err := FindAnalyzeFiles(dir, 24, now)
	if err != nil {
		t.Fatalf("FindAnalyzeFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want 2 entries", files)
	}
	// Oldest first.
	if filepath.Base(files[0]) != "ekos-2025-01-15T20-30-00.analyze" {
		t.Errorf("first file = %s", files[0])
	}
	if filepath.Base(files[1]) != "ekos-2025-01-16T01-10-00.analyze" {
		t.Errorf("second file = %s", files[1])
	}
}

func TestFindAnalyzeFilesMissingDir(t *testing.T) {
	_, err := FindAnalyzeFiles(filepath.Join(t.TempDir(), "absent"), 24, time.Now())
	if err == nil {
		t.Fatal("expected error for missing directory")
	}
}
